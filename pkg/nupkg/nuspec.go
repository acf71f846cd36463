package nupkg

import (
	"encoding/xml"
	"strings"

	"github.com/nuspect/nuspect/pkg/errors"
)

// Nuspec is the parsed package manifest.
type Nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata NuspecMetadata `xml:"metadata"`
}

// NuspecMetadata holds the manifest's scalar fields and dependency groups.
type NuspecMetadata struct {
	ID          string `xml:"id"`
	Version     string `xml:"version"`
	Description string `xml:"description"`
	Authors     string `xml:"authors"` // comma-separated
	Tags        string `xml:"tags"`    // space-separated
	ProjectURL  string `xml:"projectUrl"`
	LicenseURL  string `xml:"licenseUrl"`

	// Dependencies appear either flat or grouped per target framework.
	Dependencies NuspecDependencies `xml:"dependencies"`
}

// NuspecDependencies holds both flat and grouped dependency declarations.
type NuspecDependencies struct {
	Groups []NuspecDependencyGroup `xml:"group"`
	Flat   []NuspecDependency      `xml:"dependency"`
}

// NuspecDependencyGroup is one per-framework dependency group.
type NuspecDependencyGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []NuspecDependency `xml:"dependency"`
}

// NuspecDependency is one declared dependency.
type NuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// DependencyRef is a flattened, deduplicated dependency reference.
type DependencyRef struct {
	ID           string `json:"id"`
	VersionRange string `json:"version_range"`
}

// ParseNuspec parses manifest XML.
func ParseNuspec(data []byte) (*Nuspec, error) {
	var spec Nuspec
	if err := xml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedArchive, err, "parse nuspec manifest")
	}
	return &spec, nil
}

// AuthorList splits the comma-separated authors field.
func (m NuspecMetadata) AuthorList() []string {
	return splitAndTrim(m.Authors, ",")
}

// TagList splits the space-separated tags field.
func (m NuspecMetadata) TagList() []string {
	return splitAndTrim(m.Tags, " ")
}

// FlattenDependencies merges all dependency groups into one list,
// deduplicated by id (first occurrence wins). A dependency without a version
// range is recorded as "latest".
func (m NuspecMetadata) FlattenDependencies() []DependencyRef {
	var out []DependencyRef
	seen := make(map[string]bool)

	add := func(d NuspecDependency) {
		key := strings.ToLower(d.ID)
		if d.ID == "" || seen[key] {
			return
		}
		seen[key] = true
		rng := d.Version
		if rng == "" {
			rng = "latest"
		}
		out = append(out, DependencyRef{ID: d.ID, VersionRange: rng})
	}

	for _, d := range m.Dependencies.Flat {
		add(d)
	}
	for _, g := range m.Dependencies.Groups {
		for _, d := range g.Dependencies {
			add(d)
		}
	}
	return out
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
