// Package nupkg provides a read-only view over a downloaded package archive.
//
// A .nupkg is a zip container holding one .nuspec manifest, zero or more
// .NET assemblies under lib/ (per target framework), and optional XML
// documentation sidecars next to the assemblies. The archive is fully
// buffered in memory and scoped to a single resolution call; it is never
// cached or shared.
package nupkg

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/nuspect/nuspect/pkg/errors"
)

// Archive is a buffered package archive with a read-only entry view.
type Archive struct {
	data []byte
	zr   *zip.Reader
}

// Open buffers raw archive bytes and opens the zip directory.
// A container that cannot be opened at all is a fatal, non-retried error.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedArchive, err, "open package archive")
	}
	return &Archive{data: data, zr: zr}, nil
}

// Size returns the archive size in bytes.
func (a *Archive) Size() int { return len(a.data) }

// Entries returns the names of all archive entries.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadFile reads one entry fully. Entry names are matched case-insensitively
// because nupkg producers disagree about casing.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	for _, f := range a.zr.File {
		if strings.EqualFold(f.Name, name) {
			rc, err := f.Open()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedArchive, err, "open entry %s", name)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedArchive, err, "read entry %s", name)
			}
			return data, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "archive entry %s not found", name)
}

// Modules returns the archive entries that are managed assemblies intended
// for the target runtime: lib/**/*.dll, excluding satellite resource
// assemblies and native binaries shipped under runtimes/.
func (a *Archive) Modules() []string {
	var modules []string
	for _, f := range a.zr.File {
		name := f.Name
		lower := strings.ToLower(name)
		switch {
		case !strings.HasSuffix(lower, ".dll"):
		case !strings.HasPrefix(lower, "lib/"):
		case strings.HasSuffix(lower, ".resources.dll"):
		default:
			modules = append(modules, name)
		}
	}
	return modules
}

// DocFiles returns the XML documentation sidecars bundled under lib/.
func (a *Archive) DocFiles() []string {
	var docs []string
	for _, f := range a.zr.File {
		lower := strings.ToLower(f.Name)
		if strings.HasPrefix(lower, "lib/") && strings.HasSuffix(lower, ".xml") {
			docs = append(docs, f.Name)
		}
	}
	return docs
}

// ManifestName returns the name of the .nuspec entry, or "" when absent.
// The manifest lives at the archive root.
func (a *Archive) ManifestName() string {
	for _, f := range a.zr.File {
		if !strings.Contains(f.Name, "/") && strings.HasSuffix(strings.ToLower(f.Name), ".nuspec") {
			return f.Name
		}
	}
	return ""
}

// Manifest parses the .nuspec manifest.
func (a *Archive) Manifest() (*Nuspec, error) {
	name := a.ManifestName()
	if name == "" {
		return nil, errors.New(errors.ErrCodeMalformedArchive, "archive has no .nuspec manifest")
	}
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return ParseNuspec(data)
}

// ModuleName derives the module's simple name from its entry path
// ("lib/net8.0/Foo.Bar.dll" -> "Foo.Bar").
func ModuleName(entry string) string {
	return strings.TrimSuffix(path.Base(entry), path.Ext(entry))
}
