// Package summary builds the human-facing description of a resolved package
// from its manifest and contents.
package summary

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nuspect/nuspect/pkg/nupkg"
)

// PackageSummary is the rendered view of one resolved package version.
type PackageSummary struct {
	ID            string               `json:"id"`
	Version       string               `json:"version"`
	Description   string               `json:"description,omitempty"`
	Authors       []string             `json:"authors,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	ProjectURL    string               `json:"project_url,omitempty"`
	LicenseURL    string               `json:"license_url,omitempty"`
	IsMetaPackage bool                 `json:"is_meta_package"`
	Dependencies  []nupkg.DependencyRef `json:"dependencies,omitempty"`
}

// Classifier decides whether an archive is a meta-package: a package that
// exists only to pull in its dependencies.
type Classifier interface {
	IsMetaPackage(ctx context.Context, archive *nupkg.Archive, id string) bool
}

// DependencyClassifier is the default [Classifier]: a package with declared
// dependencies but no managed modules of its own is a meta-package.
type DependencyClassifier struct{}

func (DependencyClassifier) IsMetaPackage(ctx context.Context, archive *nupkg.Archive, id string) bool {
	if len(archive.Modules()) > 0 {
		return false
	}
	manifest, err := archive.Manifest()
	if err != nil {
		return false
	}
	return len(manifest.Metadata.FlattenDependencies()) > 0
}

// Build produces a summary for a resolved archive. A broken or missing
// manifest degrades the summary instead of failing it: the id and version
// the caller resolved are always known, so a package with a mangled
// .nuspec still gets a summary that says so.
func Build(ctx context.Context, archive *nupkg.Archive, id, version string, classifier Classifier, logger *log.Logger) PackageSummary {
	if logger == nil {
		logger = log.Default()
	}
	if classifier == nil {
		classifier = DependencyClassifier{}
	}

	s := PackageSummary{ID: id, Version: version}

	manifest, err := archive.Manifest()
	if err != nil {
		logger.Warn("package manifest unreadable, producing degraded summary",
			"package", id, "version", version, "error", err)
		s.Description = fmt.Sprintf("%s %s (manifest unreadable)", id, version)
		return s
	}

	meta := manifest.Metadata
	s.Description = meta.Description
	s.Authors = meta.AuthorList()
	s.Tags = meta.TagList()
	s.ProjectURL = meta.ProjectURL
	s.LicenseURL = meta.LicenseURL
	s.Dependencies = meta.FlattenDependencies()
	s.IsMetaPackage = classifier.IsMetaPackage(ctx, archive, id)
	return s
}
