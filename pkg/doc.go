// Package pkg provides the core libraries for nuspect package inspection.
//
// # Overview
//
// nuspect resolves NuGet packages from multiple configured sources, downloads
// their archives, and reads type information straight out of the contained
// .NET assemblies without executing any of their code. The pkg directory is
// organized into three main areas:
//
//  1. Resolution - [sources], [feeds], [resolver] (find and fetch packages)
//  2. Inspection - [nupkg], [dotnet], [summary] (open archives, read metadata)
//  3. Infrastructure - [config], [cache], [httputil], [errors], [observability]
//
// # Architecture
//
// The typical data flow through nuspect:
//
//	config.toml sources
//	         ↓
//	    [sources] package (registry + lazy client construction)
//	         ↓
//	    [resolver] package (priority walk across [feeds] clients)
//	         ↓
//	    [nupkg] package (archive access, manifest, doc sidecars)
//	         ↓
//	    [dotnet] package (CLI metadata tables → type descriptors)
//
// # Quick Start
//
// Resolve a package and list its public types:
//
//	import (
//	    "context"
//	    "github.com/nuspect/nuspect/pkg/dotnet"
//	    "github.com/nuspect/nuspect/pkg/resolver"
//	    "github.com/nuspect/nuspect/pkg/sources"
//	)
//
//	// 1. Describe the sources to resolve against
//	registry, _ := sources.NewRegistry([]sources.Config{{
//	    Name:    "nuget.org",
//	    URL:     "https://api.nuget.org/v3/index.json",
//	    Kind:    sources.KindNuGet,
//	    Enabled: true,
//	}})
//
//	// 2. Resolve and download
//	clients := sources.NewClientCache(sources.DefaultBuilder(sources.BuilderOptions{}))
//	r := resolver.New(registry, clients, nil)
//	archive, _ := r.Download(context.Background(), "Newtonsoft.Json", "13.0.3")
//
//	// 3. Extract public types
//	types := dotnet.NewExtractor(nil).ExtractTypes(context.Background(), archive, "Newtonsoft.Json", true)
//
// # Main Packages
//
// [sources] - Source registry and per-source client construction. Validates
// source entries, orders enabled sources by descending priority, and builds
// feed clients lazily with exactly one authentication scheme each.
//
// [feeds] - Protocol clients. [feeds/nuget] speaks the NuGet v3 protocol
// (service index, flat container, search); [feeds/azdo] speaks the Azure
// DevOps Artifacts REST API and can distinguish feed-native versions from
// upstream-proxied ones.
//
// [resolver] - Walks enabled sources in priority order for version listing,
// download, and search, and aggregates per-source failures into one error.
//
// [nupkg] - Read-only access to downloaded .nupkg archives: case-insensitive
// entry lookup, managed module discovery, .nuspec manifest parsing, and XML
// documentation sidecar indexing.
//
// [dotnet] - ECMA-335 CLI metadata reader. Walks the PE structure to the
// metadata tables and extracts publicly visible classes and interfaces.
//
// [summary] - Human-facing package summaries built from the manifest, with
// meta-package classification.
//
// [config] - TOML configuration file loading with defaults and validation.
//
// [cache] - Byte-valued response cache with file, Redis, and null backends.
//
// [httputil] - Shared HTTP plumbing: retry with backoff for transient errors.
//
// [errors] - Coded errors shared by every package, plus input validation.
//
// [observability] - Process-wide hook registry for resolution, HTTP, and
// extraction events.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/dotnet/...   # Specific package
//
// [sources]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/sources
// [feeds]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/feeds
// [feeds/nuget]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/feeds/nuget
// [feeds/azdo]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/feeds/azdo
// [resolver]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/resolver
// [nupkg]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/nupkg
// [dotnet]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/dotnet
// [summary]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/summary
// [config]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/config
// [cache]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/errors
// [observability]: https://pkg.go.dev/github.com/nuspect/nuspect/pkg/observability
package pkg
