package dotnet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nuspect/nuspect/pkg/nupkg"
)

// LoadResult is the outcome of a deep load. Types holds every descriptor
// whose base type chain resolved; Failed records the types that depend on
// assemblies missing from the archive. A load with failures is still a
// usable partial result.
type LoadResult struct {
	Types  []TypeDescriptor `json:"types"`
	Failed []TypeFailure    `json:"failed,omitempty"`
}

// TypeFailure names one type that could not be fully resolved and why.
type TypeFailure struct {
	Module   string `json:"module"`
	FullName string `json:"full_name"`
	Reason   string `json:"reason"`
}

// LoadTypes extracts public types and additionally verifies that each
// type's base is resolvable from inside the archive: defined in the same
// module, provided by the runtime, or defined by another module shipped in
// the archive. Types whose base lives in an assembly the archive does not
// carry are reported in Failed instead of silently included.
func (e *Extractor) LoadTypes(ctx context.Context, archive *nupkg.Archive, pkg string, includeDocs bool) LoadResult {
	shipped := make(map[string]bool)
	for _, entry := range archive.Modules() {
		shipped[strings.ToLower(nupkg.ModuleName(entry))] = true
	}

	var result LoadResult
	seen := make(map[string]bool)
	for _, entry := range archive.Modules() {
		module := nupkg.ModuleName(entry)
		data, err := archive.ReadFile(entry)
		if err != nil {
			e.logger.Warn("skipping unreadable module", "package", pkg, "module", module, "error", err)
			continue
		}
		types, failures := loadModule(data, module, shipped)
		for _, f := range failures {
			if !seen[f.FullName] {
				result.Failed = append(result.Failed, f)
			}
		}
		for _, t := range types {
			if seen[t.FullName] {
				continue
			}
			seen[t.FullName] = true
			result.Types = append(result.Types, t)
		}
	}

	if includeDocs && len(result.Types) > 0 {
		docs := archive.BuildDocIndex()
		for i := range result.Types {
			result.Types[i].Doc = docs[result.Types[i].FullName]
		}
	}

	sort.Slice(result.Types, func(i, j int) bool {
		return result.Types[i].FullName < result.Types[j].FullName
	})
	return result
}

func loadModule(image []byte, module string, shipped map[string]bool) ([]TypeDescriptor, []TypeFailure) {
	meta, err := readMetadata(image)
	if err != nil {
		return nil, []TypeFailure{{Module: module, FullName: module, Reason: err.Error()}}
	}
	t, err := parseMetadataRoot(meta)
	if err != nil {
		return nil, []TypeFailure{{Module: module, FullName: module, Reason: err.Error()}}
	}

	var types []TypeDescriptor
	var failed []TypeFailure
	for i := uint32(0); i < t.numRows(tblTypeDef); i++ {
		td, err := t.typeDef(i)
		if err != nil {
			failed = append(failed, TypeFailure{Module: module, FullName: module, Reason: err.Error()})
			return types, failed
		}
		desc, ok := classify(td, module)
		if !ok {
			continue
		}
		if desc.Kind == KindClass && isValueTypeBase(t, td) {
			continue
		}
		if missing, ok := missingBaseAssembly(t, td, shipped); ok {
			failed = append(failed, TypeFailure{
				Module:   module,
				FullName: desc.FullName,
				Reason:   fmt.Sprintf("base type requires assembly %s not present in archive", missing),
			})
			continue
		}
		types = append(types, desc)
	}
	return types, failed
}

// missingBaseAssembly resolves the TypeDef's base through the TypeRef and
// AssemblyRef tables and reports the referenced assembly's name when it is
// neither a runtime assembly nor shipped in the archive.
func missingBaseAssembly(t *tables, td typeDef, shipped map[string]bool) (string, bool) {
	if td.extendsRow == 0 || td.extendsTable != tblTypeRef {
		// Null base (interfaces, System.Object) or a same-module TypeDef.
		return "", false
	}
	tr, err := t.typeRef(td.extendsRow - 1)
	if err != nil {
		return "", false
	}
	if tr.scopeTable != tblAssemblyRef || tr.scopeRow == 0 {
		return "", false
	}
	name, err := t.assemblyRefName(tr.scopeRow - 1)
	if err != nil {
		return "", false
	}
	if isRuntimeAssembly(name) || shipped[strings.ToLower(name)] {
		return "", false
	}
	return name, true
}

// isRuntimeAssembly reports whether an assembly name belongs to the runtime
// or base class libraries, which are always resolvable.
func isRuntimeAssembly(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case "mscorlib", "netstandard", "system":
		return true
	}
	return strings.HasPrefix(lower, "system.") || strings.HasPrefix(lower, "microsoft.")
}
