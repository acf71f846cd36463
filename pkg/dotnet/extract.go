package dotnet

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/nupkg"
	"github.com/nuspect/nuspect/pkg/observability"
)

// Extractor reads public type definitions from the managed modules of a
// package archive.
type Extractor struct {
	logger *log.Logger
}

// NewExtractor creates an extractor. A nil logger falls back to the default.
func NewExtractor(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractTypes reads the public types from every managed module in the
// archive. Modules whose metadata cannot be parsed contribute no types and
// are logged; a bad module never fails the whole extraction. When two
// modules define the same fully-qualified name the first module wins.
//
// With includeDocs set, documentation summaries from the archive's XML
// sidecars are merged into the matching descriptors.
func (e *Extractor) ExtractTypes(ctx context.Context, archive *nupkg.Archive, pkg string, includeDocs bool) []TypeDescriptor {
	start := time.Now()

	var out []TypeDescriptor
	seen := make(map[string]bool)
	for _, entry := range archive.Modules() {
		module := nupkg.ModuleName(entry)
		types, err := e.readModule(archive, entry, module)
		observability.Extract().OnModuleRead(ctx, module, len(types), err)
		if err != nil {
			e.logger.Warn("skipping module with unreadable metadata",
				"package", pkg, "module", module, "error", err)
			continue
		}
		for _, t := range types {
			if seen[t.FullName] {
				continue
			}
			seen[t.FullName] = true
			out = append(out, t)
		}
	}

	if includeDocs && len(out) > 0 {
		docs := archive.BuildDocIndex()
		for i := range out {
			out[i].Doc = docs[out[i].FullName]
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	observability.Extract().OnExtractComplete(ctx, pkg, len(out), time.Since(start), nil)
	return out
}

func (e *Extractor) readModule(archive *nupkg.Archive, entry, module string) ([]TypeDescriptor, error) {
	data, err := archive.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	return ReadTypes(data, module)
}

// ReadTypes parses one module image and returns its publicly visible,
// developer-authored types.
func ReadTypes(image []byte, module string) ([]TypeDescriptor, error) {
	meta, err := readMetadata(image)
	if err != nil {
		return nil, err
	}
	t, err := parseMetadataRoot(meta)
	if err != nil {
		return nil, err
	}

	var out []TypeDescriptor
	for i := uint32(0); i < t.numRows(tblTypeDef); i++ {
		td, err := t.typeDef(i)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePartialMetadata, err, "module %s", module)
		}
		desc, ok := classify(td, module)
		if !ok {
			continue
		}
		if desc.Kind == KindClass && isValueTypeBase(t, td) {
			continue // struct or enum, not a class
		}
		out = append(out, desc)
	}
	return out, nil
}

// isValueTypeBase reports whether a TypeDef's base type is System.ValueType
// or System.Enum, which marks the definition as a struct or enum rather
// than a class.
func isValueTypeBase(t *tables, td typeDef) bool {
	if td.extendsRow == 0 || td.extendsTable != tblTypeRef {
		return false
	}
	tr, err := t.typeRef(td.extendsRow - 1)
	if err != nil {
		return false
	}
	if tr.namespace != "System" {
		return false
	}
	return tr.name == "ValueType" || tr.name == "Enum"
}

// classify turns a raw TypeDef row into a descriptor, filtering out
// everything that is not a top-level public class or interface. Nested
// types carry NestedPublic (2) and higher visibility values, so the
// top-level check is implicit in requiring Public (1).
func classify(td typeDef, module string) (TypeDescriptor, bool) {
	if td.flags&tdVisibilityMask != tdPublic {
		return TypeDescriptor{}, false
	}
	if isSynthesizedName(td.name) {
		return TypeDescriptor{}, false
	}

	desc := TypeDescriptor{
		Name:      td.name,
		Namespace: td.namespace,
		FullName:  qualifyName(td.namespace, td.name),
		Module:    module,
	}
	if td.flags&tdInterface != 0 {
		desc.Kind = KindInterface
		return desc, true
	}

	desc.Kind = KindClass
	desc.Abstract = td.flags&tdAbstract != 0
	desc.Sealed = td.flags&tdSealed != 0
	// Static classes have no dedicated flag; the compiler marks them
	// abstract and sealed at the same time.
	desc.Static = desc.Abstract && desc.Sealed
	return desc, true
}
