// Package dotnet reads type definitions out of .NET assemblies by parsing
// the CLI metadata tables directly. No assembly code is ever loaded or
// executed: the reader walks the PE file structure to the metadata root and
// decodes the TypeDef table from raw bytes.
//
// The reader is deliberately defensive. Package archives come from untrusted
// third-party feeds, so every offset and length read from the file is bounds
// checked, and a module whose metadata cannot be parsed yields an empty type
// list rather than a panic or a fatal error.
package dotnet

// TypeKind classifies a type definition. The set of kinds is fixed and
// exhaustively known, so it is a closed enum rather than an open hierarchy.
type TypeKind int

const (
	// KindClass is a concrete, abstract, sealed, or static class.
	KindClass TypeKind = iota
	// KindInterface is an interface definition.
	KindInterface
)

// String returns the C#-facing name of the kind.
func (k TypeKind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "class"
}

// TypeDescriptor is the extracted representation of one publicly visible
// type. Non-public types and compiler-synthesized names never produce a
// descriptor.
type TypeDescriptor struct {
	Kind      TypeKind `json:"kind"`
	Name      string   `json:"name"`                // simple name
	Namespace string   `json:"namespace,omitempty"` // "" for the global namespace
	FullName  string   `json:"full_name"`           // namespace-qualified name
	Module    string   `json:"module"`              // declaring module's simple name

	// Class-only flags. Static means the type is simultaneously abstract
	// and sealed, which is how the metadata encodes static classes.
	Abstract bool `json:"abstract,omitempty"`
	Sealed   bool `json:"sealed,omitempty"`
	Static   bool `json:"static,omitempty"`

	// Doc is the documentation summary merged from the XML sidecars,
	// empty when no sidecar documents the type.
	Doc string `json:"doc,omitempty"`
}

// qualifyName joins namespace and simple name the way metadata consumers
// expect: "Namespace.Name", or just "Name" for the global namespace.
func qualifyName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// isSynthesizedName reports whether a simple name was generated by a
// compiler rather than written by a developer. Generated names carry marker
// characters: a leading angle bracket (closure classes, iterator state
// machines) or an embedded dollar sign (various code generators).
func isSynthesizedName(name string) bool {
	if name == "" {
		return true
	}
	if name[0] == '<' {
		return true
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '$' {
			return true
		}
	}
	return false
}
