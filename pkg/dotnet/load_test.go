package dotnet

import (
	"context"
	"testing"
)

// dependentAssembly builds a module whose types extend bases from three
// different assemblies: the runtime, a module shipped alongside, and one
// missing from the archive entirely.
func dependentAssembly(t *testing.T) []byte {
	t.Helper()
	meta := buildMetadata(t,
		[]testType{
			{flags: 0, name: "<Module>"},
			{flags: tdPublic, ns: "App", name: "FromRuntime", extends: codedTypeDefOrRefTypeRef(1)},
			{flags: tdPublic, ns: "App", name: "FromSibling", extends: codedTypeDefOrRefTypeRef(2)},
			{flags: tdPublic, ns: "App", name: "FromMissing", extends: codedTypeDefOrRefTypeRef(3)},
		},
		[]testTypeRef{
			{scope: codedScopeAssemblyRef(1), ns: "System", name: "Object"},
			{scope: codedScopeAssemblyRef(2), ns: "Sibling", name: "Base"},
			{scope: codedScopeAssemblyRef(3), ns: "Contoso", name: "Base"},
		},
		[]string{"mscorlib", "Sibling", "Contoso.Base"},
	)
	return buildPE(t, meta)
}

func TestLoadTypesReportsMissingAssemblies(t *testing.T) {
	archive := packTestArchive(t, map[string][]byte{
		"lib/net8.0/App.dll": dependentAssembly(t),
		"lib/net8.0/Sibling.dll": buildPE(t, buildMetadata(t,
			[]testType{
				{flags: 0, name: "<Module>"},
				{flags: tdPublic, ns: "Sibling", name: "Base", extends: codedTypeDefOrRefTypeRef(1)},
			},
			[]testTypeRef{{scope: codedScopeAssemblyRef(1), ns: "System", name: "Object"}},
			[]string{"mscorlib"},
		)),
	})

	e := NewExtractor(nil)
	result := e.LoadTypes(context.Background(), archive, "App", false)

	loaded := make(map[string]bool)
	for _, typ := range result.Types {
		loaded[typ.FullName] = true
	}
	for _, want := range []string{"App.FromRuntime", "App.FromSibling", "Sibling.Base"} {
		if !loaded[want] {
			t.Errorf("%s should have loaded; got %v", want, loaded)
		}
	}
	if loaded["App.FromMissing"] {
		t.Error("App.FromMissing must not load: its base assembly is absent")
	}

	if len(result.Failed) != 1 {
		t.Fatalf("Failed = %v, want one entry", result.Failed)
	}
	f := result.Failed[0]
	if f.FullName != "App.FromMissing" || f.Module != "App" {
		t.Errorf("failure = %+v", f)
	}
	if f.Reason != "base type requires assembly Contoso.Base not present in archive" {
		t.Errorf("reason = %q", f.Reason)
	}
}

func TestLoadTypesAllResolvable(t *testing.T) {
	archive := packTestArchive(t, map[string][]byte{
		"lib/net8.0/Example.dll": assemblyWithTypes(t),
	})

	e := NewExtractor(nil)
	result := e.LoadTypes(context.Background(), archive, "Example", false)
	if len(result.Failed) != 0 {
		t.Errorf("Failed = %v, want none", result.Failed)
	}
	if len(result.Types) != 3 {
		t.Errorf("got %d types, want 3", len(result.Types))
	}
}

func TestLoadTypesBrokenModule(t *testing.T) {
	archive := packTestArchive(t, map[string][]byte{
		"lib/net8.0/Broken.dll":  []byte("not a module"),
		"lib/net8.0/Example.dll": assemblyWithTypes(t),
	})

	e := NewExtractor(nil)
	result := e.LoadTypes(context.Background(), archive, "Example", false)
	if len(result.Types) != 3 {
		t.Errorf("healthy modules should still load; got %d types", len(result.Types))
	}
	var brokenReported bool
	for _, f := range result.Failed {
		if f.Module == "Broken" {
			brokenReported = true
		}
	}
	if !brokenReported {
		t.Error("unparseable module should surface in Failed")
	}
}

func TestIsRuntimeAssembly(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"mscorlib", true},
		{"netstandard", true},
		{"System", true},
		{"System.Runtime", true},
		{"Microsoft.CSharp", true},
		{"Newtonsoft.Json", false},
		{"Contoso.Base", false},
	}
	for _, tt := range tests {
		if got := isRuntimeAssembly(tt.name); got != tt.want {
			t.Errorf("isRuntimeAssembly(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
