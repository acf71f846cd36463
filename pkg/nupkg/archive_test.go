package nupkg

import (
	"archive/zip"
	"bytes"
	"reflect"
	"sort"
	"testing"

	"github.com/nuspect/nuspect/pkg/errors"
)

// buildArchive assembles an in-memory zip from name/content pairs. Entries
// are written in sorted name order so tests asserting entry order are
// deterministic.
func buildArchive(t *testing.T, files map[string]string) *Archive {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	a, err := Open(buf.Bytes())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	if errors.GetCode(err) != errors.ErrCodeMalformedArchive {
		t.Errorf("code = %s, want MALFORMED_ARCHIVE", errors.GetCode(err))
	}
}

func TestReadFileCaseInsensitive(t *testing.T) {
	a := buildArchive(t, map[string]string{"Lib/Net8.0/Foo.dll": "bytes"})

	data, err := a.ReadFile("lib/net8.0/foo.dll")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "bytes" {
		t.Errorf("data = %q", data)
	}

	_, err = a.ReadFile("lib/net8.0/missing.dll")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("missing entry: code = %s, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestModulesFiltering(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"lib/net8.0/Foo.dll":              "",
		"lib/netstandard2.0/Foo.dll":      "",
		"lib/net8.0/Foo.resources.dll":    "", // satellite assembly
		"runtimes/win-x64/native/foo.dll": "", // native binary
		"tools/helper.dll":                "", // not under lib/
		"lib/net8.0/Foo.xml":              "", // not a dll
	})

	got := a.Modules()
	want := []string{"lib/net8.0/Foo.dll", "lib/netstandard2.0/Foo.dll"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Modules = %v, want %v", got, want)
	}
}

func TestDocFiles(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"lib/net8.0/Foo.xml": "<doc/>",
		"lib/net8.0/Foo.dll": "",
		"docs/readme.xml":    "<doc/>",
	})
	got := a.DocFiles()
	if len(got) != 1 || got[0] != "lib/net8.0/Foo.xml" {
		t.Errorf("DocFiles = %v", got)
	}
}

func TestManifest(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"Foo.Bar.nuspec": `<package><metadata>
			<id>Foo.Bar</id><version>1.0.0</version>
			<description>test package</description>
		</metadata></package>`,
		"lib/other.nuspec": "not the manifest",
	})

	if name := a.ManifestName(); name != "Foo.Bar.nuspec" {
		t.Fatalf("ManifestName = %q", name)
	}
	spec, err := a.Manifest()
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if spec.Metadata.ID != "Foo.Bar" || spec.Metadata.Description != "test package" {
		t.Errorf("metadata = %+v", spec.Metadata)
	}
}

func TestManifestMissing(t *testing.T) {
	a := buildArchive(t, map[string]string{"lib/net8.0/Foo.dll": ""})
	_, err := a.Manifest()
	if errors.GetCode(err) != errors.ErrCodeMalformedArchive {
		t.Errorf("code = %s, want MALFORMED_ARCHIVE", errors.GetCode(err))
	}
}

func TestModuleName(t *testing.T) {
	tests := []struct{ entry, want string }{
		{"lib/net8.0/Foo.Bar.dll", "Foo.Bar"},
		{"lib/netstandard2.0/X.dll", "X"},
		{"Simple.dll", "Simple"},
	}
	for _, tt := range tests {
		if got := ModuleName(tt.entry); got != tt.want {
			t.Errorf("ModuleName(%q) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}
