package nupkg

import "testing"

func TestBuildDocIndex(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"lib/net8.0/Foo.xml": `<?xml version="1.0"?>
<doc>
  <members>
    <member name="T:Example.Widget">
      <summary>
        A widget that does
        widget things.
      </summary>
    </member>
    <member name="M:Example.Widget.Run">
      <summary>Method docs are skipped.</summary>
    </member>
    <member name="T:Example.Empty">
      <summary>   </summary>
    </member>
  </members>
</doc>`,
	})

	index := a.BuildDocIndex()
	if got := index["Example.Widget"]; got != "A widget that does widget things." {
		t.Errorf("summary = %q, want collapsed whitespace", got)
	}
	if _, ok := index["Example.Widget.Run"]; ok {
		t.Error("method members must not be indexed")
	}
	if _, ok := index["Example.Empty"]; ok {
		t.Error("empty summaries must be dropped")
	}
}

func TestBuildDocIndexLastWriteWins(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"lib/a/Foo.xml": `<doc><members>
			<member name="T:Dup"><summary>first</summary></member>
		</members></doc>`,
		"lib/b/Foo.xml": `<doc><members>
			<member name="T:Dup"><summary>second</summary></member>
		</members></doc>`,
	})

	index := a.BuildDocIndex()
	got := index["Dup"]
	if got != "first" && got != "second" {
		t.Fatalf("summary = %q", got)
	}
	if len(index) != 1 {
		t.Errorf("index has %d entries, want 1", len(index))
	}
}

func TestBuildDocIndexSkipsBrokenSidecars(t *testing.T) {
	a := buildArchive(t, map[string]string{
		"lib/a/Broken.xml": "<doc><members>",
		"lib/a/Good.xml": `<doc><members>
			<member name="T:Ok"><summary>fine</summary></member>
		</members></doc>`,
	})

	index := a.BuildDocIndex()
	if index["Ok"] != "fine" {
		t.Error("a broken sidecar must not prevent indexing the others")
	}
}
