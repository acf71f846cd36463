package nupkg

import (
	"encoding/xml"
	"strings"
)

// DocIndex maps fully-qualified type names to documentation summary text.
type DocIndex map[string]string

// typePrefix marks type-level entries in XML documentation member names.
// Other prefixes (M: methods, P: properties, F: fields, E: events) are
// skipped; only type documentation is merged into descriptors.
const typePrefix = "T:"

// BuildDocIndex scans every XML documentation sidecar in the archive and
// collects type-level summaries. Keys are unique across files; when the same
// type is documented in several sidecars the last one wins. Entries with
// empty summaries are dropped. Sidecars that fail to parse are skipped:
// documentation is best-effort and never fails an extraction.
func (a *Archive) BuildDocIndex() DocIndex {
	index := make(DocIndex)
	for _, name := range a.DocFiles() {
		data, err := a.ReadFile(name)
		if err != nil {
			continue
		}
		mergeDocFile(index, data)
	}
	return index
}

func mergeDocFile(index DocIndex, data []byte) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return
	}
	for _, m := range doc.Members {
		if !strings.HasPrefix(m.Name, typePrefix) {
			continue
		}
		fullName := strings.TrimPrefix(m.Name, typePrefix)
		summary := collapseWhitespace(m.Summary)
		if fullName == "" || summary == "" {
			continue
		}
		index[fullName] = summary
	}
}

// collapseWhitespace normalizes the indentation and line breaks that XML
// documentation files carry over from source code.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type xmlDoc struct {
	XMLName xml.Name    `xml:"doc"`
	Members []xmlMember `xml:"members>member"`
}

type xmlMember struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary"`
}
