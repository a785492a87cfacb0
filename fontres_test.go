package pdfhtml

import (
	"sort"
	"testing"

	"github.com/porticus-lab/go-pdf-html/internal/pdf"
)

func TestMatchFontFilesExactSubsetMatch(t *testing.T) {
	table := []pdf.FontRef{
		{Xref: 10, Name: "AAAAAA+First"},
		{Xref: 11, Name: "BBBBBB+Second"},
	}
	files := []fontFile{
		{path: "font1.ttf", family: "BBBBBB+Second"},
		{path: "font2.ttf", family: "AAAAAA+First"},
	}
	got := matchFontFiles(files, table)
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("bindings = %v, want [1 0]", got)
	}
}

func TestMatchFontFilesNoFamilyTakesFirstRemaining(t *testing.T) {
	table := []pdf.FontRef{
		{Xref: 10, Name: "AAAAAA+First"},
		{Xref: 11, Name: "Second"},
	}
	files := []fontFile{
		{path: "font1.ttf"},
		{path: "font2.ttf"},
	}
	got := matchFontFiles(files, table)
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("bindings = %v, want [0 1]", got)
	}
}

func TestMatchFontFilesCFFPrefersSubsetEntry(t *testing.T) {
	table := []pdf.FontRef{
		{Xref: 10, Name: "Helvetica"},
		{Xref: 11, Name: "CCCCCC+Embedded"},
	}
	files := []fontFile{
		{path: "font1.cff", isCFF: true},
	}
	got := matchFontFiles(files, table)
	if got[0] != 1 {
		t.Errorf("bindings = %v, want CFF bound to the subset entry", got)
	}
}

func TestMatchFontFilesCFFFallsBackToAnyEntry(t *testing.T) {
	table := []pdf.FontRef{{Xref: 10, Name: "Helvetica"}}
	files := []fontFile{{path: "font1.cff", isCFF: true}}
	got := matchFontFiles(files, table)
	if got[0] != 0 {
		t.Errorf("bindings = %v, want [0]", got)
	}
}

func TestMatchFontFilesNoDoubleConsumption(t *testing.T) {
	table := []pdf.FontRef{
		{Xref: 10, Name: "AAAAAA+One"},
		{Xref: 11, Name: "BBBBBB+Two"},
		{Xref: 12, Name: "Three"},
	}
	files := []fontFile{
		{path: "a.ttf", family: "AAAAAA+One"},
		{path: "b.cff", isCFF: true},
		{path: "c.ttf"},
		{path: "d.ttf"},
	}
	got := matchFontFiles(files, table)

	seen := map[int]bool{}
	bound := 0
	for _, ti := range got {
		if ti < 0 {
			continue
		}
		if seen[ti] {
			t.Fatalf("table entry %d consumed twice: %v", ti, got)
		}
		seen[ti] = true
		bound++
	}
	if bound != len(table) {
		t.Errorf("bound %d entries of %d: %v", bound, len(table), got)
	}
	// One more file than entries, so exactly one stays unbound.
	if got[3] != -1 {
		t.Errorf("surplus file bound to %d, want -1", got[3])
	}
}

func TestMatchFontFilesUnmatchedFamilyStillBinds(t *testing.T) {
	// A subset-tagged family with no matching table entry falls back to
	// first-remaining instead of leaving the file unused.
	table := []pdf.FontRef{{Xref: 10, Name: "ZZZZZZ+Other"}}
	files := []fontFile{{path: "a.ttf", family: "AAAAAA+Lost"}}
	got := matchFontFiles(files, table)
	if got[0] != 0 {
		t.Errorf("bindings = %v, want [0]", got)
	}
}

func TestBuildResolvedDegradesOnBadFace(t *testing.T) {
	c := &Converter{cfg: defaultConfig()}
	entry := pdf.FontRef{Xref: 7, Name: "ABCDEF+Broken"}
	rf := c.buildResolved(entry, fontFile{path: "broken.ttf", data: []byte("junk")})

	if rf.Fallback == "" {
		t.Error("expected a fallback reason for unparsable font data")
	}
	if rf.Payload != nil {
		t.Error("degraded font must not carry a payload")
	}
	if rf.Measurer == nil {
		t.Fatal("degraded font must still measure")
	}
	if w, err := rf.Measurer.TextWidth("abc", 12); err != nil || w <= 0 {
		t.Errorf("system measurer = %g (err=%v)", w, err)
	}
}

func TestNaturalLess(t *testing.T) {
	names := []string{"Font10.ttf", "Font2.ttf", "Font1.ttf", "Abc.ttf"}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	want := []string{"Abc.ttf", "Font1.ttf", "Font2.ttf", "Font10.ttf"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	if naturalLess("a", "a") {
		t.Error("naturalLess(a, a) = true")
	}
	if !naturalLess("a", "ab") {
		t.Error("naturalLess(a, ab) = false")
	}
}
