package pdf

import (
	"strconv"
	"strings"
	"testing"
)

// buildTestPDF creates a minimal valid PDF with one content stream per page.
func buildTestPDF(contentStreams [][]byte) []byte {
	var parts [][]byte
	cat := func(s string) { parts = append(parts, []byte(s)) }
	catb := func(b []byte) { parts = append(parts, b) }
	totalLen := func() int {
		n := 0
		for _, p := range parts {
			n += len(p)
		}
		return n
	}

	cat("%PDF-1.4\n")

	objOffsets := map[int]int{}

	objOffsets[1] = totalLen()
	cat("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	numPages := len(contentStreams)
	kidsRefs := ""
	for i := range contentStreams {
		kidsRefs += " " + itoa(3+i*2) + " 0 R"
	}
	if len(kidsRefs) > 0 {
		kidsRefs = kidsRefs[1:]
	}

	objOffsets[2] = totalLen()
	cat("2 0 obj\n<< /Type /Pages /Kids [" + kidsRefs + "] /Count " + itoa(numPages) + " >>\nendobj\n")

	nextObjID := 3
	fontObjID := 3 + numPages*2

	for _, cs := range contentStreams {
		pageObjID := nextObjID
		csObjID := nextObjID + 1
		nextObjID += 2

		objOffsets[pageObjID] = totalLen()
		cat(itoa(pageObjID) + " 0 obj\n")
		cat("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]")
		cat(" /Contents " + itoa(csObjID) + " 0 R")
		cat(" /Resources << /Font << /F1 " + itoa(fontObjID) + " 0 R >> >> >>\n")
		cat("endobj\n")

		objOffsets[csObjID] = totalLen()
		cat(itoa(csObjID) + " 0 obj\n<< /Length " + itoa(len(cs)) + " >>\nstream\n")
		catb(cs)
		cat("\nendstream\nendobj\n")
	}

	objOffsets[fontObjID] = totalLen()
	cat(itoa(fontObjID) + " 0 obj\n")
	cat("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\n")
	cat("endobj\n")
	nextObjID = fontObjID + 1

	xrefOff := totalLen()
	cat("xref\n0 " + itoa(nextObjID) + "\n")
	cat("0000000000 65535 f \n")
	for id := 1; id < nextObjID; id++ {
		cat(padLeft(itoa(objOffsets[id]), 10) + " 00000 n \n")
	}
	cat("trailer\n<< /Size " + itoa(nextObjID) + " /Root 1 0 R >>\n")
	cat("startxref\n" + itoa(xrefOff) + "\n%%EOF\n")

	out := []byte{}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func itoa(n int) string { return strconv.Itoa(n) }

// testFontXref is the object number buildTestPDF assigns the /F1 font.
func testFontXref(numPages int) int { return 3 + numPages*2 }

func TestLoadPages(t *testing.T) {
	pages := [][]byte{
		[]byte("BT /F1 12 Tf 100 700 Td (Page one) Tj ET"),
		[]byte("BT /F1 12 Tf 100 700 Td (Page two) Tj ET"),
	}
	doc, err := Load(buildTestPDF(pages))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := doc.Pages()
	if len(got) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(got))
	}
	for i, pg := range got {
		if pg.Index != i {
			t.Errorf("page %d: Index = %d", i, pg.Index)
		}
		if pg.Width != 612 || pg.Height != 792 {
			t.Errorf("page %d: expected 612x792, got %gx%g", i, pg.Width, pg.Height)
		}
	}
}

func TestLoadIncrementalUpdates(t *testing.T) {
	cs := []byte("0 0 m 10 10 l S BT /F1 12 Tf 100 700 Td (Hello) Tj ET")
	doc, err := Load(buildTestPDF([][]byte{cs}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Two strip passes chain two /Prev revisions onto the original; each
	// reload must walk the whole chain.
	rev1, err := doc.StripTextLayer()
	if err != nil {
		t.Fatalf("StripTextLayer: %v", err)
	}
	doc1, err := Load(rev1)
	if err != nil {
		t.Fatalf("Load revision 1: %v", err)
	}
	rev2, err := doc1.StripTextLayer()
	if err != nil {
		t.Fatalf("StripTextLayer revision 2: %v", err)
	}
	doc2, err := Load(rev2)
	if err != nil {
		t.Fatalf("Load revision 2: %v", err)
	}

	if len(doc2.Pages()) != 1 {
		t.Fatalf("revision 2 has %d pages, want 1", len(doc2.Pages()))
	}
	tp, err := doc2.Pages()[0].StructuredText()
	if err != nil {
		t.Fatalf("StructuredText: %v", err)
	}
	if len(tp.Blocks) != 0 {
		t.Errorf("revision 2 still has %d text blocks", len(tp.Blocks))
	}
	content, err := doc2.Pages()[0].contentStreams()
	if err != nil {
		t.Fatalf("contentStreams: %v", err)
	}
	if !strings.Contains(string(content), "10 10 l") {
		t.Errorf("graphics content lost across revisions: %q", content)
	}
}

func TestLoadRejectsPrevCycle(t *testing.T) {
	data := buildTestPDF([][]byte{[]byte("BT ET")})
	xrefOff := strings.Index(string(data), "xref\n")
	if xrefOff < 0 {
		t.Fatal("no xref table in test document")
	}
	// A trailer whose /Prev points back at its own section must fail the
	// load instead of recursing.
	patched := strings.Replace(string(data),
		"/Root 1 0 R", "/Root 1 0 R /Prev "+itoa(xrefOff), 1)
	if _, err := Load([]byte(patched)); err == nil {
		t.Fatal("expected error for /Prev cycle")
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	if _, err := Load([]byte("not a pdf at all")); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestLoadRejectsEncrypted(t *testing.T) {
	data := buildTestPDF([][]byte{[]byte("BT ET")})
	// Splice an /Encrypt entry into the trailer.
	patched := strings.Replace(string(data), "/Root 1 0 R", "/Root 1 0 R /Encrypt 99 0 R", 1)
	// The trailer grew, so the startxref offset is still valid (it points
	// backwards); only the trailer dict itself changed.
	_, err := Load([]byte(patched))
	if err == nil {
		t.Fatal("expected error for encrypted document")
	}
}

func TestFontTable(t *testing.T) {
	doc, err := Load(buildTestPDF([][]byte{[]byte("BT ET")}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table := doc.Pages()[0].FontTable()
	if len(table) != 1 {
		t.Fatalf("expected 1 font, got %d", len(table))
	}
	if table[0].Name != "Helvetica" {
		t.Errorf("font name = %q, want Helvetica", table[0].Name)
	}
	if table[0].Xref != testFontXref(1) {
		t.Errorf("font xref = %d, want %d", table[0].Xref, testFontXref(1))
	}
}

func TestResolveBrokenRefIsNull(t *testing.T) {
	doc, err := Load(buildTestPDF([][]byte{[]byte("BT ET")}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	obj := doc.ResolveRef(Reference{Number: 9999})
	if obj.Type != ObjNull {
		t.Errorf("broken ref resolved to %v, want null", obj.Type)
	}
}

func TestParserBasicTypes(t *testing.T) {
	data := []byte("null true false 42 3.14 (hello) <48454C4C4F> /Name [1 2 3]")
	p := NewParser(data, 0)

	obj, err := p.ParseObject()
	if err != nil || obj.Type != ObjNull {
		t.Errorf("expected null, got %v (err=%v)", obj.Type, err)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjBool || !obj.Bool {
		t.Errorf("expected true, got %v %v", obj.Type, obj.Bool)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjBool || obj.Bool {
		t.Errorf("expected false, got %v %v", obj.Type, obj.Bool)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjInt || obj.Int != 42 {
		t.Errorf("expected int 42, got %v %v", obj.Type, obj.Int)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjFloat {
		t.Errorf("expected float 3.14, got %v", obj.Type)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjString || string(obj.Str) != "hello" {
		t.Errorf("expected string 'hello', got %v %q", obj.Type, obj.Str)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjString || string(obj.Str) != "HELLO" {
		t.Errorf("expected hex string 'HELLO', got %v %q", obj.Type, obj.Str)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjName || obj.Name != "Name" {
		t.Errorf("expected name 'Name', got %v %q", obj.Type, obj.Name)
	}
	obj, err = p.ParseObject()
	if err != nil || obj.Type != ObjArray || len(obj.Array) != 3 {
		t.Errorf("expected array of 3, got %v len=%d", obj.Type, len(obj.Array))
	}
}

func TestParserIndirectRef(t *testing.T) {
	p := NewParser([]byte("12 0 R"), 0)
	obj, err := p.ParseObject()
	if err != nil || obj.Type != ObjRef {
		t.Fatalf("expected ref, got %v (err=%v)", obj.Type, err)
	}
	if obj.Ref.Number != 12 || obj.Ref.Gen != 0 {
		t.Errorf("ref = %d %d, want 12 0", obj.Ref.Number, obj.Ref.Gen)
	}

	// "1 0 0 RG" must parse as three numbers, not a reference.
	p = NewParser([]byte("1 0 0 RG"), 0)
	for i := 0; i < 3; i++ {
		obj, err := p.ParseObject()
		if err != nil || obj.Type != ObjInt {
			t.Fatalf("operand %d: expected int, got %v (err=%v)", i, obj.Type, err)
		}
	}
}

func TestDecodeNameEscapes(t *testing.T) {
	if got := decodeNameEscapes("A#20B"); got != "A B" {
		t.Errorf("expected 'A B', got %q", got)
	}
	if got := decodeNameEscapes("NoEscapes"); got != "NoEscapes" {
		t.Errorf("expected 'NoEscapes', got %q", got)
	}
}

func TestAsciiHexDecode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"48656c6c6f>", "Hello"},
		{"48 65 6c 6c 6f>", "Hello"},
		{"4865 6c6c 6f>", "Hello"},
	}
	for _, tt := range tests {
		result, err := asciiHexDecode([]byte(tt.input))
		if err != nil {
			t.Errorf("asciiHexDecode(%q): %v", tt.input, err)
			continue
		}
		if string(result) != tt.expected {
			t.Errorf("asciiHexDecode(%q): expected %q, got %q", tt.input, tt.expected, result)
		}
	}
}

func TestTIFFPredictorMultiComponent(t *testing.T) {
	parms := Dict{
		"Predictor":        {Type: ObjInt, Int: 2},
		"Colors":           {Type: ObjInt, Int: 3},
		"BitsPerComponent": {Type: ObjInt, Int: 8},
		"Columns":          {Type: ObjInt, Int: 2},
	}
	// One row of two RGB pixels; the second pixel is stored as per-component
	// deltas against the first.
	data := []byte{10, 20, 30, 5, 5, 5}
	got := undoTIFFPredictor(parms, data)
	want := []byte{10, 20, 30, 15, 25, 35}
	if string(got) != string(want) {
		t.Errorf("undoTIFFPredictor = %v, want %v", got, want)
	}
}

func TestTIFFPredictorSingleComponent(t *testing.T) {
	parms := Dict{
		"Predictor":        {Type: ObjInt, Int: 2},
		"Colors":           {Type: ObjInt, Int: 1},
		"BitsPerComponent": {Type: ObjInt, Int: 8},
		"Columns":          {Type: ObjInt, Int: 4},
	}
	data := []byte{100, 1, 1, 1}
	got := undoTIFFPredictor(parms, data)
	want := []byte{100, 101, 102, 103}
	if string(got) != string(want) {
		t.Errorf("undoTIFFPredictor = %v, want %v", got, want)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// Length byte 2 means copy the next 3 bytes literally.
	result, err := runLengthDecode([]byte{2, 'A', 'B', 'C', 128})
	if err != nil {
		t.Fatalf("runLengthDecode: %v", err)
	}
	if string(result) != "ABC" {
		t.Errorf("expected 'ABC', got %q", result)
	}

	// 253 repeats the next byte 257-253 = 4 times.
	result, err = runLengthDecode([]byte{253, 'X', 128})
	if err != nil {
		t.Fatalf("runLengthDecode: %v", err)
	}
	if string(result) != "XXXX" {
		t.Errorf("expected 'XXXX', got %q", result)
	}
}
