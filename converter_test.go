package pdfhtml_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	pdfhtml "github.com/porticus-lab/go-pdf-html"
)

// toolsAvailable reports whether FontForge and a rasterizer are in PATH.
func toolsAvailable() bool {
	if _, err := exec.LookPath("fontforge"); err != nil {
		return false
	}
	for _, name := range []string{"mutool", "pdftoppm"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoTools(t *testing.T) {
	t.Helper()
	if !toolsAvailable() {
		t.Skip("skipping: fontforge and/or a rasterizer not found in PATH")
	}
}

func newTestConverter(t *testing.T) *pdfhtml.Converter {
	t.Helper()
	skipIfNoTools(t)
	c, err := pdfhtml.NewConverter()
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	return c
}

// samplePDF builds a one-page PDF with a Helvetica greeting and one stroked
// line, enough to exercise text extraction, stripping and rasterization.
func samplePDF() []byte {
	content := "0 0 m 50 50 l S BT /F1 24 Tf 72 700 Td (Hello) Tj ET"

	var b strings.Builder
	offsets := make([]int, 6)
	obj := func(id int, body string) {
		offsets[id] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	b.WriteString("%PDF-1.4\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	obj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for id := 1; id <= 5; id++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return []byte(b.String())
}

func TestNewConverter_ExplicitPaths(t *testing.T) {
	// Explicit tool paths bypass the PATH lookup, so construction succeeds
	// even on machines without the tools installed.
	c, err := pdfhtml.NewConverter(
		pdfhtml.WithFontForgePath("/nonexistent/fontforge"),
		pdfhtml.WithRasterizerPath("/nonexistent/mutool"),
	)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if c == nil {
		t.Fatal("NewConverter returned nil converter")
	}
}

func TestConvert_RejectsGarbage(t *testing.T) {
	c, err := pdfhtml.NewConverter(
		pdfhtml.WithFontForgePath("/nonexistent/fontforge"),
		pdfhtml.WithRasterizerPath("/nonexistent/mutool"),
	)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if _, err := c.Convert(context.Background(), []byte("not a pdf at all"), "t"); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestConvert_Basic(t *testing.T) {
	c := newTestConverter(t)

	res, err := c.Convert(context.Background(), samplePDF(), "Sample")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	out := res.String()
	if !strings.Contains(out, "<title>Sample</title>") {
		t.Error("title missing from output")
	}
	if !strings.Contains(out, `<div class="page"`) {
		t.Error("page div missing from output")
	}
	if !strings.Contains(out, "Hello") {
		t.Error("text layer missing from output")
	}
	if !strings.Contains(out, "data:image/png;base64,") {
		t.Error("page background missing from output")
	}
}

func TestConvertFile_TitleFromFileName(t *testing.T) {
	c := newTestConverter(t)

	path := filepath.Join(t.TempDir(), "quarterly-report.pdf")
	if err := os.WriteFile(path, samplePDF(), 0o644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}

	res, err := c.ConvertFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if !strings.Contains(res.String(), "<title>quarterly-report</title>") {
		t.Error("title not derived from file name")
	}
}

func TestConvert_Scale(t *testing.T) {
	c1 := newTestConverter(t)
	res1, err := c1.Convert(context.Background(), samplePDF(), "s")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	c3, err := pdfhtml.NewConverter(pdfhtml.WithScale(3.0))
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	res3, err := c3.Convert(context.Background(), samplePDF(), "s")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	// A higher scale rasterizes at a higher DPI, so the page image and with
	// it the whole document grow.
	if res3.Len() <= res1.Len() {
		t.Errorf("scale 3 output (%d bytes) not larger than scale 2 (%d bytes)", res3.Len(), res1.Len())
	}
}

func TestConvert_FontToolFailureAborts(t *testing.T) {
	// /bin/false stands in for a FontForge run that exits non-zero, which
	// must fail the whole conversion.
	c, err := pdfhtml.NewConverter(
		pdfhtml.WithFontForgePath("/bin/false"),
		pdfhtml.WithRasterizerPath("/nonexistent/mutool"),
	)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if _, err := c.Convert(context.Background(), samplePDF(), "t"); err == nil {
		t.Fatal("expected error when font decomposition fails")
	}
}

func TestConvertFile_MissingFile(t *testing.T) {
	c, err := pdfhtml.NewConverter(
		pdfhtml.WithFontForgePath("/nonexistent/fontforge"),
		pdfhtml.WithRasterizerPath("/nonexistent/mutool"),
	)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if _, err := c.ConvertFile(context.Background(), "/nonexistent/input.pdf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
