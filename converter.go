package pdfhtml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/porticus-lab/go-pdf-html/internal/fontforge"
	"github.com/porticus-lab/go-pdf-html/internal/pdf"
	"github.com/porticus-lab/go-pdf-html/internal/raster"
)

// Converter converts PDF documents to self-contained HTML.
//
// A Converter locates its external tools once at creation time and can be
// reused for any number of conversions. It is safe for concurrent use; each
// conversion works in its own scratch directory.
type Converter struct {
	cfg          converterConfig
	fontforgeBin string
	rasterTool   *raster.Tool
}

// NewConverter creates a Converter with the given options.
//
// It verifies that FontForge and a rasterizer (mutool or pdftoppm) are
// available, so missing tools surface here rather than mid-conversion.
func NewConverter(opts ...Option) (*Converter, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	bin := cfg.fontforgePath
	if bin == "" {
		found, err := fontforge.Find()
		if err != nil {
			return nil, ErrNoFontTool
		}
		bin = found
	}

	var tool *raster.Tool
	if cfg.rasterPath != "" {
		tool = &raster.Tool{Path: cfg.rasterPath, Kind: "mutool"}
	} else {
		found, err := raster.Find()
		if err != nil {
			return nil, ErrNoRasterTool
		}
		tool = found
	}

	return &Converter{cfg: cfg, fontforgeBin: bin, rasterTool: tool}, nil
}

// Convert converts PDF bytes into a single HTML document titled title.
//
// Fonts are extracted once for the whole document, then pages are processed
// in order: text runs from the original content, the background image from
// a text-stripped copy. Any document-level failure aborts the conversion
// with no partial output; per-font extraction problems degrade that font to
// a system family and continue.
func (c *Converter) Convert(ctx context.Context, data []byte, title string) (*Result, error) {
	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	doc, err := pdf.Load(data)
	if err != nil {
		return nil, fmt.Errorf("pdfhtml: loading document: %w", err)
	}

	scratch, err := os.MkdirTemp("", "pdfhtml-*")
	if err != nil {
		return nil, fmt.Errorf("pdfhtml: creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	inputPath := filepath.Join(scratch, "input.pdf")
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("pdfhtml: writing scratch copy: %w", err)
	}

	table := documentFontTable(doc)
	c.cfg.logger.Printf("document: %d pages, %d fonts", len(doc.Pages()), len(table))

	fonts, err := c.resolveFonts(ctx, inputPath, scratch, table)
	if err != nil {
		return nil, err
	}

	stripped, err := doc.StripTextLayer()
	if err != nil {
		return nil, fmt.Errorf("pdfhtml: stripping text layer: %w", err)
	}
	strippedPath := filepath.Join(scratch, "stripped.pdf")
	if err := os.WriteFile(strippedPath, stripped, 0o600); err != nil {
		return nil, fmt.Errorf("pdfhtml: writing stripped copy: %w", err)
	}

	pages := make([]Page, 0, len(doc.Pages()))
	for i, pg := range doc.Pages() {
		c.cfg.logger.Printf("page %d/%d", i+1, len(doc.Pages()))

		tp, err := pg.StructuredText()
		if err != nil {
			return nil, fmt.Errorf("pdfhtml: page %d text: %w", i, err)
		}
		runs := extractRuns(tp, pg.FontTable(), fonts, c.cfg.scale, c.cfg.logger)

		img, err := c.rasterTool.Render(ctx, strippedPath, i, c.cfg.scale, scratch)
		if err != nil {
			return nil, fmt.Errorf("pdfhtml: page %d: %w", i, err)
		}
		pages = append(pages, Page{
			Index:    i,
			WidthPx:  img.Width,
			HeightPx: img.Height,
			Image:    img.PNG,
			Runs:     runs,
		})
	}

	return &Result{data: assembleHTML(pages, fonts, title)}, nil
}

// ConvertFile converts the PDF at path. The document title is the file
// name without its extension.
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdfhtml: %w", err)
	}
	return c.Convert(ctx, data, fileStem(path))
}

// documentFontTable merges the per-page font tables into one document
// table, first occurrence wins per xref.
func documentFontTable(doc *pdf.Document) []pdf.FontRef {
	var table []pdf.FontRef
	seen := make(map[int]bool)
	for _, pg := range doc.Pages() {
		for _, ref := range pg.FontTable() {
			if ref.Xref == 0 || seen[ref.Xref] {
				continue
			}
			seen[ref.Xref] = true
			table = append(table, ref)
		}
	}
	return table
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// --- Package-level convenience functions ---

// Convert converts PDF bytes to HTML using a temporary [Converter].
func Convert(ctx context.Context, data []byte, title string, opts ...Option) (*Result, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	return conv.Convert(ctx, data, title)
}

// ConvertFile converts the PDF at path to HTML using a temporary
// [Converter].
func ConvertFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	return conv.ConvertFile(ctx, path)
}
