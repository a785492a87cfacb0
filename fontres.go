package pdfhtml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/porticus-lab/go-pdf-html/internal/fontforge"
	"github.com/porticus-lab/go-pdf-html/internal/fontkit"
	"github.com/porticus-lab/go-pdf-html/internal/pdf"
	"github.com/porticus-lab/go-pdf-html/internal/woff"
)

// FontPayload is the embeddable form of an extracted font.
type FontPayload struct {
	Data   []byte
	Format string // currently always "woff"
}

// ResolvedFont binds one document font resource to extracted font data.
// Fonts that could not be extracted or converted degrade to a system
// family: Payload is nil and Fallback carries the reason.
type ResolvedFont struct {
	// Xref is the font's object number in the document.
	Xref int

	// Name is the declared base font name, subset prefix included. Text
	// runs reference resolved fonts by this name.
	Name string

	// Bytes holds the decomposed font file, nil for fallbacks.
	Bytes []byte

	// Measurer measures text widths for letter-spacing correction. Always
	// non-nil; fallbacks use heuristic system-font metrics.
	Measurer fontkit.Measurer

	// Payload is the browser-embeddable font, nil when degraded.
	Payload *FontPayload

	// Fallback is a human-readable degradation reason, empty on success.
	Fallback string
}

// fontFile is one decomposed font from the FontForge output directory.
type fontFile struct {
	path   string
	data   []byte
	family string // sfnt family name, empty for bare CFF output
	isCFF  bool
}

// resolveFonts decomposes the document's fonts and binds each decomposed
// file to an entry of the document font table. It returns a read-only map
// keyed by font xref covering every table entry.
func (c *Converter) resolveFonts(ctx context.Context, pdfPath, scratch string, table []pdf.FontRef) (map[int]*ResolvedFont, error) {
	fontDir := filepath.Join(scratch, "fonts")
	if err := os.MkdirAll(fontDir, 0o700); err != nil {
		return nil, fmt.Errorf("pdfhtml: creating font dir: %w", err)
	}
	if err := fontforge.Decompose(ctx, c.fontforgeBin, pdfPath, fontDir); err != nil {
		return nil, fmt.Errorf("pdfhtml: font decomposition: %w", err)
	}

	paths, err := fontforge.FontFiles(fontDir)
	if err != nil {
		return nil, fmt.Errorf("pdfhtml: %w", err)
	}
	sort.Slice(paths, func(i, j int) bool {
		return naturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})

	files := make([]fontFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			c.cfg.logger.Printf("skipping font file %s: %v", filepath.Base(p), err)
			continue
		}
		f := fontFile{path: p, data: data}
		if strings.EqualFold(filepath.Ext(p), ".cff") {
			f.isCFF = true
		} else if fam, err := fontkit.FamilyName(data); err == nil {
			f.family = fam
		} else {
			c.cfg.logger.Printf("no family name in %s: %v", filepath.Base(p), err)
		}
		files = append(files, f)
	}

	bindings := matchFontFiles(files, table)

	resolved := make(map[int]*ResolvedFont, len(table))
	for i, f := range files {
		ti := bindings[i]
		if ti < 0 {
			c.cfg.logger.Printf("unmatched font file %s", filepath.Base(f.path))
			continue
		}
		entry := table[ti]
		resolved[entry.Xref] = c.buildResolved(entry, f)
	}

	// Table entries no file matched still get a measurer, so every run
	// can be corrected.
	for _, entry := range table {
		if _, ok := resolved[entry.Xref]; ok {
			continue
		}
		family := fontkit.TrimSubsetPrefix(entry.Name)
		c.cfg.logger.Printf("font %s (xref %d): no decomposed file, using system metrics", entry.Name, entry.Xref)
		resolved[entry.Xref] = &ResolvedFont{
			Xref:     entry.Xref,
			Name:     entry.Name,
			Measurer: fontkit.NewSystemMeasurer(family),
			Fallback: "no decomposed font file",
		}
	}
	return resolved, nil
}

// buildResolved constructs the measurer and WOFF payload for a binding.
// Failures degrade the single font, never the conversion.
func (c *Converter) buildResolved(entry pdf.FontRef, f fontFile) *ResolvedFont {
	rf := &ResolvedFont{Xref: entry.Xref, Name: entry.Name, Bytes: f.data}

	measurer, err := fontkit.NewFaceMeasurer(f.data)
	if err != nil {
		c.cfg.logger.Printf("font %s: unusable face (%v), using system metrics", entry.Name, err)
		rf.Measurer = fontkit.NewSystemMeasurer(fontkit.TrimSubsetPrefix(entry.Name))
		rf.Fallback = fmt.Sprintf("face parse failed: %v", err)
		return rf
	}
	rf.Measurer = measurer

	payload, err := woff.Encode(f.data)
	if err != nil {
		c.cfg.logger.Printf("font %s: WOFF conversion failed (%v), falling back to system family", entry.Name, err)
		rf.Fallback = fmt.Sprintf("woff conversion failed: %v", err)
		return rf
	}
	rf.Payload = &FontPayload{Data: payload, Format: "woff"}
	return rf
}

// matchFontFiles binds decomposed font files to font table entries. The
// returned slice holds, per file, the bound table index or -1.
//
// Files bind in order, each consuming its entry from the remaining pool:
// a TrueType file whose family carries the subset tag takes the exact name
// match, any other TrueType file takes the first remaining entry, and a
// CFF file takes the first remaining entry that declares a subset tag.
func matchFontFiles(files []fontFile, table []pdf.FontRef) []int {
	bindings := make([]int, len(files))
	taken := make([]bool, len(table))

	takeFirst := func(pred func(pdf.FontRef) bool) int {
		for i, entry := range table {
			if !taken[i] && pred(entry) {
				taken[i] = true
				return i
			}
		}
		return -1
	}
	any := func(pdf.FontRef) bool { return true }

	for i, f := range files {
		switch {
		case f.isCFF:
			bindings[i] = takeFirst(func(e pdf.FontRef) bool {
				return fontkit.HasSubsetPrefix(e.Name)
			})
			if bindings[i] < 0 {
				bindings[i] = takeFirst(any)
			}
		case fontkit.HasSubsetPrefix(f.family):
			bindings[i] = takeFirst(func(e pdf.FontRef) bool {
				return e.Name == f.family
			})
			if bindings[i] < 0 {
				bindings[i] = takeFirst(any)
			}
		default:
			bindings[i] = takeFirst(any)
		}
	}
	return bindings
}

// naturalLess orders strings with embedded numbers numerically, so that
// "Font2" sorts before "Font10".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := leadingInt(a)
			nb, rb := leadingInt(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingInt(s string) (int64, string) {
	var n int64
	i := 0
	for i < len(s) && isDigit(s[i]) {
		if n < 1<<53 {
			n = n*10 + int64(s[i]-'0')
		}
		i++
	}
	return n, s[i:]
}
