package pdfhtml

import (
	"fmt"
	"log"
	"math"

	"github.com/porticus-lab/go-pdf-html/internal/pdf"
)

// extractRuns converts a page's structured text into positioned text runs,
// binding each run to a resolved font and computing the letter-spacing
// correction that makes the bound font fill the original width.
func extractRuns(tp *pdf.TextPage, table []pdf.FontRef, fonts map[int]*ResolvedFont, scale float64, logger *log.Logger) []TextRun {
	var runs []TextRun
	for _, block := range tp.Blocks {
		for _, line := range block.Lines {
			rotation := htmlRotation(line.Dir)
			for _, span := range line.Spans {
				if span.Text == "" {
					continue
				}
				runs = append(runs, layoutRun(span, rotation, table, fonts, scale, logger))
			}
		}
	}
	return runs
}

// layoutRun computes the final CSS geometry of one span.
func layoutRun(span pdf.Span, rotation int, table []pdf.FontRef, fonts map[int]*ResolvedFont, scale float64, logger *log.Logger) TextRun {
	size := round2(span.Size * scale)

	xref := 0
	for _, e := range table {
		if e.Name == span.Font {
			xref = e.Xref
			break
		}
	}

	x := round2(span.BBox.X0 * scale)
	y := round2(span.BBox.Y0 * scale)
	width := round2(span.BBox.Width() * scale)

	// Rotated boxes are axis-aligned, so for vertical text the box height
	// is the run length; other angles recover it from the projection.
	if rotation != 0 {
		switch rotation {
		case 90, 270:
			width = math.Abs(round2(span.BBox.Height() * scale))
		case 180:
			// width already correct
		default:
			width = math.Abs(width / math.Cos(float64(rotation)*math.Pi/180))
		}
		// Anchor at the glyph origin: the box corner of a rotated run is
		// not where CSS places the span.
		x = round2(span.Origin.X * scale)
		y = round2(span.Origin.Y * scale)
	}

	measured := width
	if rf := fonts[xref]; rf != nil {
		m, err := rf.Measurer.TextWidth(span.Text, size)
		if err != nil {
			logger.Printf("measuring %q with %s: %v", span.Text, span.Font, err)
		} else {
			measured = m
		}
	}

	letterSpacing := 0.0
	if diff := width - measured; math.Abs(diff) > 1.0 {
		letterSpacing = round2(diff / float64(len([]rune(span.Text))))
	}

	weight := "normal"
	if span.Flags&pdf.FlagBold != 0 {
		weight = "bold"
	}
	style := "normal"
	if span.Flags&pdf.FlagItalic != 0 {
		style = "italic"
	}

	return TextRun{
		Text:          span.Text,
		X:             x,
		Y:             y,
		FontName:      span.Font,
		FontXref:      xref,
		Size:          size,
		Weight:        weight,
		Style:         style,
		Color:         fmt.Sprintf("#%06x", span.Color),
		Width:         width,
		LetterSpacing: letterSpacing,
		Rotation:      rotation,
	}
}

// htmlRotation maps a line's writing-direction vector to the CSS rotation
// in degrees, normalized into [0, 360). Horizontal text maps to 0.
func htmlRotation(dir [2]float64) int {
	degrees := int(math.Atan2(dir[0], dir[1]) * 180 / math.Pi)
	h := 360 - (degrees - 90)
	for h >= 360 {
		h -= 360
	}
	for h < 0 {
		h += 360
	}
	return h
}

// round2 rounds to two decimal places, the precision emitted into CSS.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
