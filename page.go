package pdfhtml

// Page is one converted page: the rasterized background image plus the
// text runs overlaid on it. All pixel values are post-scale.
type Page struct {
	// Index is the zero-based page number.
	Index int

	// WidthPx and HeightPx are the rendered image dimensions in pixels.
	WidthPx  int
	HeightPx int

	// Image is the PNG-encoded page background.
	Image []byte

	// Runs are the selectable text runs of the page.
	Runs []TextRun
}

// TextRun is one absolutely positioned span of text. Values are final CSS
// values; a TextRun is immutable once extracted.
type TextRun struct {
	Text string

	// X and Y position the span's left/top in pixels. For rotated runs
	// they anchor at the glyph origin instead of the box corner.
	X float64
	Y float64

	// FontName is the CSS font-family the run binds to, matching a
	// resolved font's declared name.
	FontName string

	// FontXref is the document object number of the bound font resource,
	// 0 when the page declared no matching font.
	FontXref int

	Size   float64 // font-size in px
	Weight string  // "bold" or "normal"
	Style  string  // "italic" or "normal"
	Color  string  // "#rrggbb"

	// Width is the target display width in px the run must occupy.
	Width float64

	// LetterSpacing corrects the difference between Width and the width
	// the bound font actually renders, in px per character.
	LetterSpacing float64

	// Rotation is the CSS rotation in degrees, in [0, 360).
	Rotation int
}
