package pdf

import "math"

// Span style flags, matching the bit layout the converter expects.
const (
	FlagItalic = 1 << 1
	FlagBold   = 1 << 4
)

// Matrix is a PDF transformation matrix [a b c d e f]. A point (x, y) maps
// to (a*x + c*y + e, b*x + d*y + f).
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity matrix.
func Identity() Matrix { return Matrix{A: 1, D: 1} }

// Mul returns m × n (m applied first).
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// translated returns the matrix pre-multiplied by a translation.
func (m Matrix) translated(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}.Mul(m)
}

// Point is a position in top-left-origin page coordinates (points).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in top-left-origin page coordinates.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func (r *Rect) include(x, y float64) {
	if x < r.X0 {
		r.X0 = x
	}
	if x > r.X1 {
		r.X1 = x
	}
	if y < r.Y0 {
		r.Y0 = y
	}
	if y > r.Y1 {
		r.Y1 = y
	}
}

func rectAround(x, y float64) Rect { return Rect{X0: x, Y0: y, X1: x, Y1: y} }

// Span is a run of text sharing one font, size and color.
type Span struct {
	Text   string
	Font   string // base font name, subset prefix included
	Size   float64
	Flags  int // FlagBold | FlagItalic
	Color  int // packed 0xRRGGBB fill color
	BBox   Rect
	Origin Point // baseline start
}

// Line groups spans sharing a baseline. Dir is the unit writing-direction
// vector in top-left coordinates, (1, 0) for horizontal text.
type Line struct {
	Dir   [2]float64
	Spans []Span
}

// Block is one text block, corresponding to a BT..ET section.
type Block struct {
	Lines []Line
}

// TextPage is the structured text of one page.
type TextPage struct {
	Blocks []Block
}

func normalize(x, y float64) [2]float64 {
	n := math.Hypot(x, y)
	if n == 0 {
		return [2]float64{1, 0}
	}
	return [2]float64{x / n, y / n}
}
