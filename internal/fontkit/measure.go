// Package fontkit measures text with extracted font faces and reads font
// metadata. Embedded faces are shaped with go-text/typesetting so measured
// widths include kerning; fonts that could not be extracted fall back to a
// per-class heuristic for a named system family.
package fontkit

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Measurer reports the rendered width of a string at a font size, both in
// the same unit (CSS pixels here).
type Measurer interface {
	TextWidth(text string, size float64) (float64, error)
}

// faceMeasurer shapes text against a parsed font face.
type faceMeasurer struct {
	face *gofont.Face
}

// NewFaceMeasurer parses TrueType, OpenType or CFF-flavored font bytes into
// a Measurer.
func NewFaceMeasurer(data []byte) (Measurer, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return &faceMeasurer{face: face}, nil
}

func (m *faceMeasurer) TextWidth(text string, size float64) (float64, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0, nil
	}

	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      m.face,
		Size:      fixed.Int26_6(size * 64),
		Script:    detectScript(runes),
		Language:  language.DefaultLanguage(),
	}
	output := shaper.Shape(input)

	var advance fixed.Int26_6
	for _, g := range output.Glyphs {
		advance += g.XAdvance
	}
	return float64(advance) / 64.0, nil
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch {
		case unicode.Is(unicode.Latin, r):
			return language.Latin
		case unicode.Is(unicode.Cyrillic, r):
			return language.Cyrillic
		case unicode.Is(unicode.Greek, r):
			return language.Greek
		case unicode.Is(unicode.Arabic, r):
			return language.Arabic
		case unicode.Is(unicode.Hebrew, r):
			return language.Hebrew
		case unicode.Is(unicode.Han, r):
			return language.Han
		case unicode.Is(unicode.Hiragana, r):
			return language.Hiragana
		case unicode.Is(unicode.Katakana, r):
			return language.Katakana
		case unicode.Is(unicode.Hangul, r):
			return language.Hangul
		}
	}
	return language.Latin
}

// systemMeasurer estimates widths for a system font family from rune
// classes. Estimates only; downstream letter-spacing correction absorbs
// the residual error.
type systemMeasurer struct {
	mono bool
}

// NewSystemMeasurer returns a heuristic Measurer for a named family.
func NewSystemMeasurer(family string) Measurer {
	lower := strings.ToLower(family)
	return &systemMeasurer{
		mono: strings.Contains(lower, "mono") || strings.Contains(lower, "courier"),
	}
}

func (m *systemMeasurer) TextWidth(text string, size float64) (float64, error) {
	if m.mono {
		return float64(len([]rune(text))) * 0.6 * size, nil
	}
	var w float64
	for _, r := range text {
		w += runeWidthFactor(r)
	}
	return w * size, nil
}

func runeWidthFactor(r rune) float64 {
	switch {
	case strings.ContainsRune("iljtf.,;:'\"!|[]()", r):
		return 0.30
	case strings.ContainsRune("mwMW@", r):
		return 0.85
	case r == ' ':
		return 0.28
	case r >= '0' && r <= '9':
		return 0.55
	case unicode.IsUpper(r):
		return 0.70
	case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
		return 1.0
	default:
		return 0.52
	}
}
