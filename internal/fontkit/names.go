package fontkit

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/image/font/sfnt"
)

var subsetPrefixRe = regexp.MustCompile(`^[A-Z]{6}\+`)

// HasSubsetPrefix reports whether a font name carries the six-letter
// subset tag ("ABCDEF+Name").
func HasSubsetPrefix(name string) bool {
	return subsetPrefixRe.MatchString(name)
}

// TrimSubsetPrefix removes a subset tag if present.
func TrimSubsetPrefix(name string) string {
	return subsetPrefixRe.ReplaceAllString(name, "")
}

// FamilyName reads the family name from the sfnt name table of a TrueType
// or OpenType font, preferring the family entry and falling back to the
// full and PostScript names.
func FamilyName(data []byte) (string, error) {
	font, err := sfnt.Parse(data)
	if err != nil {
		return "", fmt.Errorf("parsing sfnt: %w", err)
	}
	buf := &sfnt.Buffer{}
	for _, id := range []sfnt.NameID{sfnt.NameIDFamily, sfnt.NameIDFull, sfnt.NameIDPostScript} {
		name, err := font.Name(buf, id)
		if err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name), nil
		}
	}
	return "", fmt.Errorf("font has no usable name entry")
}
