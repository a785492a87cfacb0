package pdf

import (
	"bytes"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// textDecoder maps glyph codes from PDF show-text strings to Unicode.
// Priority: ToUnicode CMap, then /Encoding (base + Differences), then the
// built-in table for the font subtype.
type textDecoder struct {
	single [256]rune         // single-byte code map (simple fonts)
	cid    map[uint32]string // ToUnicode entries for composite fonts
	simple bool
}

// newTextDecoder builds a decoder for a font dictionary.
func newTextDecoder(doc *Document, fontDict Dict) *textDecoder {
	dec := &textDecoder{simple: true, cid: make(map[uint32]string)}
	for i := range dec.single {
		dec.single[i] = rune(i)
	}
	if fontDict == nil {
		return dec
	}

	subtype, _ := fontDict.GetName("Subtype")
	if subtype == "Type0" {
		dec.simple = false
	}

	if encObj, ok := fontDict["Encoding"]; ok {
		enc := doc.Resolve(encObj)
		switch enc.Type {
		case ObjName:
			dec.applyBase(enc.Name)
		case ObjDict, ObjStream:
			if base, ok := enc.Dict.GetName("BaseEncoding"); ok {
				dec.applyBase(base)
			}
			if diffs, ok := enc.Dict["Differences"]; ok {
				if d := doc.Resolve(diffs); d.Type == ObjArray {
					dec.applyDifferences(d.Array)
				}
			}
		}
	} else {
		switch subtype {
		case "Type1", "MMType1":
			dec.applyBase("StandardEncoding")
		default:
			dec.applyBase("WinAnsiEncoding")
		}
	}

	if tu, ok := fontDict["ToUnicode"]; ok {
		obj := doc.Resolve(tu)
		if obj.Type == ObjStream {
			if data, err := DecodeStream(obj.Dict, obj.Stream); err == nil {
				dec.parseCMap(data)
			}
		}
	}
	return dec
}

func (d *textDecoder) applyBase(name string) {
	var table [128]rune
	switch name {
	case "WinAnsiEncoding":
		table = winAnsiUpper128
	case "MacRomanEncoding":
		table = macRomanUpper128
	case "StandardEncoding":
		table = standardUpper128
	default:
		return
	}
	for i, r := range table {
		if r != 0 {
			d.single[128+i] = r
		}
	}
}

func (d *textDecoder) applyDifferences(diffs []*Object) {
	code := 0
	for _, obj := range diffs {
		switch obj.Type {
		case ObjInt:
			code = int(obj.Int)
		case ObjName:
			if r, ok := glyphList[obj.Name]; ok && code >= 0 && code < 256 {
				d.single[code] = r
			}
			code++
		}
	}
}

// parseCMap reads the bfchar/bfrange sections of a ToUnicode CMap.
func (d *textDecoder) parseCMap(data []byte) {
	inChar, inRange := false, false
	for _, raw := range bytes.Split(data, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		switch {
		case strings.HasSuffix(line, "beginbfchar"):
			inChar = true
		case line == "endbfchar":
			inChar = false
		case strings.HasSuffix(line, "beginbfrange"):
			inRange = true
		case line == "endbfrange":
			inRange = false
		case inChar:
			d.addBFChar(line)
		case inRange:
			d.addBFRange(line)
		}
	}
}

func (d *textDecoder) set(code uint32, s string) {
	if d.simple && code < 256 {
		if r := []rune(s); len(r) > 0 {
			d.single[code] = r[0]
		}
		return
	}
	d.cid[code] = s
}

// addBFChar handles one "<src> <dst>" line.
func (d *textDecoder) addBFChar(line string) {
	toks := cmapTokens(line)
	if len(toks) < 2 {
		return
	}
	d.set(hexCode(toks[0]), hexUTF16(toks[1]))
}

// addBFRange handles "<low> <high> <dstStart>" or the array destination form.
func (d *textDecoder) addBFRange(line string) {
	toks := cmapTokens(line)
	if len(toks) < 3 {
		return
	}
	low, high := hexCode(toks[0]), hexCode(toks[1])
	if high < low || high-low > 0xFFFF {
		return
	}

	if strings.HasPrefix(toks[2], "[") {
		joined := strings.Join(toks[2:], " ")
		joined = strings.TrimPrefix(joined, "[")
		joined = strings.TrimSuffix(joined, "]")
		elems := cmapTokens(joined)
		for i, code := 0, low; code <= high && i < len(elems); code, i = code+1, i+1 {
			d.set(code, hexUTF16(elems[i]))
		}
		return
	}

	start := []rune(hexUTF16(toks[2]))
	var base rune
	if len(start) > 0 {
		base = start[0]
	}
	for code := low; code <= high; code++ {
		d.set(code, string(base+rune(code-low)))
	}
}

// Decode converts the bytes of one show-text string to UTF-8.
func (d *textDecoder) Decode(data []byte) string {
	var buf strings.Builder
	if d.simple {
		for _, b := range data {
			r := d.single[b]
			if r == 0 {
				r = rune(b)
			}
			if r > 0 && utf8.ValidRune(r) {
				buf.WriteRune(r)
			}
		}
		return buf.String()
	}

	// Composite font: 2-byte codes first, single byte as fallback.
	for i := 0; i < len(data); {
		if i+1 < len(data) {
			code := uint32(data[i])<<8 | uint32(data[i+1])
			if s, ok := d.cid[code]; ok {
				buf.WriteString(s)
				i += 2
				continue
			}
		}
		if s, ok := d.cid[uint32(data[i])]; ok {
			buf.WriteString(s)
		} else if r := d.single[data[i]]; r > 0 && utf8.ValidRune(r) {
			buf.WriteRune(r)
		}
		i++
	}
	return buf.String()
}

// codes splits show-text bytes into glyph codes, 2 bytes per code for
// composite fonts and 1 otherwise. The width lookup runs on these.
func (d *textDecoder) codes(data []byte) []uint32 {
	if d.simple {
		out := make([]uint32, len(data))
		for i, b := range data {
			out[i] = uint32(b)
		}
		return out
	}
	out := make([]uint32, 0, (len(data)+1)/2)
	for i := 0; i < len(data); i += 2 {
		c := uint32(data[i]) << 8
		if i+1 < len(data) {
			c |= uint32(data[i+1])
		}
		out = append(out, c)
	}
	return out
}

// decodeOne returns the UTF-8 text for a single glyph code.
func (d *textDecoder) decodeOne(code uint32) string {
	if d.simple {
		if code < 256 {
			r := d.single[code]
			if r == 0 {
				r = rune(code)
			}
			if r > 0 && utf8.ValidRune(r) {
				return string(r)
			}
		}
		return ""
	}
	if s, ok := d.cid[code]; ok {
		return s
	}
	if code < 256 {
		if r := d.single[code]; r > 0 && utf8.ValidRune(r) {
			return string(r)
		}
	}
	return ""
}

// cmapTokens splits a CMap line into <hex>, [array] and bare tokens.
func cmapTokens(line string) []string {
	var toks []string
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ' || line[i] == '\t' || line[i] == '\r':
			i++
		case line[i] == '<':
			j := strings.Index(line[i+1:], ">")
			if j < 0 {
				return toks
			}
			toks = append(toks, line[i:i+j+2])
			i += j + 2
		case line[i] == '[':
			j := strings.Index(line[i:], "]")
			if j < 0 {
				toks = append(toks, line[i:])
				return toks
			}
			toks = append(toks, line[i:i+j+1])
			i += j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks
}

// hexCode parses <HHHH> into a code value.
func hexCode(s string) uint32 {
	s = strings.Trim(s, "<> \t")
	var v uint32
	for i := 0; i < len(s); i++ {
		v = v<<4 | uint32(hexVal(s[i]))
	}
	return v
}

// hexUTF16 parses <HHHH...> as UTF-16BE and returns UTF-8.
func hexUTF16(s string) string {
	s = strings.Trim(s, "<> \t")
	if s == "" {
		return ""
	}
	if len(s) == 2 {
		return string(rune(hexVal(s[0])<<4 | hexVal(s[1])))
	}
	var units []uint16
	for i := 0; i+3 < len(s); i += 4 {
		u := uint16(hexVal(s[i]))<<12 | uint16(hexVal(s[i+1]))<<8 |
			uint16(hexVal(s[i+2]))<<4 | uint16(hexVal(s[i+3]))
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// winAnsiUpper128 is the Windows-1252 upper half (codes 128-255).
var winAnsiUpper128 = [128]rune{
	0x20AC, 0, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0, 0x017D, 0,
	0, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0, 0x017E, 0x0178,
	0x00A0, 0x00A1, 0x00A2, 0x00A3, 0x00A4, 0x00A5, 0x00A6, 0x00A7,
	0x00A8, 0x00A9, 0x00AA, 0x00AB, 0x00AC, 0x00AD, 0x00AE, 0x00AF,
	0x00B0, 0x00B1, 0x00B2, 0x00B3, 0x00B4, 0x00B5, 0x00B6, 0x00B7,
	0x00B8, 0x00B9, 0x00BA, 0x00BB, 0x00BC, 0x00BD, 0x00BE, 0x00BF,
	0x00C0, 0x00C1, 0x00C2, 0x00C3, 0x00C4, 0x00C5, 0x00C6, 0x00C7,
	0x00C8, 0x00C9, 0x00CA, 0x00CB, 0x00CC, 0x00CD, 0x00CE, 0x00CF,
	0x00D0, 0x00D1, 0x00D2, 0x00D3, 0x00D4, 0x00D5, 0x00D6, 0x00D7,
	0x00D8, 0x00D9, 0x00DA, 0x00DB, 0x00DC, 0x00DD, 0x00DE, 0x00DF,
	0x00E0, 0x00E1, 0x00E2, 0x00E3, 0x00E4, 0x00E5, 0x00E6, 0x00E7,
	0x00E8, 0x00E9, 0x00EA, 0x00EB, 0x00EC, 0x00ED, 0x00EE, 0x00EF,
	0x00F0, 0x00F1, 0x00F2, 0x00F3, 0x00F4, 0x00F5, 0x00F6, 0x00F7,
	0x00F8, 0x00F9, 0x00FA, 0x00FB, 0x00FC, 0x00FD, 0x00FE, 0x00FF,
}

// macRomanUpper128 is the Mac Roman upper half.
var macRomanUpper128 = [128]rune{
	0x00C4, 0x00C5, 0x00C7, 0x00C9, 0x00D1, 0x00D6, 0x00DC, 0x00E1,
	0x00E0, 0x00E2, 0x00E4, 0x00E5, 0x00E7, 0x00E9, 0x00E8, 0x00EA,
	0x00EB, 0x00ED, 0x00EC, 0x00EE, 0x00EF, 0x00F1, 0x00F3, 0x00F2,
	0x00F4, 0x00F6, 0x00FA, 0x00F9, 0x00FB, 0x00FC, 0x2020, 0x00B0,
	0x00A2, 0x00A3, 0x00A7, 0x2022, 0x00B6, 0x00DF, 0x00AE, 0x00A9,
	0x2122, 0x00B4, 0x00A8, 0x2260, 0x00C6, 0x00D8, 0x221E, 0x00B1,
	0x2264, 0x2265, 0x00A5, 0x00B5, 0x2202, 0x2211, 0x220F, 0x03C0,
	0x222B, 0x00AA, 0x00BA, 0x03A9, 0x00E6, 0x00F8, 0x00BF, 0x00A1,
	0x00AC, 0x221A, 0x0192, 0x2248, 0x2206, 0x00AB, 0x00BB, 0x2026,
	0x00A0, 0x00C0, 0x00C3, 0x00D5, 0x0152, 0x0153, 0x2013, 0x2014,
	0x201C, 0x201D, 0x2018, 0x2019, 0x00F7, 0x25CA, 0x00FF, 0x0178,
	0x2044, 0x20AC, 0x2039, 0x203A, 0xFB01, 0xFB02, 0x2021, 0x00B7,
	0x201A, 0x201E, 0x2030, 0x00C2, 0x00CA, 0x00C1, 0x00CB, 0x00C8,
	0x00CD, 0x00CE, 0x00CF, 0x00CC, 0x00D3, 0x00D4, 0xF8FF, 0x00D2,
	0x00DA, 0x00DB, 0x00D9, 0x0131, 0x02C6, 0x02DC, 0x00AF, 0x02D8,
	0x02D9, 0x02DA, 0x00B8, 0x02DD, 0x02DB, 0x02C7, 0, 0,
}

// standardUpper128 is PostScript Standard Encoding upper half.
var standardUpper128 = [128]rune{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0x00A1, 0x00A2, 0x00A3, 0x2044, 0x00A5, 0x0192, 0x00A7,
	0x00A4, 0x0027, 0x201C, 0x00AB, 0x2039, 0x203A, 0xFB01, 0xFB02,
	0, 0x2013, 0x2020, 0x2021, 0x00B7, 0, 0x00B6, 0x2022,
	0x201A, 0x201E, 0x201D, 0x00BB, 0x2026, 0x2030, 0, 0x00BF,
	0, 0x0060, 0x00B4, 0x02C6, 0x02DC, 0x00AF, 0x02D8, 0x02D9,
	0x00A8, 0, 0x02DA, 0x00B8, 0, 0x02DD, 0x02DB, 0x02C7,
	0x2014, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0x00C6, 0, 0x00AA, 0, 0, 0, 0,
	0x0141, 0x00D8, 0x0152, 0x00BA, 0, 0, 0, 0,
	0, 0x00E6, 0, 0, 0, 0x0131, 0, 0,
	0x0142, 0x00F8, 0x0153, 0x00DF, 0, 0, 0, 0,
}

// glyphList maps common Adobe glyph names to code points, enough for the
// /Differences arrays that show up in practice.
var glyphList = map[string]rune{
	"A": 'A', "B": 'B', "C": 'C', "D": 'D', "E": 'E', "F": 'F', "G": 'G',
	"H": 'H', "I": 'I', "J": 'J', "K": 'K', "L": 'L', "M": 'M', "N": 'N',
	"O": 'O', "P": 'P', "Q": 'Q', "R": 'R', "S": 'S', "T": 'T', "U": 'U',
	"V": 'V', "W": 'W', "X": 'X', "Y": 'Y', "Z": 'Z',
	"a": 'a', "b": 'b', "c": 'c', "d": 'd', "e": 'e', "f": 'f', "g": 'g',
	"h": 'h', "i": 'i', "j": 'j', "k": 'k', "l": 'l', "m": 'm', "n": 'n',
	"o": 'o', "p": 'p', "q": 'q', "r": 'r', "s": 's', "t": 't', "u": 'u',
	"v": 'v', "w": 'w', "x": 'x', "y": 'y', "z": 'z',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@',
	"bracketleft": '[', "backslash": '\\', "bracketright": ']',
	"asciicircum": '^', "underscore": '_', "grave": '`',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"Aacute": 0x00C1, "Agrave": 0x00C0, "Acircumflex": 0x00C2,
	"Adieresis": 0x00C4, "Aring": 0x00C5, "AE": 0x00C6, "Ccedilla": 0x00C7,
	"Eacute": 0x00C9, "Egrave": 0x00C8, "Ecircumflex": 0x00CA,
	"Edieresis": 0x00CB, "Iacute": 0x00CD, "Igrave": 0x00CC,
	"Ntilde": 0x00D1, "Oacute": 0x00D3, "Ograve": 0x00D2,
	"Odieresis": 0x00D6, "Oslash": 0x00D8, "Uacute": 0x00DA,
	"Udieresis": 0x00DC, "germandbls": 0x00DF,
	"aacute": 0x00E1, "agrave": 0x00E0, "acircumflex": 0x00E2,
	"adieresis": 0x00E4, "aring": 0x00E5, "ae": 0x00E6, "ccedilla": 0x00E7,
	"eacute": 0x00E9, "egrave": 0x00E8, "ecircumflex": 0x00EA,
	"edieresis": 0x00EB, "iacute": 0x00ED, "igrave": 0x00EC,
	"ntilde": 0x00F1, "oacute": 0x00F3, "ograve": 0x00F2,
	"odieresis": 0x00F6, "oslash": 0x00F8, "uacute": 0x00FA,
	"udieresis": 0x00FC, "yacute": 0x00FD, "ydieresis": 0x00FF,
	"endash": 0x2013, "emdash": 0x2014, "quotesinglbase": 0x201A,
	"quotedblbase": 0x201E, "quotedblleft": 0x201C, "quotedblright": 0x201D,
	"quoteleft": 0x2018, "quoteright": 0x2019, "ellipsis": 0x2026,
	"dagger": 0x2020, "daggerdbl": 0x2021, "bullet": 0x2022,
	"perthousand": 0x2030, "guilsinglleft": 0x2039, "guilsinglright": 0x203A,
	"guillemotleft": 0x00AB, "guillemotright": 0x00BB,
	"trademark": 0x2122, "fi": 0xFB01, "fl": 0xFB02,
	"florin": 0x0192, "fraction": 0x2044, "Euro": 0x20AC,
	"copyright": 0x00A9, "registered": 0x00AE, "degree": 0x00B0,
	"plusminus": 0x00B1, "mu": 0x00B5, "paragraph": 0x00B6,
	"periodcentered": 0x00B7, "cedilla": 0x00B8,
	"ordmasculine": 0x00BA, "ordfeminine": 0x00AA,
	"nobreakspace": 0x00A0, "softhyphen": 0x00AD,
	"OE": 0x0152, "oe": 0x0153, "Scaron": 0x0160, "scaron": 0x0161,
	"Zcaron": 0x017D, "zcaron": 0x017E, "Ydieresis": 0x0178,
	"circumflex": 0x02C6, "tilde": 0x02DC, "macron": 0x00AF,
	"dotlessi": 0x0131, "Lslash": 0x0141, "lslash": 0x0142,
}
