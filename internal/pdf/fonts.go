package pdf

import "strings"

// Descriptor flag bits (PDF 32000-1 table 123).
const (
	descFlagItalic    = 1 << 6
	descFlagForceBold = 1 << 18
)

// fontInfo carries everything the content interpreter needs about one
// font resource: decoding, widths and style flags.
type fontInfo struct {
	resourceName string // key in the page /Font dict, e.g. "F1"
	baseName     string // /BaseFont without the leading slash
	subtype      string
	bold         bool
	italic       bool
	decoder      *textDecoder

	// Simple-font widths (/FirstChar + /Widths), in 1/1000 text space units.
	firstChar    int
	widths       []float64
	missingWidth float64

	// Composite-font widths (/W of the descendant), keyed by CID.
	cidWidths  map[uint32]float64
	defaultW   float64
	hasDefault bool
}

// loadFontInfo resolves a font dictionary into a fontInfo.
func loadFontInfo(doc *Document, resourceName string, fontDict Dict) *fontInfo {
	fi := &fontInfo{
		resourceName: resourceName,
		decoder:      newTextDecoder(doc, fontDict),
		missingWidth: 0,
	}
	if fontDict == nil {
		return fi
	}

	fi.baseName, _ = fontDict.GetName("BaseFont")
	fi.subtype, _ = fontDict.GetName("Subtype")

	descDict := resolveDict(doc, fontDict, "FontDescriptor")

	if fi.subtype == "Type0" {
		// Width data lives on the descendant font.
		if descArr, ok := fontDict.GetArray("DescendantFonts"); ok && len(descArr) > 0 {
			desc := doc.Resolve(descArr[0])
			if desc.Type == ObjDict || desc.Type == ObjStream {
				fi.loadCIDWidths(doc, desc.Dict)
				if descDict == nil {
					descDict = resolveDict(doc, desc.Dict, "FontDescriptor")
				}
			}
		}
	} else {
		fi.loadSimpleWidths(doc, fontDict)
	}

	if descDict != nil {
		flags, _ := descDict.GetInt("Flags")
		fi.italic = flags&descFlagItalic != 0
		fi.bold = flags&descFlagForceBold != 0
		if mw, ok := descDict.GetFloat("MissingWidth"); ok {
			fi.missingWidth = mw
		}
		if sw, ok := descDict.GetFloat("StemV"); ok && sw >= 140 {
			fi.bold = true
		}
	}

	// Name sniffing catches fonts whose descriptors leave the flags unset.
	lower := strings.ToLower(fi.baseName)
	if strings.Contains(lower, "bold") {
		fi.bold = true
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		fi.italic = true
	}
	return fi
}

func resolveDict(doc *Document, d Dict, key string) Dict {
	obj, ok := d[key]
	if !ok {
		return nil
	}
	r := doc.Resolve(obj)
	if r.Type != ObjDict && r.Type != ObjStream {
		return nil
	}
	return r.Dict
}

func (fi *fontInfo) loadSimpleWidths(doc *Document, fontDict Dict) {
	if fc, ok := fontDict.GetInt("FirstChar"); ok {
		fi.firstChar = int(fc)
	}
	wObj, ok := fontDict["Widths"]
	if !ok {
		return
	}
	w := doc.Resolve(wObj)
	if w.Type != ObjArray {
		return
	}
	fi.widths = make([]float64, len(w.Array))
	for i, o := range w.Array {
		fi.widths[i] = doc.Resolve(o).Float64()
	}
}

// loadCIDWidths parses the descendant font's /W array and /DW default.
func (fi *fontInfo) loadCIDWidths(doc *Document, desc Dict) {
	fi.cidWidths = make(map[uint32]float64)
	if dw, ok := desc.GetFloat("DW"); ok {
		fi.defaultW = dw
		fi.hasDefault = true
	}
	wObj, ok := desc["W"]
	if !ok {
		return
	}
	w := doc.Resolve(wObj)
	if w.Type != ObjArray {
		return
	}
	arr := w.Array
	for i := 0; i < len(arr); {
		first := doc.Resolve(arr[i])
		if first.Type != ObjInt || i+1 >= len(arr) {
			break
		}
		c := uint32(first.Int)
		second := doc.Resolve(arr[i+1])
		switch second.Type {
		case ObjArray:
			// c [w1 w2 ...]
			for j, o := range second.Array {
				fi.cidWidths[c+uint32(j)] = doc.Resolve(o).Float64()
			}
			i += 2
		case ObjInt, ObjFloat:
			// cFirst cLast w
			if i+2 >= len(arr) {
				return
			}
			last := uint32(second.Int)
			width := doc.Resolve(arr[i+2]).Float64()
			if last >= c && last-c <= 0xFFFF {
				for cid := c; cid <= last; cid++ {
					fi.cidWidths[cid] = width
				}
			}
			i += 3
		default:
			return
		}
	}
}

// widthOf returns the glyph advance for a code in 1/1000 text space units.
func (fi *fontInfo) widthOf(code uint32) float64 {
	if fi.cidWidths != nil {
		if w, ok := fi.cidWidths[code]; ok {
			return w
		}
		if fi.hasDefault {
			return fi.defaultW
		}
		return 1000
	}
	idx := int(code) - fi.firstChar
	if idx >= 0 && idx < len(fi.widths) {
		if w := fi.widths[idx]; w > 0 {
			return w
		}
	}
	if fi.missingWidth > 0 {
		return fi.missingWidth
	}
	return 500
}
