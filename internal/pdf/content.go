package pdf

import (
	"bytes"
	"math"
)

const maxFormDepth = 8

// StructuredText interprets the page's content streams and returns the
// text layer as blocks, lines and spans in top-left page coordinates.
func (p *Page) StructuredText() (*TextPage, error) {
	content, err := p.contentStreams()
	if err != nil {
		return nil, err
	}
	in := &interp{doc: p.doc, color: 0}
	// Flip PDF user space to top-left origin and shift out the MediaBox
	// corner, so all downstream geometry is screen-like.
	in.ctm = Matrix{A: 1, D: -1, E: -p.originX, F: p.originY + p.Height}
	in.run(content, p.resources, 0)
	in.endBlock()
	return &TextPage{Blocks: in.blocks}, nil
}

// gstate is the part of graphics state that q/Q save and restore.
type gstate struct {
	ctm   Matrix
	color int
}

// interp executes content-stream operators, collecting text spans.
type interp struct {
	doc   *Document
	ctm   Matrix
	stack []gstate
	color int

	// Text state.
	font    *fontInfo
	size    float64
	charSp  float64
	wordSp  float64
	hscale  float64 // Tz / 100
	leading float64
	rise    float64
	tm, tlm Matrix
	inText  bool

	blocks   []Block
	curBlock *Block
	curLine  *Line
	lineOrig Point
}

func (in *interp) run(content []byte, res Dict, depth int) {
	if depth > maxFormDepth {
		return
	}
	if in.hscale == 0 {
		in.hscale = 1
	}

	fonts := make(map[string]*fontInfo)
	p := NewParser(content, 0)
	var ops []*Object

	for {
		p.skipWhitespace()
		if p.Pos() >= len(content) {
			break
		}
		c := content[p.Pos()]
		if c == '/' || c == '(' || c == '<' || c == '[' ||
			c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			obj, err := p.ParseObject()
			if err != nil {
				return
			}
			ops = append(ops, obj)
			continue
		}
		if c == ']' || c == '>' || c == ')' || c == '{' || c == '}' {
			p.SetPos(p.Pos() + 1)
			continue
		}

		op := p.readToken()
		if op == "" {
			p.SetPos(p.Pos() + 1)
			continue
		}
		switch op {
		case "true":
			ops = append(ops, &Object{Type: ObjBool, Bool: true})
			continue
		case "false":
			ops = append(ops, &Object{Type: ObjBool})
			continue
		case "null":
			ops = append(ops, &Object{Type: ObjNull})
			continue
		case "BI":
			skipInlineImage(p, content)
			ops = ops[:0]
			continue
		}
		in.exec(op, ops, res, fonts, depth)
		ops = ops[:0]
	}
}

func (in *interp) exec(op string, ops []*Object, res Dict, fonts map[string]*fontInfo, depth int) {
	num := func(i int) float64 {
		// i counts back from the end: num(0) is the last operand.
		idx := len(ops) - 1 - i
		if idx < 0 {
			return 0
		}
		return ops[idx].Float64()
	}

	switch op {
	case "q":
		in.stack = append(in.stack, gstate{ctm: in.ctm, color: in.color})
	case "Q":
		if n := len(in.stack); n > 0 {
			in.ctm = in.stack[n-1].ctm
			in.color = in.stack[n-1].color
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if len(ops) >= 6 {
			m := Matrix{A: num(5), B: num(4), C: num(3), D: num(2), E: num(1), F: num(0)}
			in.ctm = m.Mul(in.ctm)
		}

	case "BT":
		in.tm = Identity()
		in.tlm = Identity()
		in.inText = true
		in.startBlock()
	case "ET":
		in.inText = false
		in.endBlock()

	case "Tf":
		if len(ops) >= 2 && ops[len(ops)-2].Type == ObjName {
			name := ops[len(ops)-2].Name
			fi, ok := fonts[name]
			if !ok {
				fi = loadFontInfo(in.doc, name, in.resourceDict(res, "Font", name))
				fonts[name] = fi
			}
			in.font = fi
			in.size = num(0)
		}
	case "Tc":
		in.charSp = num(0)
	case "Tw":
		in.wordSp = num(0)
	case "Tz":
		in.hscale = num(0) / 100
	case "TL":
		in.leading = num(0)
	case "Ts":
		in.rise = num(0)

	case "Td":
		in.tlm = in.tlm.translated(num(1), num(0))
		in.tm = in.tlm
	case "TD":
		in.leading = -num(0)
		in.tlm = in.tlm.translated(num(1), num(0))
		in.tm = in.tlm
	case "Tm":
		if len(ops) >= 6 {
			in.tlm = Matrix{A: num(5), B: num(4), C: num(3), D: num(2), E: num(1), F: num(0)}
			in.tm = in.tlm
		}
	case "T*":
		in.tlm = in.tlm.translated(0, -in.leading)
		in.tm = in.tlm

	case "Tj":
		if len(ops) >= 1 && ops[len(ops)-1].Type == ObjString {
			in.showText(ops[len(ops)-1].Str)
		}
	case "'":
		in.tlm = in.tlm.translated(0, -in.leading)
		in.tm = in.tlm
		if len(ops) >= 1 && ops[len(ops)-1].Type == ObjString {
			in.showText(ops[len(ops)-1].Str)
		}
	case "\"":
		if len(ops) >= 3 {
			in.wordSp = num(2)
			in.charSp = num(1)
		}
		in.tlm = in.tlm.translated(0, -in.leading)
		in.tm = in.tlm
		if len(ops) >= 1 && ops[len(ops)-1].Type == ObjString {
			in.showText(ops[len(ops)-1].Str)
		}
	case "TJ":
		if len(ops) >= 1 && ops[len(ops)-1].Type == ObjArray {
			for _, el := range ops[len(ops)-1].Array {
				switch el.Type {
				case ObjString:
					in.showText(el.Str)
				case ObjInt, ObjFloat:
					tx := -el.Float64() / 1000 * in.size * in.hscale
					in.tm = in.tm.translated(tx, 0)
				}
			}
		}

	case "g":
		v := num(0)
		in.color = packRGB(v, v, v)
	case "rg":
		in.color = packRGB(num(2), num(1), num(0))
	case "k":
		c, m, y, k := num(3), num(2), num(1), num(0)
		in.color = packRGB((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
	case "sc", "scn":
		// Operand count decides the color space; pattern names are skipped.
		var vals []float64
		for _, o := range ops {
			if o.Type == ObjInt || o.Type == ObjFloat {
				vals = append(vals, o.Float64())
			}
		}
		switch len(vals) {
		case 1:
			in.color = packRGB(vals[0], vals[0], vals[0])
		case 3:
			in.color = packRGB(vals[0], vals[1], vals[2])
		case 4:
			c, m, y, k := vals[0], vals[1], vals[2], vals[3]
			in.color = packRGB((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
		}

	case "Do":
		if len(ops) >= 1 && ops[len(ops)-1].Type == ObjName {
			in.runForm(ops[len(ops)-1].Name, res, depth)
		}
	}
}

// runForm recurses into a Form XObject's content with its own resources.
func (in *interp) runForm(name string, res Dict, depth int) {
	if res == nil {
		return
	}
	obj, ok := res["XObject"]
	if !ok {
		return
	}
	xdict := in.doc.Resolve(obj)
	if xdict.Type != ObjDict && xdict.Type != ObjStream {
		return
	}
	formObj := in.doc.Resolve(xdict.Dict[name])
	if formObj == nil || formObj.Type != ObjStream {
		return
	}
	if sub, _ := formObj.Dict.GetName("Subtype"); sub != "Form" {
		return
	}
	data, err := DecodeStream(formObj.Dict, formObj.Stream)
	if err != nil {
		return
	}

	saved := gstate{ctm: in.ctm, color: in.color}
	if mArr, ok := formObj.Dict.GetArray("Matrix"); ok && len(mArr) >= 6 {
		m := Matrix{
			A: in.doc.Resolve(mArr[0]).Float64(),
			B: in.doc.Resolve(mArr[1]).Float64(),
			C: in.doc.Resolve(mArr[2]).Float64(),
			D: in.doc.Resolve(mArr[3]).Float64(),
			E: in.doc.Resolve(mArr[4]).Float64(),
			F: in.doc.Resolve(mArr[5]).Float64(),
		}
		in.ctm = m.Mul(in.ctm)
	}
	formRes := res
	if r, ok := formObj.Dict.GetDict("Resources"); ok {
		formRes = r
	} else if rObj, ok := formObj.Dict["Resources"]; ok {
		if r := in.doc.Resolve(rObj); r.Type == ObjDict {
			formRes = r.Dict
		}
	}
	in.run(data, formRes, depth+1)
	in.ctm = saved.ctm
	in.color = saved.color
}

// resourceDict looks up res[category][name] and resolves it to a dict.
func (in *interp) resourceDict(res Dict, category, name string) Dict {
	if res == nil {
		return nil
	}
	catObj, ok := res[category]
	if !ok {
		return nil
	}
	cat := in.doc.Resolve(catObj)
	if cat.Type != ObjDict && cat.Type != ObjStream {
		return nil
	}
	entry, ok := cat.Dict[name]
	if !ok {
		return nil
	}
	r := in.doc.Resolve(entry)
	if r.Type != ObjDict && r.Type != ObjStream {
		return nil
	}
	return r.Dict
}

// showText renders one show-text string into span geometry.
func (in *interp) showText(data []byte) {
	if len(data) == 0 {
		return
	}
	fi := in.font
	if fi == nil {
		fi = loadFontInfo(in.doc, "", nil)
		in.font = fi
	}
	if !in.inText {
		in.startBlock()
		in.inText = true
	}

	for _, code := range fi.decoder.codes(data) {
		trm := Matrix{A: in.size * in.hscale, D: in.size, F: in.rise}.
			Mul(in.tm).Mul(in.ctm)
		ox, oy := trm.E, trm.F

		w0 := fi.widthOf(code) / 1000
		txt := fi.decoder.decodeOne(code)

		// Glyph box in text space, using nominal ascent/descent.
		box := rectAround(trm.Apply(0, -0.2))
		box.include(trm.Apply(w0, -0.2))
		box.include(trm.Apply(0, 0.8))
		box.include(trm.Apply(w0, 0.8))

		dir := normalize(trm.A, trm.B)
		effSize := math.Hypot(trm.C, trm.D)

		if txt != "" {
			in.addGlyph(fi, txt, effSize, dir, Point{X: ox, Y: oy}, box)
		}

		adv := (w0*in.size + in.charSp) * in.hscale
		if code == ' ' && fi.cidWidths == nil {
			adv += in.wordSp * in.hscale
		}
		in.tm = in.tm.translated(adv, 0)
	}
}

func (in *interp) startBlock() {
	in.endBlock()
	in.curBlock = &Block{}
}

func (in *interp) endBlock() {
	in.endLine()
	if in.curBlock != nil && len(in.curBlock.Lines) > 0 {
		in.blocks = append(in.blocks, *in.curBlock)
	}
	in.curBlock = nil
}

func (in *interp) endLine() {
	if in.curLine != nil && len(in.curLine.Spans) > 0 {
		in.curBlock.Lines = append(in.curBlock.Lines, *in.curLine)
	}
	in.curLine = nil
}

// addGlyph appends glyph text to the current span, opening a new span or
// line when font, style or baseline change.
func (in *interp) addGlyph(fi *fontInfo, txt string, size float64, dir [2]float64, origin Point, box Rect) {
	if in.curBlock == nil {
		in.curBlock = &Block{}
	}

	flags := 0
	if fi.bold {
		flags |= FlagBold
	}
	if fi.italic {
		flags |= FlagItalic
	}

	if in.curLine != nil && !in.sameLine(dir, origin, size) {
		in.endLine()
	}
	if in.curLine == nil {
		in.curLine = &Line{Dir: dir}
		in.lineOrig = origin
	}

	spans := in.curLine.Spans
	if n := len(spans); n > 0 {
		last := &spans[n-1]
		if last.Font == fi.baseName && last.Flags == flags && last.Color == in.color &&
			math.Abs(last.Size-size) < 0.01 && gap(last.BBox, origin) < 0.25*size {
			last.Text += txt
			last.BBox.include(box.X0, box.Y0)
			last.BBox.include(box.X1, box.Y1)
			return
		}
	}
	in.curLine.Spans = append(in.curLine.Spans, Span{
		Text:   txt,
		Font:   fi.baseName,
		Size:   size,
		Flags:  flags,
		Color:  in.color,
		BBox:   box,
		Origin: origin,
	})
}

// sameLine reports whether a glyph origin stays on the current baseline.
func (in *interp) sameLine(dir [2]float64, origin Point, size float64) bool {
	if in.curLine.Dir != dir {
		return false
	}
	// Distance from the line origin along the baseline normal.
	dx := origin.X - in.lineOrig.X
	dy := origin.Y - in.lineOrig.Y
	perp := math.Abs(dx*(-dir[1]) + dy*dir[0])
	return perp < 0.5*size
}

// gap is the distance from a glyph origin to the nearest edge of a box,
// zero when the origin lies inside it.
func gap(box Rect, origin Point) float64 {
	var dx, dy float64
	if origin.X < box.X0 {
		dx = box.X0 - origin.X
	} else if origin.X > box.X1 {
		dx = origin.X - box.X1
	}
	if origin.Y < box.Y0 {
		dy = box.Y0 - origin.Y
	} else if origin.Y > box.Y1 {
		dy = origin.Y - box.Y1
	}
	return math.Hypot(dx, dy)
}

func packRGB(r, g, b float64) int {
	return clamp255(r)<<16 | clamp255(g)<<8 | clamp255(b)
}

func clamp255(v float64) int {
	n := int(v*255 + 0.5)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}

// skipInlineImage advances past a BI .. ID .. EI inline image.
func skipInlineImage(p *Parser, content []byte) {
	idx := bytes.Index(content[p.Pos():], []byte("ID"))
	if idx < 0 {
		p.SetPos(len(content))
		return
	}
	pos := p.Pos() + idx + 2
	for pos < len(content)-1 {
		if isWhitespace(content[pos]) && content[pos+1] == 'E' &&
			pos+2 < len(content) && content[pos+2] == 'I' &&
			(pos+3 >= len(content) || isWhitespace(content[pos+3]) || isDelim(content[pos+3])) {
			p.SetPos(pos + 3)
			return
		}
		pos++
	}
	p.SetPos(len(content))
}
