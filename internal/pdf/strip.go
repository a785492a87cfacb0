package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// StripTextLayer returns a copy of the document with every BT..ET section
// removed from the page content, leaving graphics and images in place. The
// copy is written as an incremental update appended to the original bytes,
// so the loaded document itself is never modified.
func (doc *Document) StripTextLayer() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(doc.data)
	if n := len(doc.data); n > 0 && doc.data[n-1] != '\n' && doc.data[n-1] != '\r' {
		buf.WriteByte('\n')
	}

	nextNum := doc.maxObjectNumber() + 1
	offsets := make(map[int]int64)
	strippedForms := make(map[int]bool)

	for _, page := range doc.pages {
		content, err := page.contentStreams()
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", page.Index, err)
		}
		stripped := stripTextOps(content)
		doc.stripFormXObjects(&buf, page.resources, offsets, strippedForms)

		streamNum := nextNum
		nextNum++
		offsets[streamNum] = int64(buf.Len())
		writeStreamObject(&buf, streamNum, stripped)

		// Rewrite the page dict at its original object number so the
		// update shadows it.
		if page.objNum == 0 {
			continue
		}
		nd := make(Dict, len(page.dict)+1)
		for k, v := range page.dict {
			nd[k] = v
		}
		nd["Contents"] = &Object{Type: ObjRef, Ref: Reference{Number: streamNum}}
		offsets[page.objNum] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n", page.objNum)
		writeObject(&buf, &Object{Type: ObjDict, Dict: nd})
		buf.WriteString("\nendobj\n")
	}

	xrefPos := int64(buf.Len())
	writeXRefTable(&buf, offsets)

	trailer := Dict{
		"Size": {Type: ObjInt, Int: int64(nextNum)},
		"Prev": {Type: ObjInt, Int: doc.startXRef},
	}
	if root, ok := doc.trailer["Root"]; ok {
		trailer["Root"] = root
	}
	if info, ok := doc.trailer["Info"]; ok {
		trailer["Info"] = info
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, &Object{Type: ObjDict, Dict: trailer})
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	return buf.Bytes(), nil
}

// stripFormXObjects rewrites every Form XObject reachable from res at its
// original object number with the text operators removed, recursing into
// nested form resources. Text shown through Do would otherwise survive into
// the rasterized background. done guards shared and self-referential forms.
func (doc *Document) stripFormXObjects(buf *bytes.Buffer, res Dict, offsets map[int]int64, done map[int]bool) {
	if res == nil {
		return
	}
	xObj, ok := res["XObject"]
	if !ok {
		return
	}
	x := doc.Resolve(xObj)
	if x.Type != ObjDict && x.Type != ObjStream {
		return
	}

	names := make([]string, 0, len(x.Dict))
	for name := range x.Dict {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := x.Dict[name]
		if ref.Type != ObjRef || done[ref.Ref.Number] {
			continue
		}
		done[ref.Ref.Number] = true

		form := doc.ResolveRef(ref.Ref)
		if form.Type != ObjStream {
			continue
		}
		if sub, _ := form.Dict.GetName("Subtype"); sub != "Form" {
			continue
		}
		data, err := DecodeStream(form.Dict, form.Stream)
		if err != nil {
			continue
		}

		// The rewritten stream is uncompressed, so the filter entries of
		// the original dict must not carry over.
		nd := make(Dict, len(form.Dict))
		for k, v := range form.Dict {
			switch k {
			case "Filter", "DecodeParms", "Length":
			default:
				nd[k] = v
			}
		}
		stripped := stripTextOps(data)
		nd["Length"] = &Object{Type: ObjInt, Int: int64(len(stripped))}

		offsets[ref.Ref.Number] = int64(buf.Len())
		fmt.Fprintf(buf, "%d 0 obj\n", ref.Ref.Number)
		writeObject(buf, &Object{Type: ObjStream, Dict: nd, Stream: stripped})
		buf.WriteString("\nendobj\n")

		if formRes, ok := form.Dict["Resources"]; ok {
			if r := doc.Resolve(formRes); r.Type == ObjDict || r.Type == ObjStream {
				doc.stripFormXObjects(buf, r.Dict, offsets, done)
			}
		}
	}
}

// stripTextOps removes BT..ET sections from a decoded content stream.
func stripTextOps(content []byte) []byte {
	var out bytes.Buffer
	p := NewParser(content, 0)
	segStart := 0
	inText := false

	for {
		p.skipWhitespace()
		if p.Pos() >= len(content) {
			break
		}
		c := content[p.Pos()]
		if c == '/' || c == '(' || c == '<' || c == '[' ||
			c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			if _, err := p.ParseObject(); err != nil {
				break
			}
			continue
		}
		if isDelim(c) {
			p.SetPos(p.Pos() + 1)
			continue
		}

		tokStart := p.Pos()
		op := p.readToken()
		if op == "" {
			p.SetPos(p.Pos() + 1)
			continue
		}
		switch op {
		case "BI":
			skipInlineImage(p, content)
		case "BT":
			if !inText {
				out.Write(content[segStart:tokStart])
				inText = true
			}
		case "ET":
			if inText {
				segStart = p.Pos()
				inText = false
			}
		}
	}
	if !inText && segStart < len(content) {
		out.Write(content[segStart:])
	}
	return out.Bytes()
}

func writeStreamObject(buf *bytes.Buffer, num int, data []byte) {
	fmt.Fprintf(buf, "%d 0 obj\n<< /Length %d >>\nstream\n", num, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream\nendobj\n")
}

// writeXRefTable writes a classic xref section with one subsection per
// consecutive run of object numbers.
func writeXRefTable(buf *bytes.Buffer, offsets map[int]int64) {
	nums := make([]int, 0, len(offsets))
	for n := range offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	buf.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", nums[i], j-i+1)
		for _, n := range nums[i : j+1] {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[n], 0)
		}
		i = j + 1
	}
}

// writeObject serializes an object in PDF syntax.
func writeObject(buf *bytes.Buffer, obj *Object) {
	if obj == nil {
		buf.WriteString("null")
		return
	}
	switch obj.Type {
	case ObjNull:
		buf.WriteString("null")
	case ObjBool:
		if obj.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case ObjInt:
		buf.WriteString(strconv.FormatInt(obj.Int, 10))
	case ObjFloat:
		buf.WriteString(strconv.FormatFloat(obj.Float, 'f', -1, 64))
	case ObjString:
		writeLiteralString(buf, obj.Str)
	case ObjName:
		writeName(buf, obj.Name)
	case ObjArray:
		buf.WriteByte('[')
		for i, el := range obj.Array {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, el)
		}
		buf.WriteByte(']')
	case ObjDict, ObjStream:
		buf.WriteString("<< ")
		keys := make([]string, 0, len(obj.Dict))
		for k := range obj.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeName(buf, k)
			buf.WriteByte(' ')
			writeObject(buf, obj.Dict[k])
			buf.WriteByte(' ')
		}
		buf.WriteString(">>")
		if obj.Type == ObjStream {
			buf.WriteString("\nstream\n")
			buf.Write(obj.Stream)
			buf.WriteString("\nendstream")
		}
	case ObjRef:
		fmt.Fprintf(buf, "%d %d R", obj.Ref.Number, obj.Ref.Gen)
	}
}

func writeLiteralString(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b == '#' || b <= ' ' || b > '~' || isDelim(b) {
			fmt.Fprintf(buf, "#%02X", b)
			continue
		}
		buf.WriteByte(b)
	}
}
