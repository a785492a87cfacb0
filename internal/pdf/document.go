package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrEncrypted is returned when the document carries an /Encrypt dictionary.
var ErrEncrypted = errors.New("pdf: encrypted documents are not supported")

// xrefEntry describes one entry in the cross-reference table.
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	// For objects stored inside object streams (PDF 1.5+)
	Compressed  bool
	StreamObjID int
	IndexInStrm int
}

// Document represents a loaded PDF file.
type Document struct {
	data      []byte
	xref      map[int]xrefEntry
	trailer   Dict
	cache     map[int]*Object // resolved indirect objects
	startXRef int64           // offset of the newest xref section
	pages     []*Page
}

// Open reads and parses a PDF file from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Load(data)
}

// Load parses a PDF from raw bytes.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF file")
	}
	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]*Object),
	}
	if err := doc.loadXRef(); err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	if _, ok := doc.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}
	if err := doc.loadPages(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Bytes returns the raw bytes the document was loaded from.
func (doc *Document) Bytes() []byte { return doc.data }

// Version returns the PDF version string from the header (e.g. "1.7").
func (doc *Document) Version() string {
	if len(doc.data) < 8 {
		return "?"
	}
	end := bytes.IndexByte(doc.data[5:20], '\n')
	if end < 0 {
		end = 5
	}
	return strings.TrimRight(string(doc.data[5:5+end]), "\r\n ")
}

func (doc *Document) loadXRef() error {
	offset, err := doc.findStartXRef()
	if err != nil {
		return err
	}
	doc.startXRef = offset
	return doc.loadXRefAt(offset, make(map[int64]bool))
}

// findStartXRef scans backward for "startxref" and reads the offset after it.
func (doc *Document) findStartXRef() (int64, error) {
	searchFrom := len(doc.data) - 1024
	if searchFrom < 0 {
		searchFrom = 0
	}
	idx := bytes.LastIndex(doc.data[searchFrom:], []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	pos := searchFrom + idx + len("startxref")
	for pos < len(doc.data) && isWhitespace(doc.data[pos]) {
		pos++
	}
	end := pos
	for end < len(doc.data) && doc.data[end] >= '0' && doc.data[end] <= '9' {
		end++
	}
	if end == pos {
		return 0, fmt.Errorf("invalid startxref value")
	}
	return strconv.ParseInt(string(doc.data[pos:end]), 10, 64)
}

// loadXRefAt loads the xref section (table or stream) at a byte offset,
// following /Prev chains. seen holds section offsets already loaded, so a
// malformed /Prev cycle fails instead of recursing.
func (doc *Document) loadXRefAt(offset int64, seen map[int64]bool) error {
	if offset < 0 || int(offset) >= len(doc.data) {
		return fmt.Errorf("xref offset out of bounds: %d", offset)
	}
	if seen[offset] {
		return fmt.Errorf("xref /Prev cycle at offset %d", offset)
	}
	seen[offset] = true

	p := NewParser(doc.data, int(offset))
	p.skipWhitespace()

	if p.match("xref") {
		return doc.parseXRefTable(p, seen)
	}
	return doc.parseXRefStream(p, seen)
}

// parseXRefTable parses the classic xref keyword, subsections and trailer.
func (doc *Document) parseXRefTable(p *Parser, seen map[int64]bool) error {
	for {
		p.skipWhitespace()
		if p.Pos() >= len(doc.data) {
			break
		}
		if bytes.HasPrefix(doc.data[p.Pos():], []byte("trailer")) {
			p.SetPos(p.Pos() + len("trailer"))
			break
		}
		firstStr := p.readToken()
		p.skipWhitespace()
		countStr := p.readToken()
		first, err1 := strconv.Atoi(firstStr)
		count, err2 := strconv.Atoi(countStr)
		if err1 != nil || err2 != nil {
			break
		}
		p.skipWhitespace()
		// Each entry is exactly 20 bytes: "nnnnnnnnnn ggggg n/f\r\n".
		for i := 0; i < count; i++ {
			id := first + i
			if p.Pos()+20 > len(doc.data) {
				break
			}
			entry := string(doc.data[p.Pos() : p.Pos()+20])
			p.SetPos(p.Pos() + 20)
			if len(entry) < 18 {
				continue
			}
			off, _ := strconv.ParseInt(strings.TrimSpace(entry[:10]), 10, 64)
			gen, _ := strconv.Atoi(strings.TrimSpace(entry[11:16]))
			if _, exists := doc.xref[id]; !exists {
				doc.xref[id] = xrefEntry{Offset: off, Generation: gen, InUse: entry[17] == 'n'}
			}
		}
	}

	p.skipWhitespace()
	trailerObj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing trailer: %w", err)
	}
	if trailerObj.Type != ObjDict {
		return nil
	}
	if doc.trailer == nil {
		doc.trailer = trailerObj.Dict
	}

	// Prev belongs to the trailer of this section, not the newest one.
	if prev, ok := trailerObj.Dict.GetInt("Prev"); ok && prev > 0 {
		return doc.loadXRefAt(prev, seen)
	}
	return nil
}

// parseXRefStream handles a cross-reference stream object (PDF 1.5+).
func (doc *Document) parseXRefStream(p *Parser, seen map[int64]bool) error {
	p.readToken() // object number
	p.skipWhitespace()
	p.readToken() // generation
	p.skipWhitespace()
	p.match("obj")
	p.skipWhitespace()

	obj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing xref stream object: %w", err)
	}
	if obj.Type != ObjStream {
		return fmt.Errorf("xref at offset is not a stream")
	}
	if doc.trailer == nil {
		doc.trailer = obj.Dict
	}

	streamData, err := DecodeStream(obj.Dict, obj.Stream)
	if err != nil {
		return fmt.Errorf("decoding xref stream: %w", err)
	}

	w, _ := obj.Dict.GetArray("W")
	if len(w) < 3 {
		return fmt.Errorf("xref stream missing /W")
	}
	w1, w2, w3 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	entrySize := w1 + w2 + w3
	if entrySize == 0 {
		return fmt.Errorf("xref stream zero entry size")
	}

	size, _ := obj.Dict.GetInt("Size")
	var subsections [][2]int
	if indexArr, ok := obj.Dict.GetArray("Index"); ok {
		for i := 0; i+1 < len(indexArr); i += 2 {
			subsections = append(subsections, [2]int{int(indexArr[i].Int), int(indexArr[i+1].Int)})
		}
	} else {
		subsections = [][2]int{{0, int(size)}}
	}

	offset := 0
	for _, sub := range subsections {
		first, count := sub[0], sub[1]
		for i := 0; i < count; i++ {
			if offset+entrySize > len(streamData) {
				break
			}
			id := first + i
			t := readBigEndian(streamData[offset:], w1)
			f2 := readBigEndian(streamData[offset+w1:], w2)
			f3 := readBigEndian(streamData[offset+w1+w2:], w3)
			offset += entrySize

			if _, exists := doc.xref[id]; exists {
				continue
			}
			switch t {
			case 0:
				doc.xref[id] = xrefEntry{Generation: f3}
			case 1:
				doc.xref[id] = xrefEntry{Offset: int64(f2), Generation: f3, InUse: true}
			case 2:
				doc.xref[id] = xrefEntry{Compressed: true, StreamObjID: f2, IndexInStrm: f3, InUse: true}
			}
		}
	}

	if prev, ok := obj.Dict.GetInt("Prev"); ok && prev > 0 {
		return doc.loadXRefAt(prev, seen)
	}
	return nil
}

func readBigEndian(data []byte, n int) int {
	v := 0
	for i := 0; i < n && i < len(data); i++ {
		v = v<<8 | int(data[i])
	}
	return v
}

// maxObjectNumber returns the highest object number the xref knows about.
func (doc *Document) maxObjectNumber() int {
	max := 0
	for id := range doc.xref {
		if id > max {
			max = id
		}
	}
	return max
}

// ResolveRef follows an indirect reference and returns the pointed-to object.
// Broken references resolve to null rather than failing the document.
func (doc *Document) ResolveRef(ref Reference) *Object {
	if obj, ok := doc.cache[ref.Number]; ok {
		return obj
	}
	entry, ok := doc.xref[ref.Number]
	if !ok || !entry.InUse {
		return &Object{Type: ObjNull}
	}

	var obj *Object
	var err error
	if entry.Compressed {
		obj, err = doc.resolveCompressed(ref.Number, entry)
	} else {
		obj, err = doc.resolveAtOffset(entry.Offset)
	}
	if err != nil {
		return &Object{Type: ObjNull}
	}
	doc.cache[ref.Number] = obj
	return obj
}

// resolveAtOffset parses "N G obj ... endobj" at the given byte offset.
func (doc *Document) resolveAtOffset(offset int64) (*Object, error) {
	if offset < 0 || int(offset) >= len(doc.data) {
		return nil, fmt.Errorf("object offset %d out of bounds", offset)
	}
	p := NewParser(doc.data, int(offset))
	p.readToken() // object number
	p.skipWhitespace()
	p.readToken() // generation
	p.skipWhitespace()
	if !p.match("obj") {
		return nil, fmt.Errorf("expected 'obj' at offset %d", offset)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, err
	}

	// A stream /Length held behind an indirect reference: resolve it and
	// re-parse so the stream body has the right extent.
	if obj.Type == ObjStream {
		if lenRef, ok := obj.Dict["Length"]; ok && lenRef.Type == ObjRef {
			lenObj := doc.ResolveRef(lenRef.Ref)
			if lenObj != nil && lenObj.Type == ObjInt {
				obj.Dict["Length"] = lenObj
				p2 := NewParser(doc.data, int(offset))
				p2.readToken()
				p2.skipWhitespace()
				p2.readToken()
				p2.skipWhitespace()
				p2.match("obj")
				return p2.ParseObject()
			}
		}
	}
	return obj, nil
}

// resolveCompressed reads an object stored inside an object stream.
func (doc *Document) resolveCompressed(num int, entry xrefEntry) (*Object, error) {
	strmObj := doc.ResolveRef(Reference{Number: entry.StreamObjID})
	if strmObj.Type != ObjStream {
		return nil, fmt.Errorf("compressed object container is not a stream")
	}

	data, err := DecodeStream(strmObj.Dict, strmObj.Stream)
	if err != nil {
		return nil, err
	}

	n, _ := strmObj.Dict.GetInt("N")
	first, _ := strmObj.Dict.GetInt("First")

	p := NewParser(data, 0)
	offsets := make(map[int]int)
	for i := 0; i < int(n); i++ {
		p.skipWhitespace()
		idStr := p.readToken()
		p.skipWhitespace()
		offStr := p.readToken()
		id, _ := strconv.Atoi(idStr)
		off, _ := strconv.Atoi(offStr)
		offsets[id] = off
	}

	off, ok := offsets[num]
	if !ok {
		off = entry.IndexInStrm
	}
	objPos := int(first) + off
	if objPos > len(data) {
		objPos = int(first) + entry.IndexInStrm
	}
	p2 := NewParser(data, objPos)
	return p2.ParseObject()
}

// Resolve returns the object itself, following an indirect reference if needed.
func (doc *Document) Resolve(obj *Object) *Object {
	if obj == nil {
		return &Object{Type: ObjNull}
	}
	if obj.Type != ObjRef {
		return obj
	}
	return doc.ResolveRef(obj.Ref)
}

// catalog returns the document catalog dictionary.
func (doc *Document) catalog() (Dict, error) {
	rootRef, ok := doc.trailer["Root"]
	if !ok {
		return nil, fmt.Errorf("no /Root in trailer")
	}
	root := doc.Resolve(rootRef)
	if root.Type != ObjDict {
		return nil, fmt.Errorf("root is not a dict")
	}
	return root.Dict, nil
}

// Page is one page of a loaded document. Inheritable attributes
// (/Resources, /MediaBox, /Rotate) are resolved at load time.
type Page struct {
	doc       *Document
	objNum    int // object number of the page dict, needed by the strip pass
	dict      Dict
	resources Dict
	// MediaBox origin, subtracted when flipping to top-left coordinates.
	originX float64
	originY float64

	Index  int
	Width  float64 // MediaBox width in points
	Height float64 // MediaBox height in points
}

// Pages returns the document's pages in order.
func (doc *Document) Pages() []*Page { return doc.pages }

// loadPages walks the page tree collecting leaf pages with inherited
// attributes applied.
func (doc *Document) loadPages() error {
	cat, err := doc.catalog()
	if err != nil {
		return err
	}
	pagesRef, ok := cat["Pages"]
	if !ok {
		return fmt.Errorf("no /Pages in catalog")
	}
	root := doc.Resolve(pagesRef)
	if root.Type != ObjDict && root.Type != ObjStream {
		return fmt.Errorf("page tree root is not a dict")
	}
	rootNum := 0
	if pagesRef.Type == ObjRef {
		rootNum = pagesRef.Ref.Number
	}
	seen := make(map[int]bool)
	doc.collectPages(root.Dict, rootNum, inherited{}, seen)
	for i, pg := range doc.pages {
		pg.Index = i
	}
	if len(doc.pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// inherited carries attributes pushed down the page tree.
type inherited struct {
	resources Dict
	mediaBox  []*Object
}

func (doc *Document) collectPages(node Dict, objNum int, inh inherited, seen map[int]bool) {
	if objNum != 0 {
		if seen[objNum] {
			return
		}
		seen[objNum] = true
	}

	if res, ok := node.GetDict("Resources"); ok {
		inh.resources = res
	} else if resRef, ok := node["Resources"]; ok {
		if r := doc.Resolve(resRef); r.Type == ObjDict {
			inh.resources = r.Dict
		}
	}
	if mb, ok := node["MediaBox"]; ok {
		if m := doc.Resolve(mb); m.Type == ObjArray && len(m.Array) >= 4 {
			inh.mediaBox = m.Array
		}
	}

	typ, _ := node.GetName("Type")
	if typ == "Page" {
		pg := &Page{doc: doc, objNum: objNum, dict: node, resources: inh.resources}
		if len(inh.mediaBox) >= 4 {
			x0 := doc.Resolve(inh.mediaBox[0]).Float64()
			y0 := doc.Resolve(inh.mediaBox[1]).Float64()
			x1 := doc.Resolve(inh.mediaBox[2]).Float64()
			y1 := doc.Resolve(inh.mediaBox[3]).Float64()
			pg.originX = x0
			pg.originY = y0
			pg.Width = x1 - x0
			pg.Height = y1 - y0
		}
		doc.pages = append(doc.pages, pg)
		return
	}

	kidsObj, ok := node["Kids"]
	if !ok {
		return
	}
	kids := doc.Resolve(kidsObj)
	if kids.Type != ObjArray {
		return
	}
	for _, kidRef := range kids.Array {
		kid := doc.Resolve(kidRef)
		if kid == nil || (kid.Type != ObjDict && kid.Type != ObjStream) {
			continue
		}
		num := 0
		if kidRef.Type == ObjRef {
			num = kidRef.Ref.Number
		}
		doc.collectPages(kid.Dict, num, inh, seen)
	}
}

// contentStreams returns the combined decoded content stream for the page.
func (p *Page) contentStreams() ([]byte, error) {
	contentsObj, ok := p.dict["Contents"]
	if !ok {
		return nil, nil
	}
	contents := p.doc.Resolve(contentsObj)

	var result []byte
	streams := []*Object{contents}
	if contents.Type == ObjArray {
		streams = contents.Array
	}
	for _, s := range streams {
		resolved := p.doc.Resolve(s)
		if resolved.Type != ObjStream {
			continue
		}
		data, err := DecodeStream(resolved.Dict, resolved.Stream)
		if err != nil {
			continue
		}
		result = append(result, data...)
		result = append(result, ' ')
	}
	return result, nil
}

// FontRef identifies one font as used by a page: the document-internal
// object number and the base font name declared on it (subset prefix
// included when present).
type FontRef struct {
	Xref int
	Name string
}

// FontTable lists the page's font resources in resource-name order, which
// keeps document-wide resolution deterministic.
func (p *Page) FontTable() []FontRef {
	fontDict := p.fontResourceDict()
	if fontDict == nil {
		return nil
	}
	names := make([]string, 0, len(fontDict))
	for name := range fontDict {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]FontRef, 0, len(names))
	for _, name := range names {
		ref := fontDict[name]
		xref := 0
		if ref.Type == ObjRef {
			xref = ref.Ref.Number
		}
		obj := p.doc.Resolve(ref)
		if obj.Type != ObjDict && obj.Type != ObjStream {
			continue
		}
		base, _ := obj.Dict.GetName("BaseFont")
		if base == "" {
			base = name
		}
		refs = append(refs, FontRef{Xref: xref, Name: base})
	}
	return refs
}

func (p *Page) fontResourceDict() Dict {
	if p.resources == nil {
		return nil
	}
	fObj, ok := p.resources["Font"]
	if !ok {
		return nil
	}
	f := p.doc.Resolve(fObj)
	if f.Type != ObjDict && f.Type != ObjStream {
		return nil
	}
	return f.Dict
}
