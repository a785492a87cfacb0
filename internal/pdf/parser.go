package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

const maxNesting = 100

// Parser is a recursive-descent PDF object parser over a byte slice.
type Parser struct {
	data  []byte
	pos   int
	depth int
}

// NewParser creates a parser for data starting at pos.
func NewParser(data []byte, pos int) *Parser {
	return &Parser{data: data, pos: pos}
}

// Pos returns the current parse position.
func (p *Parser) Pos() int { return p.pos }

// SetPos moves the parse position.
func (p *Parser) SetPos(pos int) { p.pos = pos }

// skipWhitespace skips PDF whitespace and %-comments.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		if !isWhitespace(c) {
			break
		}
		p.pos++
	}
}

// match checks whether the upcoming bytes equal s and advances past them if so.
func (p *Parser) match(s string) bool {
	end := p.pos + len(s)
	if end > len(p.data) {
		return false
	}
	if string(p.data[p.pos:end]) == s {
		p.pos = end
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// ParseObject parses one PDF object at the current position.
func (p *Parser) ParseObject() (*Object, error) {
	if p.depth > maxNesting {
		return nil, fmt.Errorf("exceeded maximum nesting depth")
	}
	p.depth++
	defer func() { p.depth-- }()

	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return &Object{Type: ObjNull}, nil
	}

	c := p.data[p.pos]
	switch {
	case c == 'n' && p.match("null"):
		return &Object{Type: ObjNull}, nil
	case c == 't' && p.match("true"):
		return &Object{Type: ObjBool, Bool: true}, nil
	case c == 'f' && p.match("false"):
		return &Object{Type: ObjBool, Bool: false}, nil
	case c == '(':
		return p.parseString(), nil
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString(), nil
	case c == '/':
		return p.parseName(), nil
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumberOrRef(), nil
	default:
		// Unknown token, skip it.
		return &Object{Type: ObjNull}, nil
	}
}

// parseString parses a literal string (...) including escapes and nesting.
func (p *Parser) parseString() *Object {
	p.pos++ // consume '('
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.data) {
				break
			}
			esc := p.data[p.pos]
			p.pos++
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				// line continuation
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					oct := int(esc - '0')
					for i := 0; i < 2 && p.pos < len(p.data); i++ {
						d := p.data[p.pos]
						if d < '0' || d > '7' {
							break
						}
						oct = oct*8 + int(d-'0')
						p.pos++
					}
					buf.WriteByte(byte(oct))
				} else {
					buf.WriteByte(esc)
				}
			}
		case '(':
			depth++
			buf.WriteByte(c)
			p.pos++
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
			p.pos++
		default:
			buf.WriteByte(c)
			p.pos++
		}
	}
	return &Object{Type: ObjString, Str: buf.Bytes()}
}

// parseHexString parses a hex string <...>.
func (p *Parser) parseHexString() *Object {
	p.pos++ // consume '<'
	var buf bytes.Buffer
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		p.skipWhitespace()
		if p.pos >= len(p.data) || p.data[p.pos] == '>' {
			break
		}
		hi := hexVal(p.data[p.pos])
		p.pos++
		var lo byte
		if p.pos < len(p.data) && p.data[p.pos] != '>' {
			lo = hexVal(p.data[p.pos])
			p.pos++
		}
		buf.WriteByte(hi<<4 | lo)
	}
	if p.pos < len(p.data) {
		p.pos++ // consume '>'
	}
	return &Object{Type: ObjString, Str: buf.Bytes()}
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// parseName parses a PDF name /Foo, decoding #XX escapes.
func (p *Parser) parseName() *Object {
	p.pos++ // consume '/'
	start := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelim(c) {
			break
		}
		p.pos++
	}
	name := string(p.data[start:p.pos])
	if bytes.IndexByte([]byte(name), '#') >= 0 {
		name = decodeNameEscapes(name)
	}
	return &Object{Type: ObjName, Name: name}
}

func decodeNameEscapes(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); {
		if s[i] == '#' && i+2 < len(s) {
			buf.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 3
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	return buf.String()
}

// parseArray parses [...].
func (p *Parser) parseArray() (*Object, error) {
	p.pos++ // consume '['
	var arr []*Object
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.data[p.pos] == ']' {
			p.pos++
			break
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return &Object{Type: ObjArray, Array: arr}, nil
}

// parseDict parses <<...>> and, if followed by the stream keyword, the
// raw stream body as well.
func (p *Parser) parseDict() (*Object, error) {
	p.pos += 2 // consume '<<'
	d := make(Dict)
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			break
		}
		if p.data[p.pos] != '/' {
			// Skip malformed token.
			p.pos++
			continue
		}
		key := p.parseName()
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		d[key.Name] = val
	}

	p.skipWhitespace()
	if !p.match("stream") {
		return &Object{Type: ObjDict, Dict: d}, nil
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}

	streamStart := p.pos
	length := -1
	if lenObj, ok := d["Length"]; ok && lenObj.Type == ObjInt {
		length = int(lenObj.Int)
	}

	var streamData []byte
	if length >= 0 && streamStart+length <= len(p.data) {
		streamData = p.data[streamStart : streamStart+length]
		p.pos = streamStart + length
	} else {
		// Length missing or an unresolved indirect reference: scan for the
		// endstream keyword instead.
		end := bytes.Index(p.data[streamStart:], []byte("endstream"))
		if end < 0 {
			end = len(p.data) - streamStart
		}
		streamData = p.data[streamStart : streamStart+end]
		p.pos = streamStart + end
	}

	p.skipWhitespace()
	p.match("endstream")

	return &Object{Type: ObjStream, Dict: d, Stream: streamData}, nil
}

// parseNumberOrRef parses a number or an indirect reference (N G R).
func (p *Parser) parseNumberOrRef() *Object {
	numStr := p.readToken()
	n, errN := strconv.ParseInt(numStr, 10, 64)

	if errN == nil {
		afterN := p.pos
		p.skipWhitespace()
		genStr := p.readToken()
		if g, err := strconv.ParseInt(genStr, 10, 64); err == nil {
			p.skipWhitespace()
			if p.pos < len(p.data) && p.data[p.pos] == 'R' {
				if p.pos+1 >= len(p.data) || isWhitespace(p.data[p.pos+1]) || isDelim(p.data[p.pos+1]) {
					p.pos++
					return &Object{Type: ObjRef, Ref: Reference{Number: int(n), Gen: int(g)}}
				}
			}
		}
		p.pos = afterN
		return &Object{Type: ObjInt, Int: n}
	}

	if f, err := strconv.ParseFloat(numStr, 64); err == nil {
		return &Object{Type: ObjFloat, Float: f}
	}
	return &Object{Type: ObjNull}
}

// readToken reads a run of non-whitespace, non-delimiter bytes.
func (p *Parser) readToken() string {
	start := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelim(c) {
			break
		}
		p.pos++
	}
	return string(p.data[start:p.pos])
}
