// Package woff converts sfnt-packaged fonts (TrueType/OpenType) to and
// from the WOFF 1.0 container format used for embedding in CSS.
package woff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	signature      = 0x774F4646 // "wOFF"
	headerSize     = 44
	dirEntrySize   = 20
	sfntHeaderSize = 12
	sfntEntrySize  = 16
	maxFontSize    = 64 * 1024 * 1024
)

type table struct {
	tag      uint32
	checksum uint32
	data     []byte
}

// Encode wraps sfnt font bytes in a WOFF 1.0 container. Tables are
// zlib-compressed individually and stored raw when compression does not
// shrink them.
func Encode(sfnt []byte) ([]byte, error) {
	_, tables, err := parseSfnt(sfnt)
	if err != nil {
		return nil, err
	}

	totalSfntSize := uint32(sfntHeaderSize + sfntEntrySize*len(tables))
	for _, t := range tables {
		totalSfntSize += pad4(uint32(len(t.data)))
	}

	type packed struct {
		table
		comp []byte
	}
	var body []packed
	for _, t := range tables {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		if _, err := zw.Write(t.data); err != nil {
			return nil, fmt.Errorf("compressing table: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compressing table: %w", err)
		}
		comp := zbuf.Bytes()
		if len(comp) >= len(t.data) {
			comp = t.data
		}
		body = append(body, packed{table: t, comp: comp})
	}

	dirSize := uint32(dirEntrySize * len(tables))
	offset := uint32(headerSize) + dirSize
	totalSize := offset
	for _, p := range body {
		totalSize += pad4(uint32(len(p.comp)))
	}

	out := make([]byte, 0, totalSize)
	var hdr [headerSize]byte
	be := binary.BigEndian
	be.PutUint32(hdr[0:], signature)
	copy(hdr[4:8], sfnt[0:4]) // flavor = original sfnt version
	be.PutUint32(hdr[8:], totalSize)
	be.PutUint16(hdr[12:], uint16(len(tables)))
	be.PutUint32(hdr[16:], totalSfntSize)
	be.PutUint16(hdr[20:], 1) // major version
	out = append(out, hdr[:]...)

	for _, p := range body {
		var e [dirEntrySize]byte
		be.PutUint32(e[0:], p.tag)
		be.PutUint32(e[4:], offset)
		be.PutUint32(e[8:], uint32(len(p.comp)))
		be.PutUint32(e[12:], uint32(len(p.data)))
		be.PutUint32(e[16:], p.checksum)
		out = append(out, e[:]...)
		offset += pad4(uint32(len(p.comp)))
	}
	for _, p := range body {
		out = append(out, p.comp...)
		for i := uint32(len(p.comp)); i%4 != 0; i++ {
			out = append(out, 0)
		}
	}
	return out, nil
}

// Decode unpacks a WOFF 1.0 container back into sfnt bytes.
func Decode(data []byte) ([]byte, error) {
	be := binary.BigEndian
	if len(data) < headerSize || be.Uint32(data[0:]) != signature {
		return nil, fmt.Errorf("not a WOFF file")
	}
	flavor := be.Uint32(data[4:])
	numTables := int(be.Uint16(data[12:]))
	if len(data) < headerSize+numTables*dirEntrySize {
		return nil, fmt.Errorf("truncated WOFF directory")
	}

	tables := make([]table, 0, numTables)
	for i := 0; i < numTables; i++ {
		e := data[headerSize+i*dirEntrySize:]
		tag := be.Uint32(e[0:])
		off := be.Uint32(e[4:])
		compLen := be.Uint32(e[8:])
		origLen := be.Uint32(e[12:])
		checksum := be.Uint32(e[16:])
		if origLen > maxFontSize || uint64(off)+uint64(compLen) > uint64(len(data)) {
			return nil, fmt.Errorf("table out of bounds")
		}
		raw := data[off : off+compLen]
		td := raw
		if compLen < origLen {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("decompressing table: %w", err)
			}
			td, err = io.ReadAll(io.LimitReader(zr, int64(origLen)+1))
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("decompressing table: %w", err)
			}
		}
		if uint32(len(td)) != origLen {
			return nil, fmt.Errorf("table length mismatch")
		}
		tables = append(tables, table{tag: tag, checksum: checksum, data: td})
	}

	return buildSfnt(flavor, tables), nil
}

// parseSfnt reads the sfnt table directory.
func parseSfnt(data []byte) (uint32, []table, error) {
	if len(data) < sfntHeaderSize || len(data) > maxFontSize {
		return 0, nil, fmt.Errorf("invalid sfnt data")
	}
	be := binary.BigEndian
	flavor := be.Uint32(data[0:])
	numTables := int(be.Uint16(data[4:]))
	if len(data) < sfntHeaderSize+numTables*sfntEntrySize {
		return 0, nil, fmt.Errorf("truncated sfnt directory")
	}
	tables := make([]table, 0, numTables)
	for i := 0; i < numTables; i++ {
		e := data[sfntHeaderSize+i*sfntEntrySize:]
		tag := be.Uint32(e[0:])
		checksum := be.Uint32(e[4:])
		off := be.Uint32(e[8:])
		length := be.Uint32(e[12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return 0, nil, fmt.Errorf("sfnt table out of bounds")
		}
		tables = append(tables, table{tag: tag, checksum: checksum, data: data[off : off+length]})
	}
	return flavor, tables, nil
}

// buildSfnt reassembles an sfnt file from tables, recomputing the binary
// search header fields.
func buildSfnt(flavor uint32, tables []table) []byte {
	be := binary.BigEndian
	n := len(tables)

	searchRange, entrySelector := 0, 0
	for p := 1; p*2 <= n; p *= 2 {
		searchRange = p * 16
		entrySelector++
	}
	rangeShift := n*16 - searchRange

	size := sfntHeaderSize + sfntEntrySize*n
	for _, t := range tables {
		size += int(pad4(uint32(len(t.data))))
	}
	out := make([]byte, 0, size)

	var hdr [sfntHeaderSize]byte
	be.PutUint32(hdr[0:], flavor)
	be.PutUint16(hdr[4:], uint16(n))
	be.PutUint16(hdr[6:], uint16(searchRange))
	be.PutUint16(hdr[8:], uint16(entrySelector))
	be.PutUint16(hdr[10:], uint16(rangeShift))
	out = append(out, hdr[:]...)

	offset := uint32(sfntHeaderSize + sfntEntrySize*n)
	for _, t := range tables {
		var e [sfntEntrySize]byte
		be.PutUint32(e[0:], t.tag)
		be.PutUint32(e[4:], t.checksum)
		be.PutUint32(e[8:], offset)
		be.PutUint32(e[12:], uint32(len(t.data)))
		out = append(out, e[:]...)
		offset += pad4(uint32(len(t.data)))
	}
	for _, t := range tables {
		out = append(out, t.data...)
		for i := uint32(len(t.data)); i%4 != 0; i++ {
			out = append(out, 0)
		}
	}
	return out
}

func pad4(n uint32) uint32 { return (n + 3) &^ 3 }
