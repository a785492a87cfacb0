package woff

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildSampleSfnt assembles a tiny but structurally valid sfnt file.
func buildSampleSfnt() []byte {
	tables := []table{
		{tag: tagOf("cmap"), checksum: 0x11111111, data: bytes.Repeat([]byte{0xAB}, 37)},
		{tag: tagOf("glyf"), checksum: 0x22222222, data: bytes.Repeat([]byte("glyphdata"), 100)},
		{tag: tagOf("head"), checksum: 0x33333333, data: []byte{0, 1, 0, 0, 0xDE, 0xAD}},
	}
	return buildSfnt(0x00010000, tables)
}

func tagOf(s string) uint32 {
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}

func TestEncodeHeader(t *testing.T) {
	sfnt := buildSampleSfnt()
	out, err := Encode(sfnt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	be := binary.BigEndian
	if got := be.Uint32(out[0:]); got != signature {
		t.Errorf("signature = %#x", got)
	}
	if got := be.Uint32(out[4:]); got != 0x00010000 {
		t.Errorf("flavor = %#x, want 0x00010000", got)
	}
	if got := be.Uint32(out[8:]); got != uint32(len(out)) {
		t.Errorf("length field = %d, file is %d bytes", got, len(out))
	}
	if got := be.Uint16(out[12:]); got != 3 {
		t.Errorf("numTables = %d, want 3", got)
	}
	if got := be.Uint32(out[16:]); got != uint32(len(sfnt)) {
		t.Errorf("totalSfntSize = %d, want %d", got, len(sfnt))
	}
}

func TestRoundTrip(t *testing.T) {
	sfnt := buildSampleSfnt()

	woff, err := Encode(sfnt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(woff)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(sfnt, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRejectsGarbage(t *testing.T) {
	if _, err := Encode([]byte("not a font")); err == nil {
		t.Error("expected error for short input")
	}
	// Claims 100 tables but carries none.
	bad := make([]byte, sfntHeaderSize)
	binary.BigEndian.PutUint16(bad[4:], 100)
	if _, err := Encode(bad); err == nil {
		t.Error("expected error for truncated directory")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("wOFFbut too short")); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := Decode(bytes.Repeat([]byte{0}, 64)); err == nil {
		t.Error("expected error for wrong signature")
	}
}

func TestIncompressibleTableStoredRaw(t *testing.T) {
	// A 4-byte random-ish table cannot shrink under zlib, so Encode must
	// store it raw (compLength == origLength) and Decode must accept it.
	tables := []table{{tag: tagOf("name"), checksum: 1, data: []byte{0x01, 0xFF, 0x33, 0x77}}}
	sfnt := buildSfnt(0x00010000, tables)

	woff, err := Encode(sfnt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	be := binary.BigEndian
	compLen := be.Uint32(woff[headerSize+8:])
	origLen := be.Uint32(woff[headerSize+12:])
	if compLen != origLen {
		t.Errorf("compLength = %d, origLength = %d, expected raw storage", compLen, origLen)
	}

	back, err := Decode(woff)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(back, sfnt) {
		t.Error("raw-stored table did not round trip")
	}
}
