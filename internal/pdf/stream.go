package pdf

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// maxDecodedSize caps stream expansion to guard against decompression bombs.
const maxDecodedSize = 256 * 1024 * 1024

// DecodeStream decodes a PDF stream given its dictionary and raw bytes,
// applying the full filter chain in order.
func DecodeStream(dict Dict, data []byte) ([]byte, error) {
	filterObj, ok := dict["Filter"]
	if !ok {
		return data, nil
	}

	var filters []string
	var params []Dict

	switch filterObj.Type {
	case ObjName:
		filters = []string{filterObj.Name}
		if pObj, ok := dict["DecodeParms"]; ok && pObj.Type == ObjDict {
			params = []Dict{pObj.Dict}
		} else {
			params = []Dict{nil}
		}
	case ObjArray:
		for _, f := range filterObj.Array {
			if f.Type == ObjName {
				filters = append(filters, f.Name)
			}
		}
		if pArr, ok := dict["DecodeParms"]; ok && pArr.Type == ObjArray {
			for _, p := range pArr.Array {
				if p != nil && p.Type == ObjDict {
					params = append(params, p.Dict)
				} else {
					params = append(params, nil)
				}
			}
		}
		for len(params) < len(filters) {
			params = append(params, nil)
		}
	default:
		return data, nil
	}

	current := data
	for i, filter := range filters {
		var parms Dict
		if i < len(params) {
			parms = params[i]
		}
		var err error
		current, err = applyFilter(filter, parms, current)
		if err != nil {
			return nil, fmt.Errorf("applying filter %s: %w", filter, err)
		}
	}
	return current, nil
}

func applyFilter(filter string, parms Dict, data []byte) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		return flateDecode(parms, data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "LZWDecode", "LZW":
		return lzwDecode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	case "DCTDecode", "DCT", "CCITTFaxDecode", "CCF", "JBIG2Decode", "JPXDecode":
		// Image codecs: the raster pass never goes through here, leave as-is.
		return data, nil
	case "Crypt":
		return data, nil
	default:
		return data, fmt.Errorf("unsupported filter: %s", filter)
	}
}

// flateDecode decompresses zlib data and undoes any declared predictor.
func flateDecode(parms Dict, data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()

	result, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	if len(result) > maxDecodedSize {
		return nil, fmt.Errorf("decoded size exceeds %d byte limit", maxDecodedSize)
	}

	if parms == nil {
		return result, nil
	}
	predictor, ok := parms.GetInt("Predictor")
	if !ok || predictor == 1 {
		return result, nil
	}
	if predictor == 2 {
		return undoTIFFPredictor(parms, result), nil
	}
	if predictor >= 10 && predictor <= 15 {
		return undoPNGPredictor(parms, result), nil
	}
	return result, nil
}

func predictorRowBytes(parms Dict) int {
	colors, _ := parms.GetInt("Colors")
	bpc, _ := parms.GetInt("BitsPerComponent")
	columns, _ := parms.GetInt("Columns")
	if colors == 0 {
		colors = 1
	}
	if bpc == 0 {
		bpc = 8
	}
	if columns == 0 {
		columns = 1
	}
	return int((columns*colors*bpc + 7) / 8)
}

func undoTIFFPredictor(parms Dict, data []byte) []byte {
	rowBytes := predictorRowBytes(parms)
	if rowBytes == 0 {
		return data
	}
	// The delta runs per component: each byte adds the byte one full pixel
	// back, not its immediate neighbor.
	colors, _ := parms.GetInt("Colors")
	bpc, _ := parms.GetInt("BitsPerComponent")
	if colors == 0 {
		colors = 1
	}
	if bpc == 0 {
		bpc = 8
	}
	pixelBytes := int(colors*bpc) / 8
	if pixelBytes == 0 {
		pixelBytes = 1
	}

	result := make([]byte, len(data))
	for row := 0; row*rowBytes < len(data); row++ {
		start := row * rowBytes
		end := start + rowBytes
		if end > len(data) {
			end = len(data)
		}
		copy(result[start:end], data[start:end])
		for i := start + pixelBytes; i < end; i++ {
			result[i] += result[i-pixelBytes]
		}
	}
	return result
}

func undoPNGPredictor(parms Dict, data []byte) []byte {
	rowBytes := predictorRowBytes(parms)
	stride := rowBytes + 1 // +1 for the per-row filter byte
	if len(data) == 0 || stride <= 1 {
		return data
	}

	numRows := len(data) / stride
	result := make([]byte, numRows*rowBytes)
	prev := make([]byte, rowBytes)

	for row := 0; row < numRows; row++ {
		srcRow := data[row*stride : (row+1)*stride]
		filterType := srcRow[0]
		src := srcRow[1:]
		dst := result[row*rowBytes : (row+1)*rowBytes]

		switch filterType {
		case 0: // None
			copy(dst, src)
		case 1: // Sub
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + a
			}
		case 2: // Up
			for i := range dst {
				dst[i] = src[i] + prev[i]
			}
		case 3: // Average
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + byte((int(a)+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := range dst {
				var a, c byte
				if i > 0 {
					a = dst[i-1]
					c = prev[i-1]
				}
				dst[i] = src[i] + paeth(a, prev[i], c)
			}
		default:
			copy(dst, src)
		}
		copy(prev, dst)
	}
	return result
}

func paeth(a, b, c byte) byte {
	ia, ib, ic := int(a), int(b), int(c)
	p := ia + ib - ic
	pa, pb, pc := iabs(p-ia), iabs(p-ib), iabs(p-ic)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func ascii85Decode(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end+2]
	}
	dec := ascii85.NewDecoder(bytes.NewReader(data))
	result, err := io.ReadAll(io.LimitReader(dec, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return result, nil
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	i := 0
	for i < len(data) {
		for i < len(data) && isWhitespace(data[i]) {
			i++
		}
		if i >= len(data) || data[i] == '>' {
			break
		}
		hi := hexVal(data[i])
		i++
		for i < len(data) && isWhitespace(data[i]) {
			i++
		}
		var lo byte
		if i < len(data) && data[i] != '>' {
			lo = hexVal(data[i])
			i++
		}
		buf.WriteByte(hi<<4 | lo)
	}
	return buf.Bytes(), nil
}

// lzwDecode decompresses LZW data. PDF uses MSB-first order with litWidth 8.
func lzwDecode(data []byte) ([]byte, error) {
	r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	defer r.Close()
	result, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return result, nil
}

// runLengthDecode expands PackBits-style run-length data.
func runLengthDecode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	i := 0
	for i < len(data) {
		length := int(data[i])
		i++
		switch {
		case length == 128: // EOD
			return buf.Bytes(), nil
		case length < 128:
			count := length + 1
			if i+count > len(data) {
				count = len(data) - i
			}
			buf.Write(data[i : i+count])
			i += count
		default:
			count := 257 - length
			if i >= len(data) {
				return buf.Bytes(), nil
			}
			b := data[i]
			i++
			for j := 0; j < count; j++ {
				buf.WriteByte(b)
			}
		}
		if buf.Len() > maxDecodedSize {
			return nil, fmt.Errorf("decoded size exceeds %d byte limit", maxDecodedSize)
		}
	}
	return buf.Bytes(), nil
}
