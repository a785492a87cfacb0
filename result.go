package pdfhtml

import (
	"bytes"
	"io"
	"os"
)

// Result holds a generated HTML document and provides helpers for common
// output forms.
//
// A Result is returned by every conversion method. It is safe to call its
// methods multiple times — the underlying data is never modified.
type Result struct {
	data []byte
}

// Bytes returns the raw HTML content.
func (r *Result) Bytes() []byte {
	return r.data
}

// String returns the HTML content as a string.
func (r *Result) String() string {
	return string(r.data)
}

// Reader returns a [*bytes.Reader] over the HTML content, suitable for
// streaming uploads or any API that accepts an [io.Reader].
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full HTML content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the HTML to the file at path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// Len returns the size of the HTML in bytes.
func (r *Result) Len() int {
	return len(r.data)
}
