package pdfhtml

import "errors"

// Sentinel errors returned by the library.
var (
	// ErrNoFontTool is returned when the fontforge executable cannot be
	// found and no explicit path was configured.
	ErrNoFontTool = errors.New("pdfhtml: fontforge executable not found")

	// ErrNoRasterTool is returned when neither mutool nor pdftoppm is
	// available for page rasterization.
	ErrNoRasterTool = errors.New("pdfhtml: no rasterizer found (mutool or pdftoppm)")
)
