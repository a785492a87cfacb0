// Package pdfhtml converts PDF documents into single self-contained HTML
// files. Each page becomes a rasterized background image with the original
// text layer re-overlaid as absolutely positioned, selectable spans styled
// with the document's own embedded fonts.
//
// # Converting
//
// For one-off conversions use the package-level helpers:
//
//	res, err := pdfhtml.ConvertFile(ctx, "report.pdf")
//
// For repeated conversions create a [Converter], which locates the external
// tools once:
//
//	c, err := pdfhtml.NewConverter(pdfhtml.WithScale(2.0))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := c.Convert(ctx, pdfBytes, "report")
//	res, err  = c.ConvertFile(ctx, "report.pdf")
//
// A [Result] gives flexible access to the generated HTML:
//
//	res.Bytes()                        // []byte
//	res.String()                       // string
//	res.Reader()                       // *bytes.Reader
//	res.WriteToFile("out.html", 0o644) // write to disk
//
// # How it works
//
// Fonts are extracted once per document: FontForge decomposes every
// embedded font into a standalone file, each file is matched back to the
// document's font table, converted to WOFF and inlined as a data URI.
// Fonts that cannot be extracted degrade to a system family; the
// letter-spacing of every text run is corrected against measured widths so
// the layout survives the substitution.
//
// Page backgrounds are rendered from a text-stripped copy of the document,
// so the raster carries the graphics while the HTML text layer stays
// selectable on top of them.
//
// # External tools
//
// FontForge must be installed for font extraction, and either mutool
// (MuPDF) or pdftoppm (Poppler) for page rasterization. [NewConverter]
// returns [ErrNoFontTool] or [ErrNoRasterTool] when they are missing.
package pdfhtml
