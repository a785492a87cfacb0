package pdfhtml

import (
	"encoding/base64"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/porticus-lab/go-pdf-html/internal/fontkit"
)

// assembleHTML builds the final self-contained document: inline font CSS,
// then one page div per page with the raster background and the positioned
// text layer on top.
func assembleHTML(pages []Page, fonts map[int]*ResolvedFont, title string) []byte {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString(`</title>
    <style>
        body {
            margin: 0;
            padding: 20px;
            background-color: #f0f0f0;
        }
        .page {
            position: relative;
            margin: 20px auto;
            box-shadow: 0 4px 8px rgba(0,0,0,0.1);
            page-break-after: always;
        }
        .page-background {
            width: 100%;
            height: 100%;
            background-repeat: no-repeat;
            background-size: contain;
            background-position: top left;
        }
        ._l {
            position: absolute;
            top: 0;
            left: 0;
            width: 100%;
            height: 100%;
        }
        ._t {
            position: absolute;
            white-space: pre;
        }
        @media print {
            body { margin: 0; padding: 0; background-color: white; }
            .page { margin: 0; box-shadow: none; page-break-after: always; }
            @page { size: A3; margin: 0; }
        }
`)
	writeFontCSS(&b, fonts)
	b.WriteString("    </style>\n</head>\n<body>")

	for _, page := range pages {
		fmt.Fprintf(&b, "\n    <div class=\"page\" style=\"width: %dpx; height: %dpx;\">\n", page.WidthPx, page.HeightPx)
		b.WriteString(`        <div class="page-background" style="background-image: url(data:image/png;base64,`)
		b.WriteString(base64.StdEncoding.EncodeToString(page.Image))
		b.WriteString(");\"></div>\n        <div class=\"_l\">")

		for _, run := range page.Runs {
			writeRun(&b, run)
		}
		b.WriteString("\n        </div>\n    </div>")
	}

	b.WriteString("\n</body>\n</html>")
	return []byte(b.String())
}

// writeFontCSS emits one @font-face per resolved font, ordered by xref so
// output is deterministic. Degraded fonts map their declared name to a
// local system family instead of embedded data.
func writeFontCSS(b *strings.Builder, fonts map[int]*ResolvedFont) {
	xrefs := make([]int, 0, len(fonts))
	for xref := range fonts {
		xrefs = append(xrefs, xref)
	}
	sort.Ints(xrefs)

	for _, xref := range xrefs {
		rf := fonts[xref]
		if rf.Payload != nil {
			fmt.Fprintf(b, `
        @font-face {
            font-family: '%s';
            src: url(data:font/truetype;base64,%s) format('%s');
        }
`,
				cssEscape(rf.Name),
				base64.StdEncoding.EncodeToString(rf.Payload.Data),
				rf.Payload.Format)
			continue
		}
		fmt.Fprintf(b, `
        @font-face {
            font-family: '%s';
            src: local('%s');
        }
`,
			cssEscape(rf.Name), cssEscape(fontkit.TrimSubsetPrefix(rf.Name)))
	}
}

func writeRun(b *strings.Builder, run TextRun) {
	fmt.Fprintf(b, "\n            <span class=\"_t\" style=\"left:%spx;top:%spx;font-family:'%s';font-size:%spx;font-weight:%s;font-style:%s;color:%s;letter-spacing:%spx;",
		num(run.X), num(run.Y), cssEscape(run.FontName), num(run.Size),
		run.Weight, run.Style, run.Color, num(run.LetterSpacing))
	if run.Rotation != 0 {
		fmt.Fprintf(b, "transform: rotate(%ddeg) translateY(-75%%);transform-origin: left top;", run.Rotation)
	}
	b.WriteString("\">")
	b.WriteString(html.EscapeString(run.Text))
	b.WriteString("</span>")
}

// num formats a CSS number without trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// cssEscape sanitizes a font name for use inside single-quoted CSS.
func cssEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, ``)
	return strings.ReplaceAll(s, `'`, ``)
}
