// Package fontforge drives a FontForge subprocess to decompose the
// embedded fonts of a PDF into standalone font files.
package fontforge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no fontforge executable is on PATH.
var ErrNotFound = errors.New("fontforge: executable not found")

// decomposeScript extracts every font of the input PDF. TrueType output is
// preferred; CFF-flavored fonts fall back to .otf, which keeps the sfnt
// name table and stays embeddable. A bare .cff file, with no name table,
// is the last resort.
const decomposeScript = `import fontforge
import sys

pdf_file = sys.argv[1]
out_dir = sys.argv[2]

for name in fontforge.fontsInFile(pdf_file):
    f = fontforge.open("%s(%s)" % (pdf_file, name))
    try:
        f.generate("%s/%s.ttf" % (out_dir, name))
    except Exception:
        try:
            f.generate("%s/%s.otf" % (out_dir, name))
        except Exception:
            f.generate("%s/%s.cff" % (out_dir, name))
`

// Find locates the fontforge executable.
func Find() (string, error) {
	path, err := exec.LookPath("fontforge")
	if err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// Decompose runs FontForge over the PDF at pdfPath, writing one font file
// per embedded font into outDir. A non-zero exit fails the whole call.
func Decompose(ctx context.Context, bin, pdfPath, outDir string) error {
	scriptPath := filepath.Join(outDir, "decompose.py")
	if err := os.WriteFile(scriptPath, []byte(decomposeScript), 0o600); err != nil {
		return fmt.Errorf("fontforge: writing script: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-lang=py", "-script", scriptPath, pdfPath, outDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("fontforge: %w: %s", err, tail(output, 400))
	}
	return nil
}

// tail returns the last n bytes of tool output, trimmed.
func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}

// FontFiles lists the decomposed font files in outDir, TrueType, OpenType
// and bare CFF, without ordering them.
func FontFiles(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("fontforge: reading output dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".ttf" || ext == ".otf" || ext == ".cff" {
			files = append(files, filepath.Join(outDir, e.Name()))
		}
	}
	return files, nil
}
