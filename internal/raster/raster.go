// Package raster renders PDF pages to PNG images with an external
// rasterizer, preferring mutool and falling back to pdftoppm.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotFound is returned when neither mutool nor pdftoppm is on PATH.
var ErrNotFound = errors.New("raster: no rasterizer tool found")

// Tool is a located rasterizer binary.
type Tool struct {
	Path string
	Kind string // "mutool" or "pdftoppm"
}

// Find locates a rasterizer on PATH.
func Find() (*Tool, error) {
	if path, err := exec.LookPath("mutool"); err == nil {
		return &Tool{Path: path, Kind: "mutool"}, nil
	}
	if path, err := exec.LookPath("pdftoppm"); err == nil {
		return &Tool{Path: path, Kind: "pdftoppm"}, nil
	}
	return nil, ErrNotFound
}

// Image is one rendered page.
type Image struct {
	PNG    []byte
	Width  int // pixels
	Height int
}

// Render rasterizes page pageIndex (0-based) of the PDF at pdfPath into
// workDir at 72*scale DPI and returns the PNG with its pixel dimensions.
func (t *Tool) Render(ctx context.Context, pdfPath string, pageIndex int, scale float64, workDir string) (*Image, error) {
	dpi := int(72*scale + 0.5)
	outPath := filepath.Join(workDir, fmt.Sprintf("page-%04d.png", pageIndex))

	var cmd *exec.Cmd
	switch t.Kind {
	case "mutool":
		cmd = exec.CommandContext(ctx, t.Path, "draw",
			"-q",
			"-o", outPath,
			"-r", strconv.Itoa(dpi),
			"-F", "png",
			pdfPath,
			strconv.Itoa(pageIndex+1),
		)
	case "pdftoppm":
		// pdftoppm appends its own page suffix to the output root.
		root := strings.TrimSuffix(outPath, ".png")
		cmd = exec.CommandContext(ctx, t.Path,
			"-png",
			"-r", strconv.Itoa(dpi),
			"-f", strconv.Itoa(pageIndex+1),
			"-l", strconv.Itoa(pageIndex+1),
			"-singlefile",
			pdfPath,
			root,
		)
	default:
		return nil, fmt.Errorf("raster: unknown tool kind %q", t.Kind)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 400 {
			msg = "..." + msg[len(msg)-400:]
		}
		return nil, fmt.Errorf("raster: %s: %w: %s", t.Kind, err, msg)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("raster: reading output: %w", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: invalid PNG output: %w", err)
	}
	return &Image{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}
