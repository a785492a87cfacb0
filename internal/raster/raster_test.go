package raster

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// fakeMutool writes a shell script that mimics mutool draw by copying a
// pre-rendered PNG to the -o output path (argument 4 of the draw call).
func fakeMutool(t *testing.T, dir string, img []byte) string {
	t.Helper()
	pngPath := filepath.Join(dir, "canned.png")
	if err := os.WriteFile(pngPath, img, 0o644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\ncp \"" + pngPath + "\" \"$4\"\n"
	scriptPath := filepath.Join(dir, "fake-mutool.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return scriptPath
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	tool := &Tool{Path: fakeMutool(t, dir, encodePNG(t, 1224, 1584)), Kind: "mutool"}

	img, err := tool.Render(context.Background(), "input.pdf", 0, 2.0, dir)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Width != 1224 || img.Height != 1584 {
		t.Errorf("dimensions = %dx%d, want 1224x1584", img.Width, img.Height)
	}
	if len(img.PNG) == 0 {
		t.Error("PNG bytes empty")
	}
}

func TestRenderRejectsInvalidPNG(t *testing.T) {
	dir := t.TempDir()
	tool := &Tool{Path: fakeMutool(t, dir, []byte("not a png")), Kind: "mutool"}

	if _, err := tool.Render(context.Background(), "input.pdf", 0, 2.0, dir); err == nil {
		t.Error("expected error for invalid PNG output")
	}
}

func TestRenderUnknownKind(t *testing.T) {
	tool := &Tool{Path: "/bin/true", Kind: "ghostscript"}
	if _, err := tool.Render(context.Background(), "input.pdf", 0, 2.0, t.TempDir()); err == nil {
		t.Error("expected error for unknown tool kind")
	}
}

func TestRenderToolFailure(t *testing.T) {
	tool := &Tool{Path: "/nonexistent/mutool", Kind: "mutool"}
	if _, err := tool.Render(context.Background(), "input.pdf", 0, 2.0, t.TempDir()); err == nil {
		t.Error("expected error for missing tool")
	}
}
