package pdfdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	coverMaxDim      = 600
	coverJPEGQuality = 80
)

// RenderCover rasterizes page 1 to a reduced-scale JPEG using the system
// pdftoppm tool (poppler-utils) and downscales it to thumbnail size.
func (d *Document) RenderCover(ctx context.Context) ([]byte, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not found: %w", err)
	}

	dir, err := os.MkdirTemp("", "flipbook-cover-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "src.pdf")
	if err := os.WriteFile(src, d.raw, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	out := filepath.Join(dir, "cover")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-jpeg", "-f", "1", "-l", "1", "-r", "72", "-singlefile", src, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, bytes.TrimSpace(output))
	}

	rendered, err := os.ReadFile(out + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("read rendered cover: %w", err)
	}
	return ShrinkCover(rendered)
}

// ShrinkCover decodes an image and re-encodes it as a bounded JPEG
// thumbnail suitable for library list display.
func ShrinkCover(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}
	thumb := imaging.Fit(img, coverMaxDim, coverMaxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: coverJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// InlineCover wraps JPEG bytes as a data URI so the client can display a
// cover even when the cover blob never made it to object storage.
func InlineCover(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}
