// Package imaging normalizes raster attachments before OCR: decode,
// bounded downscale, and re-encode to one canonical pixel format so the
// recognizer always sees the same kind of input.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxWidth caps OCR input width. Wider images are scaled down
// proportionally; smaller images are never upscaled.
const DefaultMaxWidth = 1600

// Normalize decodes buf, downscales it to at most maxWidth pixels wide,
// and returns the result as RGBA-backed PNG bytes.
func Normalize(buf []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	src, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}

	outW, outH := w, h
	if w > maxWidth {
		outW = maxWidth
		outH = h * maxWidth / w
		if outH < 1 {
			outH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	if outW == w && outH == h {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

// Size reports the decoded dimensions of buf without full normalization.
func Size(buf []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return 0, 0, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
