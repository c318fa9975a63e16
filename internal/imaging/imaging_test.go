package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("normalized output is not PNG: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestNormalizeDownscalesWideImages(t *testing.T) {
	out, err := Normalize(encodePNG(t, 3200, 1600), 1600)
	if err != nil {
		t.Fatal(err)
	}
	w, h := decodeSize(t, out)
	if w != 1600 {
		t.Fatalf("expected width 1600, got %d", w)
	}
	if h != 800 {
		t.Fatalf("aspect ratio not preserved: height %d", h)
	}
}

func TestNormalizeNeverUpscales(t *testing.T) {
	out, err := Normalize(encodePNG(t, 200, 100), 1600)
	if err != nil {
		t.Fatal(err)
	}
	w, h := decodeSize(t, out)
	if w != 200 || h != 100 {
		t.Fatalf("small image must keep its size, got %dx%d", w, h)
	}
}

func TestNormalizeCanonicalizesJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatal(err)
	}

	out, err := Normalize(buf.Bytes(), 1600)
	if err != nil {
		t.Fatal(err)
	}
	// Output decodes as PNG regardless of input codec.
	if w, h := decodeSize(t, out); w != 32 || h != 32 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("definitely not an image"), 1600); err == nil {
		t.Fatal("expected decode error")
	}
}
