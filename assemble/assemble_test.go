package assemble

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/tiff"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 0x80})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	switch filepath.Ext(path) {
	case ".jpg":
		err = jpeg.Encode(f, img, nil)
	case ".tif":
		err = tiff.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func openPDF(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("pdf.NewReader() error = %v", err)
	}
	return r
}

func checkMediaBox(t *testing.T, r *pdf.Reader, page int, w, h float64) {
	t.Helper()
	box := r.Page(page).V.Key("MediaBox")
	gw, gh := box.Index(2).Float64(), box.Index(3).Float64()
	if math.Abs(gw-w) > 0.01 || math.Abs(gh-h) > 0.01 {
		t.Fatalf("page %d: media box %vx%v, want %vx%v", page, gw, gh, w, h)
	}
}

func TestPDFOnePagePerImage(t *testing.T) {
	dir := t.TempDir()
	pages := []string{
		filepath.Join(dir, "p1.png"),
		filepath.Join(dir, "p2.jpg"),
		filepath.Join(dir, "p3.tif"),
	}
	writeImage(t, pages[0], 200, 300)
	writeImage(t, pages[1], 320, 240)
	writeImage(t, pages[2], 100, 150)

	var buf bytes.Buffer
	if err := PDF(context.Background(), &buf, pages, Options{Title: "12345", Creator: "bookletscan"}); err != nil {
		t.Fatalf("PDF() error = %v", err)
	}

	r := openPDF(t, buf.Bytes())
	if r.NumPage() != 3 {
		t.Fatalf("expected 3 pages, got %d", r.NumPage())
	}
	checkMediaBox(t, r, 1, 200, 300)
	checkMediaBox(t, r, 2, 320, 240)
}

func TestPDFScalesWithDPI(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "p1.png")
	writeImage(t, page, 300, 600)

	var buf bytes.Buffer
	if err := PDF(context.Background(), &buf, []string{page}, Options{DPI: 300}); err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	checkMediaBox(t, openPDF(t, buf.Bytes()), 1, 72, 144)
}

func TestPDFErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(context.Background(), &buf, nil, Options{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.png")
	if err := PDF(context.Background(), &buf, []string{missing}, Options{}); err == nil {
		t.Fatalf("expected error for missing page")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := PDF(ctx, &buf, []string{missing}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "p1.png")
	writeImage(t, page, 120, 80)
	out := filepath.Join(dir, "output")

	path, err := WriteFile(context.Background(), out, "0012345", []string{page, page}, Options{})
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if want := filepath.Join(out, "0012345.pdf"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if n := openPDF(t, data).NumPage(); n != 2 {
		t.Fatalf("expected 2 pages, got %d", n)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %v", entries)
	}
}

func TestWriteFileRejectsBadStem(t *testing.T) {
	dir := t.TempDir()
	for _, stem := range []string{"", "../12345", "a/b", ".hidden"} {
		if _, err := WriteFile(context.Background(), dir, stem, []string{"x.png"}, Options{}); err == nil {
			t.Fatalf("expected error for stem %q", stem)
		}
	}
	if _, err := WriteFile(context.Background(), dir, "12345", nil, Options{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestWriteFileFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteFile(context.Background(), dir, "12345", []string{filepath.Join(dir, "missing.png")}, Options{}); err == nil {
		t.Fatalf("expected error for missing page")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed run left files behind: %v", entries)
	}
}
