// Package assemble combines captured page images into a single PDF, one
// image per page.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/wudi/bookletscan/scanner"
)

// ErrNoPages is returned when there is nothing to assemble.
var ErrNoPages = errors.New("assemble: no pages")

// DefaultDPI maps one image pixel to one PDF point.
const DefaultDPI = 72.0

// Options configures the generated document.
type Options struct {
	// DPI sets the resolution pages are laid out at. Zero means DefaultDPI.
	DPI     float64
	Title   string
	Creator string
}

func (o Options) dpi() float64 {
	if o.DPI <= 0 {
		return DefaultDPI
	}
	return o.DPI
}

// PDF writes a document with one page per image file, each page sized to its
// image. JPEG files are embedded as-is; other formats are flattened onto white
// and embedded as PNG.
func PDF(ctx context.Context, w io.Writer, pages []string, opts Options) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt"})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}
	if opts.Creator != "" {
		doc.SetCreator(opts.Creator, true)
	}

	scale := 72.0 / opts.dpi()
	for i, path := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addPage(doc, fmt.Sprintf("page%d", i), path, scale); err != nil {
			return err
		}
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("assemble: write pdf: %w", err)
	}
	return nil
}

func addPage(doc *fpdf.Fpdf, name, path string, scale float64) error {
	data, imgType, bounds, err := loadPage(path)
	if err != nil {
		return err
	}
	wd := float64(bounds.Dx()) * scale
	ht := float64(bounds.Dy()) * scale
	opts := fpdf.ImageOptions{ImageType: imgType}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	doc.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})
	doc.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")
	if err := doc.Error(); err != nil {
		return fmt.Errorf("assemble: add %s: %w", path, err)
	}
	return nil
}

func loadPage(path string) ([]byte, string, image.Rectangle, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", image.Rectangle{}, fmt.Errorf("assemble: read %s: %w", path, err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", image.Rectangle{}, fmt.Errorf("assemble: decode %s: %w", path, err)
		}
		return data, "JPG", image.Rect(0, 0, cfg.Width, cfg.Height), nil
	}

	img, err := scanner.Decode(path)
	if err != nil {
		return nil, "", image.Rectangle{}, err
	}
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, "", image.Rectangle{}, fmt.Errorf("assemble: encode %s: %w", path, err)
	}
	return buf.Bytes(), "PNG", flat.Bounds(), nil
}

// FileName returns the PDF name for a registration number.
func FileName(regNumber string) string { return regNumber + ".pdf" }

// WriteFile assembles pages into <dir>/<regNumber>.pdf. The file is written
// to a temporary name first so a failed run never leaves a truncated PDF.
func WriteFile(ctx context.Context, dir, regNumber string, pages []string, opts Options) (string, error) {
	if regNumber == "" || regNumber != filepath.Base(regNumber) || strings.HasPrefix(regNumber, ".") {
		return "", fmt.Errorf("assemble: invalid file stem %q", regNumber)
	}
	if len(pages) == 0 {
		return "", ErrNoPages
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("assemble: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+regNumber+"-*.pdf")
	if err != nil {
		return "", fmt.Errorf("assemble: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := PDF(ctx, tmp, pages, opts); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("assemble: close: %w", err)
	}
	path := filepath.Join(dir, FileName(regNumber))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("assemble: rename: %w", err)
	}
	return path, nil
}
