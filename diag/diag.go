// Package diag persists intermediate images so an operator can see what the
// OCR engine was given.
package diag

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ProcessedRegNumber is the base name of the binarized registration number
// region.
const ProcessedRegNumber = "processed_reg_num"

// Sink stores a diagnostic image under a base name and reports where it went.
// An empty path with a nil error means the image was not persisted.
type Sink interface {
	Write(ctx context.Context, name string, img image.Image) (string, error)
}

// NopSink discards diagnostic images.
type NopSink struct{}

func (NopSink) Write(context.Context, string, image.Image) (string, error) { return "", nil }

// FileSink writes PNG files into Dir. With Unique set every call gets its own
// file, which keeps concurrent extractions from overwriting each other.
type FileSink struct {
	Dir    string
	Unique bool
}

// Path returns the file a non-unique sink writes for name.
func (s FileSink) Path(name string) string {
	return filepath.Join(s.Dir, name+".png")
}

func (s FileSink) Write(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("diag: nil image")
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("diag: invalid name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("diag: create dir: %w", err)
	}
	path := s.Path(name)
	if s.Unique {
		path = filepath.Join(s.Dir, name+"-"+uuid.NewString()+".png")
	}
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("diag: save %s: %w", path, err)
	}
	return path, nil
}
