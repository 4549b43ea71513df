// Package scanner captures booklet pages. DirScanner stands in for a real
// scanner driver by reading pre-captured page images from a directory.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register decoders
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrNoMorePages is returned by Capture once every page has been handed out.
var ErrNoMorePages = errors.New("scanner: no more pages")

// DefaultExtensions lists the page file types picked up from the directory.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// Page is a single captured page.
type Page struct {
	// Index is the zero-based capture order.
	Index int
	// Path is the file the page was read from.
	Path string
	// Image is the decoded raster.
	Image image.Image
}

// Scanner hands out pages in capture order.
type Scanner interface {
	Capture(ctx context.Context) (Page, error)
	Peek() (string, bool)
	Remaining() int
	Reset()
}

type Config struct {
	// Extensions restricts the files considered pages. Matching is
	// case-insensitive. Nil means DefaultExtensions.
	Extensions []string
}

// DirScanner serves the images of one directory sorted by file name.
type DirScanner struct {
	dir   string
	paths []string
	next  int
}

// New lists dir once and returns a scanner over the page files found.
func New(dir string, cfg Config) (*DirScanner, error) {
	exts := cfg.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name(), exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return &DirScanner{dir: dir, paths: paths}, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Capture decodes and returns the next page. A page that cannot be read is
// still consumed so the caller can decide whether to abort the booklet.
func (s *DirScanner) Capture(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if s.next >= len(s.paths) {
		return Page{}, ErrNoMorePages
	}
	idx := s.next
	path := s.paths[idx]
	s.next++
	img, err := Decode(path)
	if err != nil {
		return Page{}, err
	}
	return Page{Index: idx, Path: path, Image: img}, nil
}

// Peek returns the path Capture would read next, for previews.
func (s *DirScanner) Peek() (string, bool) {
	if s.next >= len(s.paths) {
		return "", false
	}
	return s.paths[s.next], true
}

// Remaining returns the number of pages not yet captured.
func (s *DirScanner) Remaining() int { return len(s.paths) - s.next }

// Reset rewinds to the first page.
func (s *DirScanner) Reset() { s.next = 0 }

// Paths returns every page file in capture order.
func (s *DirScanner) Paths() []string { return append([]string(nil), s.paths...) }

// Decode reads an image file in any registered format.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scanner: open page: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scanner: decode %s: %w", path, err)
	}
	return img, nil
}
