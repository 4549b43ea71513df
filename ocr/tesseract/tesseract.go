// Package tesseract implements ocr.Engine on top of libtesseract through the
// gosseract client. Building it requires the tesseract headers and library.
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/wudi/bookletscan/ocr"
)

// Option configures engine-wide defaults.
type Option func(*Engine)

// WithLanguage sets the languages used when an input carries none.
func WithLanguage(langs ...string) Option {
	return func(e *Engine) { e.languages = append([]string(nil), langs...) }
}

// WithTessdataPrefix points the engine at a trained data directory instead of
// the installation default.
func WithTessdataPrefix(prefix string) Option {
	return func(e *Engine) { e.tessdataPrefix = prefix }
}

// Engine implements ocr.Engine using a fresh gosseract client per call, so
// concurrent Recognize calls never share native state.
type Engine struct {
	clientFactory  func() *gosseract.Client
	languages      []string
	tessdataPrefix string
}

// New constructs a Tesseract-backed OCR engine.
func New(opts ...Option) *Engine {
	e := &Engine{clientFactory: gosseract.NewClient, languages: []string{"eng"}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image input.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.clientFactory()
	defer c.Close()
	return e.recognizeWithClient(c, in)
}

func (e *Engine) recognizeWithClient(c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if e.tessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	langs := in.Languages
	if len(langs) == 0 {
		langs = e.languages
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := applyVariable(c, k, v); err != nil {
			return ocr.Result{}, err
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Result{
		InputID:  in.ID,
		Text:     text,
		Words:    extractWords(c),
		Language: strings.Join(langs, "+"),
	}, nil
}

// applyVariable stores metadata as client variables. gosseract initializes
// lazily and applies stored variables after Init, so the page segmentation
// mode goes through SetVariable as well: SetPageSegMode acts on the native
// handle right away and is reset by the first Init.
func applyVariable(c *gosseract.Client, key, value string) error {
	switch key {
	case ocr.VarPageSegMode:
		mode, err := strconv.Atoi(value)
		if err != nil || mode < 0 || mode > 13 {
			return fmt.Errorf("invalid page segmentation mode %q", value)
		}
		if err := c.SetVariable(gosseract.SettableVariable(ocr.VarPageSegMode), strconv.Itoa(mode)); err != nil {
			return fmt.Errorf("set page segmentation mode: %w", err)
		}
	case ocr.VarCharWhitelist:
		if err := c.SetWhitelist(value); err != nil {
			return fmt.Errorf("set whitelist: %w", err)
		}
	default:
		if err := c.SetVariable(gosseract.SettableVariable(key), value); err != nil {
			return fmt.Errorf("set variable %s: %w", key, err)
		}
	}
	return nil
}

func extractWords(c *gosseract.Client) []ocr.TextWord {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	words := make([]ocr.TextWord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.TextWord{
			Text:       b.Word,
			Bounds:     ocr.Region{X: float64(b.Box.Min.X), Y: float64(b.Box.Min.Y), Width: float64(b.Box.Dx()), Height: float64(b.Box.Dy())},
			Confidence: b.Confidence / 100.0,
		})
	}
	return words
}
