package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// DigitWhitelist is the character set accepted when reading registration numbers.
const DigitWhitelist = "0123456789"

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// DPI carries the effective dots-per-inch for the image. Zero means unknown.
	DPI int
	// Languages is a list of trained data names (e.g., "eng") the engine loads.
	Languages []string
	// Metadata allows callers to pass through engine-specific knobs (e.g.,
	// "tessedit_pageseg_mode" for Tesseract) without hard-coding them into the
	// API surface.
	Metadata map[string]string
}

// TextWord represents a single recognized token.
type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// Text is the raw recognized text, untrimmed.
	Text string
	// Words carries per-token bounds and confidence when the engine reports them.
	Words []TextWord
	// Language indicates the language used for recognition, if known.
	Language string
}

// Confidence returns the mean word confidence in [0, 1]. ok is false when the
// engine reported no words.
func (r Result) Confidence() (conf float64, ok bool) {
	if len(r.Words) == 0 {
		return 0, false
	}
	var sum float64
	for _, w := range r.Words {
		sum += w.Confidence
	}
	return sum / float64(len(r.Words)), true
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, input Input) (Result, error)

// Name implements Engine.
func (f EngineFunc) Name() string { return "func" }

// Recognize implements Engine.
func (f EngineFunc) Recognize(ctx context.Context, input Input) (Result, error) {
	return f(ctx, input)
}

// StaticText returns an engine that always recognizes text. Useful when the
// recognized value is known up front.
func StaticText(text string) Engine {
	return EngineFunc(func(_ context.Context, in Input) (Result, error) {
		return Result{InputID: in.ID, Text: text}, nil
	})
}
