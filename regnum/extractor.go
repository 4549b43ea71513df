// Package regnum reads a handwritten or printed registration number from a
// fixed region of a page image.
//
// Extraction crops the region, converts it to grayscale, binarizes it with an
// inverted Otsu threshold and hands the result to an injected OCR engine that
// is restricted to one line of digits. The trimmed text is accepted only when
// it is all digits and long enough; otherwise the rejected text is returned
// so an operator can correct the region or type the number in.
package regnum

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/wudi/bookletscan/diag"
	"github.com/wudi/bookletscan/imgproc"
	"github.com/wudi/bookletscan/observability"
	"github.com/wudi/bookletscan/ocr"
)

// Region is the area of the page holding the number, in pixels relative to
// the image's top-left corner.
type Region struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Validate reports ErrInvalidConfiguration for non-positive dimensions.
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidConfiguration, r.Width, r.Height)
	}
	return nil
}

// Rect returns the region as an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinLength sets the minimum number of digits accepted.
func WithMinLength(n int) Option {
	return func(e *Extractor) { e.minLength = n }
}

// WithThresholdMode selects Otsu (default) or fixed thresholding.
func WithThresholdMode(mode imgproc.ThresholdMode) Option {
	return func(e *Extractor) { e.binarize.Mode = mode }
}

// WithFallbackThreshold sets the fixed threshold used when Otsu cannot split
// the histogram, or always in fixed mode.
func WithFallbackThreshold(t uint8) Option {
	return func(e *Extractor) { e.binarize.Fixed = t }
}

// WithMinConfidence rejects reads whose mean word confidence (0..1) is below
// min. Zero disables the check, as do engines that report no words.
func WithMinConfidence(min float64) Option {
	return func(e *Extractor) { e.minConfidence = min }
}

// WithDiagnostics sets where the binarized region is written. The default
// writes processed_reg_num.png into the working directory; a nil sink turns
// diagnostics off.
func WithDiagnostics(sink diag.Sink) Option {
	return func(e *Extractor) {
		if sink == nil {
			sink = diag.NopSink{}
		}
		e.sink = sink
	}
}

// WithLogger sets the logger used for rejected reads and diagnostic writes.
func WithLogger(l observability.Logger) Option {
	return func(e *Extractor) {
		if l == nil {
			l = observability.NopLogger{}
		}
		e.log = l
	}
}

// WithPageSegMode overrides the Tesseract page segmentation mode.
func WithPageSegMode(mode int) Option {
	return func(e *Extractor) { e.psm = mode }
}

// WithWhitelist overrides the accepted character set passed to the engine.
// Validation still requires digits.
func WithWhitelist(chars string) Option {
	return func(e *Extractor) { e.whitelist = chars }
}

// WithLanguages sets the languages requested from the engine.
func WithLanguages(langs ...string) Option {
	return func(e *Extractor) { e.languages = append([]string(nil), langs...) }
}

// Extractor reads registration numbers. It holds no per-call state and is
// safe for concurrent use when its diagnostic sink is.
type Extractor struct {
	engine        ocr.Engine
	minLength     int
	minConfidence float64
	binarize      imgproc.BinarizeOptions
	psm           int
	whitelist     string
	languages     []string
	sink          diag.Sink
	log           observability.Logger
}

// New builds an Extractor around an OCR engine.
func New(engine ocr.Engine, opts ...Option) (*Extractor, error) {
	if engine == nil {
		return nil, errors.New("regnum: nil ocr engine")
	}
	e := &Extractor{
		engine:    engine,
		minLength: DefaultMinLength,
		binarize:  imgproc.BinarizeOptions{Mode: imgproc.ThresholdOtsu, Fixed: imgproc.DefaultFixedThreshold},
		psm:       ocr.PSMSingleLine,
		whitelist: ocr.DigitWhitelist,
		sink:      diag.FileSink{Dir: "."},
		log:       observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.minLength < 1 {
		return nil, fmt.Errorf("regnum: min length must be at least 1, got %d", e.minLength)
	}
	if e.minConfidence < 0 || e.minConfidence > 1 {
		return nil, fmt.Errorf("regnum: min confidence must be within [0, 1], got %v", e.minConfidence)
	}
	return e, nil
}

// MinLength returns the configured minimum digit count.
func (e *Extractor) MinLength() int { return e.minLength }

// Extract reads the registration number inside roi. Failures are returned in
// the Result and never as panics. The engine is called at most once.
//
// Every call that gets as far as binarization hands the region to the
// diagnostic sink before recognition, and Result.DiagnosticPath tells the
// caller where it went.
func (e *Extractor) Extract(ctx context.Context, img image.Image, roi Region) Result {
	if img == nil || img.Bounds().Empty() {
		return Result{Reason: ReasonInvalidInput, Detail: "no image"}
	}
	if err := roi.Validate(); err != nil {
		return Result{Reason: ReasonInvalidConfiguration, Detail: fmt.Sprintf("region %s", roi)}
	}

	crop, err := imgproc.Crop(img, roi.Rect())
	if err != nil {
		b := img.Bounds()
		return Result{
			Reason: ReasonCropOutOfBounds,
			Detail: fmt.Sprintf("region %s does not fit in %dx%d image", roi, b.Dx(), b.Dy()),
		}
	}
	binary, threshold := imgproc.Binarize(imgproc.Grayscale(crop), e.binarize)

	res := Result{Binarized: binary, Threshold: threshold}
	res.DiagnosticPath, res.DiagnosticErr = e.sink.Write(ctx, diag.ProcessedRegNumber, binary)
	if res.DiagnosticErr != nil {
		e.log.Warn("diagnostic image not written", observability.Error("error", res.DiagnosticErr))
	}

	in, err := ocr.InputFromImage(binary,
		ocr.WithID(diag.ProcessedRegNumber),
		ocr.WithLanguages(e.languages...),
		ocr.WithTesseractPSM(e.psm),
		ocr.WithTesseractWhitelist(e.whitelist),
	)
	if err != nil {
		res.Reason, res.Detail, res.Cause = ReasonRecognitionFailed, "encode region", err
		return res
	}

	start := time.Now()
	out, err := e.engine.Recognize(ctx, in)
	if err != nil {
		res.Reason, res.Detail, res.Cause = ReasonRecognitionFailed, e.engine.Name(), err
		e.log.Error("ocr engine failed",
			observability.String(observability.KeyEngine, e.engine.Name()),
			observability.String(observability.KeyDiagnostic, res.DiagnosticPath),
			observability.Error("error", err),
		)
		return res
	}
	e.log.Debug("ocr finished",
		observability.String(observability.KeyEngine, e.engine.Name()),
		observability.Int(observability.KeyThreshold, int(threshold)),
		observability.Duration(observability.KeyElapsed, time.Since(start)),
	)

	text := Normalize(out.Text)
	if err := e.check(text, out); err != nil {
		res.Reason, res.RawText, res.Detail = ReasonValidationFailed, text, err.Error()
		e.log.Warn("ocr failed or produced invalid result, manual review needed",
			observability.String(observability.KeyRawText, text),
			observability.String(observability.KeyReason, res.Detail),
			observability.String(observability.KeyDiagnostic, res.DiagnosticPath),
		)
		return res
	}
	res.Number = text
	return res
}

func (e *Extractor) check(text string, out ocr.Result) error {
	if err := Validate(text, e.minLength); err != nil {
		return err
	}
	if e.minConfidence > 0 {
		if conf, ok := out.Confidence(); ok && conf < e.minConfidence {
			return fmt.Errorf("confidence %.2f below %.2f", conf, e.minConfidence)
		}
	}
	return nil
}
