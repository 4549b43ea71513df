// Package booklet drives the capture → finish workflow for one booklet at a
// time: pages are captured from a scanner, the first page's registration
// number is read, and all pages are written to <number>.pdf.
package booklet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/wudi/bookletscan/assemble"
	"github.com/wudi/bookletscan/observability"
	"github.com/wudi/bookletscan/regnum"
	"github.com/wudi/bookletscan/scanner"
)

// ErrNoPages is returned by Finish when nothing has been captured.
var ErrNoPages = errors.New("booklet: no pages captured")

// Extractor reads a registration number from a page image.
type Extractor interface {
	Extract(ctx context.Context, img image.Image, roi regnum.Region) regnum.Result
}

// ManualEntry asks an operator for the registration number after OCR failed.
// Returning an empty string declines.
type ManualEntry func(ctx context.Context, failed regnum.Result) (string, error)

// ExtractionError reports a booklet whose number could not be determined. The
// captured pages are kept so the operator can retry.
type ExtractionError struct {
	Result regnum.Result
}

func (e *ExtractionError) Error() string {
	msg := "booklet: registration number not extracted: " + e.Result.Err().Error()
	if e.Result.DiagnosticPath != "" {
		msg += fmt.Sprintf("; check %s and the configured region", e.Result.DiagnosticPath)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Result.Err() }

// Outcome describes a finished booklet.
type Outcome struct {
	RegNumber string
	PDFPath   string
	Pages     int
	// Manual is true when the number was typed by an operator.
	Manual bool
	// Extraction is the OCR attempt, successful or not.
	Extraction regnum.Result
}

// Options configures a Session.
type Options struct {
	Region    regnum.Region
	OutputDir string
	PDF       assemble.Options
	Manual    ManualEntry
	// MinLength is applied to manually entered numbers. Zero means
	// regnum.DefaultMinLength.
	MinLength int
	Logger    observability.Logger
}

// Session collects the pages of the current booklet. It is not safe for
// concurrent use.
type Session struct {
	scanner   scanner.Scanner
	extractor Extractor
	opts      Options
	log       observability.Logger
	pages     []string
}

// NewSession validates the region up front so a misconfigured deployment
// fails at startup rather than on the first booklet.
func NewSession(sc scanner.Scanner, ex Extractor, opts Options) (*Session, error) {
	if sc == nil || ex == nil {
		return nil, errors.New("booklet: scanner and extractor are required")
	}
	if err := opts.Region.Validate(); err != nil {
		return nil, fmt.Errorf("booklet: %w", err)
	}
	if opts.OutputDir == "" {
		return nil, errors.New("booklet: output dir is required")
	}
	if opts.MinLength <= 0 {
		opts.MinLength = regnum.DefaultMinLength
	}
	log := opts.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Session{scanner: sc, extractor: ex, opts: opts, log: log}, nil
}

// Pages returns the captured page paths in order.
func (s *Session) Pages() []string { return append([]string(nil), s.pages...) }

// Capture adds the next scanner page to the booklet.
func (s *Session) Capture(ctx context.Context) (scanner.Page, error) {
	p, err := s.scanner.Capture(ctx)
	if err != nil {
		return scanner.Page{}, err
	}
	s.pages = append(s.pages, p.Path)
	s.log.Info("page captured",
		observability.Int(observability.KeyPage, len(s.pages)),
		observability.String(observability.KeyPath, p.Path),
	)
	return p, nil
}

// CaptureAll captures every remaining page. If any page fails the booklet is
// discarded and the error returned.
func (s *Session) CaptureAll(ctx context.Context) (int, error) {
	for {
		_, err := s.Capture(ctx)
		if errors.Is(err, scanner.ErrNoMorePages) {
			return len(s.pages), nil
		}
		if err != nil {
			s.log.Error("page capture failed, aborting booklet",
				observability.Int(observability.KeyPage, len(s.pages)+1),
				observability.Error("error", err),
			)
			s.pages = nil
			return 0, err
		}
	}
}

// Discard drops the captured pages and rewinds the scanner.
func (s *Session) Discard() {
	s.pages = nil
	s.scanner.Reset()
}

// Finish reads the registration number from the first page and writes the
// booklet PDF. On success the session is cleared for the next booklet.
func (s *Session) Finish(ctx context.Context) (Outcome, error) {
	if len(s.pages) == 0 {
		return Outcome{}, ErrNoPages
	}
	start := time.Now()

	first, err := scanner.Decode(s.pages[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("booklet: first page: %w", err)
	}
	res := s.extractor.Extract(ctx, first, s.opts.Region)
	out := Outcome{Pages: len(s.pages), Extraction: res, RegNumber: res.Number}

	if !res.OK() {
		number, err := s.manualNumber(ctx, res)
		if err != nil {
			return out, err
		}
		out.RegNumber, out.Manual = number, true
	}
	s.log.Info("registration number extracted",
		observability.String(observability.KeyRegNumber, out.RegNumber),
		observability.Bool("manual", out.Manual),
	)

	opts := s.opts.PDF
	if opts.Title == "" {
		opts.Title = out.RegNumber
	}
	out.PDFPath, err = assemble.WriteFile(ctx, s.opts.OutputDir, out.RegNumber, s.pages, opts)
	if err != nil {
		s.log.Error("FAILURE: pdf creation failed",
			observability.String(observability.KeyRegNumber, out.RegNumber),
			observability.Error("error", err),
		)
		return out, fmt.Errorf("booklet: %w", err)
	}
	s.log.Info("SUCCESS: booklet processed",
		observability.String(observability.KeyRegNumber, out.RegNumber),
		observability.String(observability.KeyPath, out.PDFPath),
		observability.Int(observability.KeyPages, out.Pages),
		observability.Duration(observability.KeyElapsed, time.Since(start)),
	)
	s.Discard()
	return out, nil
}

func (s *Session) manualNumber(ctx context.Context, res regnum.Result) (string, error) {
	failed := &ExtractionError{Result: res}
	s.log.Error("FAILURE: ocr failed to extract a valid registration number",
		observability.String(observability.KeyReason, res.Reason.String()),
		observability.String(observability.KeyRawText, res.RawText),
		observability.String(observability.KeyDiagnostic, res.DiagnosticPath),
	)
	if s.opts.Manual == nil {
		return "", failed
	}
	typed, err := s.opts.Manual(ctx, res)
	if err != nil {
		return "", fmt.Errorf("booklet: manual entry: %w", err)
	}
	typed = regnum.Normalize(typed)
	if typed == "" {
		return "", failed
	}
	if err := regnum.Validate(typed, s.opts.MinLength); err != nil {
		return "", fmt.Errorf("booklet: manual entry %q rejected: %w", typed, err)
	}
	return typed, nil
}
