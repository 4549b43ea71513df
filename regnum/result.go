package regnum

import (
	"errors"
	"fmt"
	"image"
)

// Reason classifies an extraction outcome.
type Reason int

const (
	// ReasonNone: a valid registration number was read.
	ReasonNone Reason = iota
	// ReasonInvalidInput: no image was supplied.
	ReasonInvalidInput
	// ReasonInvalidConfiguration: the region has a non-positive width or height.
	ReasonInvalidConfiguration
	// ReasonCropOutOfBounds: the region does not fit inside the image.
	ReasonCropOutOfBounds
	// ReasonRecognitionFailed: the OCR engine returned an error.
	ReasonRecognitionFailed
	// ReasonValidationFailed: the recognized text is not a plausible number.
	ReasonValidationFailed
)

var reasonNames = [...]string{
	ReasonNone:                 "none",
	ReasonInvalidInput:         "invalid_input",
	ReasonInvalidConfiguration: "invalid_configuration",
	ReasonCropOutOfBounds:      "crop_out_of_bounds",
	ReasonRecognitionFailed:    "recognition_failed",
	ReasonValidationFailed:     "ocr_validation_failed",
}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Sentinel errors matched by Result.Err through errors.Is.
var (
	ErrInvalidInput         = errors.New("regnum: no image supplied")
	ErrInvalidConfiguration = errors.New("regnum: region width and height must be positive")
	ErrCropOutOfBounds      = errors.New("regnum: region outside image bounds")
	ErrRecognitionFailed    = errors.New("regnum: ocr engine failed")
	ErrValidationFailed     = errors.New("regnum: ocr result rejected")
)

func (r Reason) sentinel() error {
	switch r {
	case ReasonInvalidInput:
		return ErrInvalidInput
	case ReasonInvalidConfiguration:
		return ErrInvalidConfiguration
	case ReasonCropOutOfBounds:
		return ErrCropOutOfBounds
	case ReasonRecognitionFailed:
		return ErrRecognitionFailed
	case ReasonValidationFailed:
		return ErrValidationFailed
	default:
		return nil
	}
}

// Result is the outcome of one extraction. Exactly one of Number (success) or
// a non-zero Reason (failure) is set.
type Result struct {
	Number string
	Reason Reason
	// RawText is the whitespace-trimmed text the engine returned, kept on
	// validation failures for the operator.
	RawText string
	// Detail explains the failure in human terms.
	Detail string
	// Cause is the underlying error for recognition and cropping failures.
	Cause error

	// Binarized is the image submitted to the engine, nil when extraction
	// stopped before binarization.
	Binarized *image.Gray
	// Threshold is the intensity used to binarize the region.
	Threshold uint8
	// DiagnosticPath is where Binarized was written, empty if it was not.
	DiagnosticPath string
	// DiagnosticErr records a failed diagnostic write. It never changes the outcome.
	DiagnosticErr error
}

// OK reports whether a registration number was extracted.
func (r Result) OK() bool { return r.Reason == ReasonNone }

// Err returns nil on success and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Reason: r.Reason, RawText: r.RawText, Detail: r.Detail, DiagnosticPath: r.DiagnosticPath, Cause: r.Cause}
}

// Error is the error form of a failed Result.
type Error struct {
	Reason         Reason
	RawText        string
	Detail         string
	DiagnosticPath string
	Cause          error
}

func (e *Error) Error() string {
	msg := "regnum: " + e.Reason.String()
	if s := e.Reason.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Reason == ReasonValidationFailed {
		msg += fmt.Sprintf(" (raw %q)", e.RawText)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches the sentinel for the error's reason.
func (e *Error) Is(target error) bool { return target == e.Reason.sentinel() }

func (e *Error) Unwrap() error { return e.Cause }
