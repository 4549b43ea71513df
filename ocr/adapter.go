package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// InputOption mutates an OCR input before it is submitted to an engine.
type InputOption func(*Input)

// WithID sets the identifier echoed back in the result.
func WithID(id string) InputOption {
	return func(in *Input) { in.ID = id }
}

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata merges provider-specific metadata into the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			return
		}
		if in.Metadata == nil {
			in.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromImage converts an in-memory image into an OCR input using PNG
// encoding, which is lossless and keeps binarized pixels exact.
func InputFromImage(img image.Image, opts ...InputOption) (Input, error) {
	if img == nil {
		return Input{}, fmt.Errorf("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Input{}, fmt.Errorf("encode png: %w", err)
	}
	in := Input{
		Image:  buf.Bytes(),
		Format: ImageFormatPNG,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
