package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"
)

func TestInputFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	img.SetGray(1, 1, color.Gray{Y: 255})
	meta := map[string]string{"user_defined_dpi": "300"}

	in, err := InputFromImage(
		img,
		WithID("reg"),
		WithLanguages("eng", "deu"),
		WithDPI(300),
		WithMetadata(meta),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if in.Format != ImageFormatPNG {
		t.Fatalf("unexpected format: %v", in.Format)
	}
	if in.ID != "reg" {
		t.Fatalf("unexpected id: %s", in.ID)
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "deu"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	if in.DPI != 300 {
		t.Fatalf("unexpected dpi: %d", in.DPI)
	}
	meta["user_defined_dpi"] = "72"
	if in.Metadata["user_defined_dpi"] != "300" {
		t.Fatalf("metadata was not copied: %+v", in.Metadata)
	}

	decoded, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("bounds mismatch: %v", decoded.Bounds())
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r>>8 != 255 {
		t.Fatalf("pixel not preserved")
	}
}

func TestInputFromImageNil(t *testing.T) {
	if _, err := InputFromImage(nil); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestWithMetadataMerges(t *testing.T) {
	in := Input{}
	WithTesseractPSM(PSMSingleLine)(&in)
	WithMetadata(map[string]string{"tessedit_do_invert": "0"})(&in)
	if in.Metadata[VarPageSegMode] != "7" || in.Metadata["tessedit_do_invert"] != "0" {
		t.Fatalf("unexpected metadata: %+v", in.Metadata)
	}
	WithMetadata(nil)(&in)
	if len(in.Metadata) != 2 {
		t.Fatalf("empty metadata should be a no-op: %+v", in.Metadata)
	}
}

func TestResultConfidence(t *testing.T) {
	if _, ok := (Result{}).Confidence(); ok {
		t.Fatalf("expected no confidence without words")
	}
	res := Result{Words: []TextWord{{Confidence: 0.5}, {Confidence: 1}}}
	conf, ok := res.Confidence()
	if !ok || conf != 0.75 {
		t.Fatalf("Confidence() = %v, %v", conf, ok)
	}
}

func TestStaticText(t *testing.T) {
	eng := StaticText(" 123456\n")
	res, err := eng.Recognize(context.Background(), Input{ID: "x"})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if res.Text != " 123456\n" || res.InputID != "x" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if eng.Name() != "func" {
		t.Fatalf("unexpected name: %s", eng.Name())
	}
}
