package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/wudi/bookletscan/ocr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

// digitsImage renders one row of glyphs per line, scaled up 4x.
func digitsImage(lines ...string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 80, 6+20*len(lines)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	for i, line := range lines {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.Black,
			Face: basicfont.Face7x13,
			Dot:  fixed.P(8, 15+20*i),
		}
		d.DrawString(line)
	}
	return imaging.Resize(img, 320, 0, imaging.NearestNeighbor)
}

func TestNewDefaults(t *testing.T) {
	e := New()
	if e.Name() != "tesseract" {
		t.Fatalf("unexpected name: %s", e.Name())
	}
	if len(e.languages) != 1 || e.languages[0] != "eng" {
		t.Fatalf("unexpected default languages: %v", e.languages)
	}
	e = New(WithLanguage("eng", "osd"), WithTessdataPrefix("/opt/tessdata"))
	if len(e.languages) != 2 || e.tessdataPrefix != "/opt/tessdata" {
		t.Fatalf("options not applied: %+v", e)
	}
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Recognize(ctx, ocr.Input{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRecognizeDigits(t *testing.T) {
	ensureTesseractAvailable(t)

	in, err := ocr.InputFromImage(
		digitsImage("123456"),
		ocr.WithID("reg"),
		ocr.WithTesseractPSM(ocr.PSMSingleLine),
		ocr.WithTesseractWhitelist(ocr.DigitWhitelist),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	res, err := New().Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if res.InputID != "reg" {
		t.Fatalf("unexpected input id: %s", res.InputID)
	}
	for _, r := range strings.TrimSpace(res.Text) {
		if r < '0' || r > '9' {
			t.Fatalf("whitelist not honoured: %q", res.Text)
		}
	}
}

func TestRecognizeInvalidPSM(t *testing.T) {
	ensureTesseractAvailable(t)

	in, err := ocr.InputFromImage(digitsImage("1"), ocr.WithMetadata(map[string]string{ocr.VarPageSegMode: "42"}))
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if _, err := New().Recognize(context.Background(), in); err == nil {
		t.Fatalf("expected invalid PSM error")
	}
}

func TestApplyVariableStoresPageSegMode(t *testing.T) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := applyVariable(c, ocr.VarPageSegMode, "7"); err != nil {
		t.Fatalf("applyVariable() error = %v", err)
	}
	if err := applyVariable(c, ocr.VarCharWhitelist, ocr.DigitWhitelist); err != nil {
		t.Fatalf("applyVariable() error = %v", err)
	}
	// Stored variables are re-applied after the client's lazy Init.
	if got := c.Variables[gosseract.SettableVariable(ocr.VarPageSegMode)]; got != "7" {
		t.Fatalf("page segmentation mode not stored: %q", got)
	}
	if got := c.Variables[gosseract.SettableVariable(ocr.VarCharWhitelist)]; got != ocr.DigitWhitelist {
		t.Fatalf("whitelist not stored: %q", got)
	}
}

func TestRecognizeSingleLineMode(t *testing.T) {
	ensureTesseractAvailable(t)

	recognize := func(psm int) string {
		t.Helper()
		in, err := ocr.InputFromImage(
			digitsImage("123456", "789012"),
			ocr.WithTesseractPSM(psm),
			ocr.WithTesseractWhitelist(ocr.DigitWhitelist),
		)
		if err != nil {
			t.Fatalf("InputFromImage() error = %v", err)
		}
		res, err := New().Recognize(context.Background(), in)
		if err != nil {
			t.Fatalf("Recognize(psm %d) error = %v", psm, err)
		}
		return strings.TrimSpace(res.Text)
	}

	if block := recognize(ocr.PSMSingleBlock); !strings.Contains(block, "\n") {
		t.Fatalf("block mode should keep both rows, got %q", block)
	}
	if line := recognize(ocr.PSMSingleLine); strings.Contains(line, "\n") {
		t.Fatalf("single line mode not applied, got %q", line)
	}
}
