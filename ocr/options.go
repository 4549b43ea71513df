package ocr

import "strconv"

// Tesseract variable names understood by the tesseract engine.
const (
	VarPageSegMode   = "tessedit_pageseg_mode"
	VarCharWhitelist = "tessedit_char_whitelist"
)

// Page segmentation modes used by this module.
// See https://tesseract-ocr.github.io/tessdoc/ImproveQuality.html#page-segmentation-method for values.
const (
	PSMSingleBlock = 6
	PSMSingleLine  = 7
)

// WithTesseractPSM sets the page segmentation mode (PSM) variable for Tesseract.
func WithTesseractPSM(mode int) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[VarPageSegMode] = strconv.Itoa(mode)
	}
}

// WithTesseractWhitelist restricts recognition to the provided characters.
func WithTesseractWhitelist(chars string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[VarCharWhitelist] = chars
	}
}
