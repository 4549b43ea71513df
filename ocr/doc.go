// Package ocr defines the capability boundary between image preprocessing and
// a text-recognition engine. Engines are injected by callers, so a real
// Tesseract installation and a deterministic stub look the same to the code
// that reads registration numbers.
package ocr
