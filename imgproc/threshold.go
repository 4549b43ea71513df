package imgproc

import (
	"fmt"
	"image"
)

// ThresholdMode selects how the binarization threshold is chosen.
type ThresholdMode int

const (
	// ThresholdOtsu derives the threshold from the image histogram and uses
	// the fixed value only when the histogram has a single intensity.
	ThresholdOtsu ThresholdMode = iota
	// ThresholdFixed always uses the fixed value.
	ThresholdFixed
)

// DefaultFixedThreshold is the fixed comparison value used when Otsu cannot
// split the histogram.
const DefaultFixedThreshold uint8 = 150

func (m ThresholdMode) String() string {
	switch m {
	case ThresholdOtsu:
		return "otsu"
	case ThresholdFixed:
		return "fixed"
	default:
		return fmt.Sprintf("ThresholdMode(%d)", int(m))
	}
}

// ParseThresholdMode maps a configuration string to a ThresholdMode.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch s {
	case "", "otsu":
		return ThresholdOtsu, nil
	case "fixed":
		return ThresholdFixed, nil
	default:
		return 0, fmt.Errorf("unknown threshold mode %q", s)
	}
}

// BinarizeOptions configures Binarize.
type BinarizeOptions struct {
	Mode  ThresholdMode
	Fixed uint8
}

// Histogram counts pixels per intensity.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := g.PixOffset(b.Min.X, y)
		for _, v := range g.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}
	return hist
}

// OtsuThreshold returns the intensity t maximizing the between-class
// variance of the partition [0, t] and (t, 255]. ok is false when the image
// is empty or holds a single intensity.
func OtsuThreshold(g *image.Gray) (t uint8, ok bool) {
	hist := Histogram(g)
	var total int
	var sum float64
	for i, c := range hist {
		total += c
		sum += float64(i * c)
	}
	if total == 0 {
		return 0, false
	}

	var (
		weightB int
		sumB    float64
		best    = -1.0
	)
	for i := 0; i < 256; i++ {
		weightB += hist[i]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	if best <= 0 {
		return 0, false
	}
	return t, true
}

// Binarize applies an inverted binary threshold: pixels brighter than the
// threshold become 0 and all others 255, so dark strokes on light paper end
// up as foreground. It returns the binary image and the threshold used.
func Binarize(g *image.Gray, opts BinarizeOptions) (*image.Gray, uint8) {
	t := opts.Fixed
	if opts.Mode == ThresholdOtsu {
		if otsu, ok := OtsuThreshold(g); ok {
			t = otsu
		}
	}
	b := g.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		src := g.Pix[off : off+b.Dx()]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x, v := range src {
			if v <= t {
				out[x] = 255
			}
		}
	}
	return dst, t
}
