package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// MethodDefault is the only normalization strategy currently implemented.
// The method tag is kept on Normalize so alternative strategies can be added
// without changing the pipeline contract.
const MethodDefault = "default"

const (
	// thresholdWindow is the adaptive threshold neighborhood size in pixels.
	thresholdWindow = 11
	// thresholdBias is subtracted from the local mean before comparing.
	thresholdBias = 9
	// blurSigma approximates a 3x3 Gaussian kernel, enough to suppress scan
	// noise without destroying character edges.
	blurSigma = 0.8
)

// Normalize prepares a photographed receipt for text recognition: grayscale
// conversion (luma weighting), a light Gaussian blur, then adaptive
// thresholding. Adaptive rather than global because receipt photos have
// uneven lighting that a single cutoff cannot handle. The output is a
// single-channel binary image with the same dimensions as the input.
func Normalize(img image.Image, method string) *image.Gray {
	// method is reserved; "default" is the single strategy today.
	_ = method
	gray := imaging.Grayscale(img)
	blur := imaging.Blur(gray, blurSigma)
	return adaptiveThreshold(blur, thresholdWindow, thresholdBias)
}

// adaptiveThreshold binarizes using a local-mean cutoff computed over a
// window x window neighborhood via a summed-area table, minus bias.
func adaptiveThreshold(img image.Image, window, bias int) *image.Gray {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	half := window / 2

	lum := make([]int, w*h)
	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := int((r + g + bb) / 3 >> 8)
			idx := y*w + x
			lum[idx] = v
			rowSum += v
			if y == 0 {
				ints[idx] = rowSum
			} else {
				ints[idx] = ints[(y-1)*w+x] + rowSum
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := x-half, y-half
			x1, y1 := x+half, y+half
			if x0 < 0 {
				x0 = 0
			}
			if y0 < 0 {
				y0 = 0
			}
			if x1 >= w {
				x1 = w - 1
			}
			if y1 >= h {
				y1 = h - 1
			}
			sum := ints[y1*w+x1]
			if x0 > 0 {
				sum -= ints[y1*w+x0-1]
			}
			if y0 > 0 {
				sum -= ints[(y0-1)*w+x1]
			}
			if x0 > 0 && y0 > 0 {
				sum += ints[(y0-1)*w+x0-1]
			}
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			th := mean - bias
			if th < 0 {
				th = 0
			}
			var v uint8 = 255
			if lum[y*w+x] < th {
				v = 0
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
