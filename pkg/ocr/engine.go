package ocr

import (
	"context"
	"image"
)

// Engine is the narrow capability surface the pipeline needs from an OCR
// backend. Exactly two operations are consumed: an OSD-style orientation
// report and plain text recognition. Implementations must be safe for
// concurrent use by multiple pipeline workers.
type Engine interface {
	// DetectOrientation reports how many degrees the image must be rotated
	// clockwise to bring its text upright (0, 90, 180 or 270 for Tesseract).
	DetectOrientation(ctx context.Context, img image.Image) (int, error)

	// Recognize runs text recognition over a preprocessed (binary) image and
	// returns the raw text, which may be empty.
	Recognize(ctx context.Context, img image.Image) (string, error)
}
