package ocr

import (
	"context"
	"image"
)

// stubEngine is a deterministic Engine for tests: a canned angle (or error)
// for orientation detection and a per-image text function for recognition.
type stubEngine struct {
	angle    int
	angleErr error
	text     func(img image.Image) string
	textErr  error
}

func (s *stubEngine) DetectOrientation(ctx context.Context, img image.Image) (int, error) {
	if s.angleErr != nil {
		return 0, s.angleErr
	}
	return s.angle, nil
}

func (s *stubEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if s.textErr != nil {
		return "", s.textErr
	}
	if s.text == nil {
		return "", nil
	}
	return s.text(img), nil
}
