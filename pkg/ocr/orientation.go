package ocr

import (
	"context"
	"image"
	"image/color"
	"log"

	"github.com/disintegration/imaging"
)

// CorrectOrientation asks the engine for an OSD rotation report and re-renders
// the image upright. Any detector failure is swallowed and treated as angle 0:
// the corrector is fail-open and never propagates detector errors. An angle of
// 0 passes the image through unchanged.
func CorrectOrientation(ctx context.Context, engine Engine, img image.Image) image.Image {
	angle, err := engine.DetectOrientation(ctx, img)
	if err != nil {
		log.Printf("orientation detection failed, assuming upright: %v", err)
		return img
	}
	return RotateUpright(img, angle)
}

// RotateUpright rotates the image clockwise by angle degrees, expanding the
// canvas so no content is cropped. Right angles rotate losslessly; other
// angles fall back to a bound-preserving interpolated rotation with a white
// background. Angle 0 returns the input untouched.
func RotateUpright(img image.Image, angle int) image.Image {
	angle = ((angle % 360) + 360) % 360
	switch angle {
	case 0:
		return img
	case 90:
		// imaging rotations are counter-clockwise.
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return imaging.Rotate(img, -float64(angle), color.NRGBA{255, 255, 255, 255})
}
