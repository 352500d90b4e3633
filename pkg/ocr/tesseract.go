package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine on top of the local Tesseract install.
// Recognition goes through gosseract; orientation detection shells out to
// the tesseract binary in OSD mode (--psm 0) because gosseract does not
// expose the OSD report.
type TesseractEngine struct {
	// Language is the Tesseract language code (default "eng").
	Language string
}

// NewTesseractEngine returns an engine configured for English receipts.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{Language: "eng"}
}

// Recognize runs a single-uniform-block recognition pass (PSM 6). Receipts
// are assumed to be one contiguous text region, not multi-column.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encode for ocr: %w", err)
	}
	client := gosseract.NewClient()
	_ = client.SetLanguage(e.lang())
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err := client.SetImageFromBytes(data); err != nil {
		client.Close()
		return "", fmt.Errorf("set image: %w", err)
	}
	// Text has no context support; run it on the side so a per-image timeout
	// can abandon a hung engine. The goroutine closes the client when the
	// engine finally returns.
	done := make(chan struct{})
	var text string
	var terr error
	go func() {
		text, terr = client.Text()
		client.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
	}
	if terr != nil {
		return "", fmt.Errorf("ocr error: %w", terr)
	}
	return text, nil
}

// DetectOrientation runs tesseract in OSD-only mode and parses the
// "Rotate: N" line of the report.
func (e *TesseractEngine) DetectOrientation(ctx context.Context, img image.Image) (int, error) {
	data, err := encodePNG(img)
	if err != nil {
		return 0, fmt.Errorf("encode for osd: %w", err)
	}
	cmd := exec.CommandContext(ctx, "tesseract", "stdin", "stdout", "--psm", "0", "-l", e.lang())
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("tesseract osd: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseOSDRotation(stdout.String())
}

func (e *TesseractEngine) lang() string {
	if e.Language == "" {
		return "eng"
	}
	return e.Language
}

// parseOSDRotation extracts the rotation angle from an OSD text report.
func parseOSDRotation(report string) (int, error) {
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Rotate:") {
			continue
		}
		v := strings.TrimSpace(strings.TrimPrefix(line, "Rotate:"))
		angle, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse osd rotation %q: %w", v, err)
		}
		return angle, nil
	}
	return 0, fmt.Errorf("osd report has no Rotate line")
}

// encodePNG renders an image into PNG bytes for the engine.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
