package ocr

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultTimeout bounds each external OCR call. Tesseract can hang on
// corrupt input, so the pipeline never waits on it unbounded.
const DefaultTimeout = 30 * time.Second

// Pipeline runs one receipt image through orientation correction,
// normalization, recognition and field extraction. A single Pipeline may be
// shared by concurrent workers; each run owns its own image buffers and no
// state is shared between runs.
type Pipeline struct {
	engine  Engine
	timeout time.Duration
}

// NewPipeline builds a pipeline around the given engine. A non-positive
// timeout falls back to DefaultTimeout.
func NewPipeline(engine Engine, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{engine: engine, timeout: timeout}
}

// ProcessFile decodes the image at path and runs the full pipeline. The only
// failure surfaced is ErrDecode; orientation and recognition failures
// degrade to an upright image and empty text respectively, so callers always
// receive a well-formed Result.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Result, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	octx, cancel := context.WithTimeout(ctx, p.timeout)
	img = CorrectOrientation(octx, p.engine, img)
	cancel()

	bin := Normalize(img, MethodDefault)

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	text, err := p.engine.Recognize(rctx, bin)
	cancel()
	if err != nil {
		// Recognition failure is swallowed: downstream treats empty text as
		// "no fields found", not as an error.
		log.Printf("text recognition failed for %s: %v", path, err)
		text = ""
	}

	return ExtractAll(text), nil
}
