package ocr

import "errors"

// ErrDecode is returned when source bytes cannot be interpreted as an image.
// It is the only pipeline error surfaced to callers; orientation and
// recognition failures degrade to defaults instead.
var ErrDecode = errors.New("cannot decode image")
