// Package recognize extracts meter readings from uploaded photos.
package recognize

import "context"

// Recognizer turns a photo of a meter into a reading string suitable for the
// calculator form, or an empty string when nothing could be read.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Disabled is the stand-in recognizer used while no OCR backend is wired up.
// It always reports an empty reading so callers fall back to manual entry.
type Disabled struct{}

var _ Recognizer = Disabled{}

func (Disabled) Recognize(_ context.Context, _ []byte) (string, error) {
	return "", nil
}
