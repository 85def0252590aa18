package repo

import (
	"context"
	"errors"
)

// ErrNotAnImage is returned when media bytes do not decode as an image
var ErrNotAnImage = errors.New("media is not an image")

// OCRRepo extracts text from images
type OCRRepo interface {
	// ExtractText returns the text recognized in the image, or ErrNotAnImage
	ExtractText(ctx context.Context, image []byte) (string, error)
}
