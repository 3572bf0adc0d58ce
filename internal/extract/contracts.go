// Package extract defines the AI collaborators that feed the normalization
// pipeline and the shared helpers their implementations use.
package extract

import (
	"context"
	"strings"

	"github.com/hackgods/appointment-intake/internal/normalize"
)

// EntityExtractor turns free text into raw appointment entities.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) (normalize.RawEntities, error)
}

// ImageTextExtractor reads the text out of an image.
type ImageTextExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (TextResult, error)
}

type TextResult struct {
	Text       string
	Confidence float64
}

// SupportedImageTypes lists the MIME types accepted for image intake.
var SupportedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
}

func IsSupportedImageType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, t := range SupportedImageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// HeuristicOCRConfidence is a placeholder score: 0.90 when the trimmed text
// is longer than 10 characters, 0.70 otherwise. It does not measure OCR
// quality.
func HeuristicOCRConfidence(text string) float64 {
	if len(strings.TrimSpace(text)) > 10 {
		return 0.90
	}
	return 0.70
}
