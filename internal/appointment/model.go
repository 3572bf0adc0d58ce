package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-intake/internal/normalize"
)

type RecordStatus string

const (
	StatusSuccess RecordStatus = "success"
)

type Source string

const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

// DefaultDepartment is used when neither the normalized nor the raw
// extraction carries a department.
const DefaultDepartment = "General"

// Record is a committed appointment. Records are append-only.
type Record struct {
	ID                uuid.UUID                       `json:"id"`
	RawText           string                          `json:"raw_text"`
	ExtractedEntities normalize.RawEntities           `json:"extracted_entities"`
	NormalizedData    normalize.NormalizedAppointment `json:"normalized_data"`
	Department        string                          `json:"department"`
	Status            RecordStatus                    `json:"status"`
	Source            Source                          `json:"source"`
	OCRConfidence     *float64                        `json:"ocr_confidence,omitempty"`
	CreatedAt         time.Time                       `json:"created_at"`
}

// TextRequest is one free-text intake.
type TextRequest struct {
	Text           string
	Timezone       string
	IdempotencyKey string
}

// ImageRequest is one image intake.
type ImageRequest struct {
	Image    []byte
	MimeType string
	Timezone string
}

// Outcome is what an intake produced. Record is nil unless the decision
// was Commit.
type Outcome struct {
	Decision      normalize.Decision
	Entities      normalize.RawEntities
	Normalized    normalize.NormalizedAppointment
	Confidence    float64
	OCRConfidence *float64
	RawText       string
	Record        *Record
}

// ResolveDepartment picks the first non-blank of the normalized department,
// the raw department, and DefaultDepartment.
func ResolveDepartment(n normalize.NormalizedAppointment, e normalize.RawEntities) string {
	for _, d := range []*string{n.Department, e.Department} {
		if d != nil {
			if v := strings.TrimSpace(*d); v != "" {
				return v
			}
		}
	}
	return DefaultDepartment
}
