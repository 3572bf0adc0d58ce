package api

import (
	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

const (
	statusSuccess            = "success"
	statusNeedsClarification = "needs_clarification"
)

type TextIntakeRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// CommitResponse is returned with 201 when a record was created.
type CommitResponse struct {
	Status        string              `json:"status"`
	Appointment   *appointment.Record `json:"appointment"`
	Confidence    float64             `json:"confidence"`
	OCRConfidence *float64            `json:"ocr_confidence,omitempty"`
}

// ClarifyResponse is returned with 200 when the caller must add details.
type ClarifyResponse struct {
	Status        string                          `json:"status"`
	Message       string                          `json:"message"`
	Entities      normalize.RawEntities           `json:"entities"`
	Normalized    normalize.NormalizedAppointment `json:"normalized"`
	Confidence    float64                         `json:"confidence"`
	OCRConfidence *float64                        `json:"ocr_confidence,omitempty"`
	ExtractedText string                          `json:"extracted_text,omitempty"`
}

type ListResponse struct {
	Appointments []appointment.Record `json:"appointments"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
