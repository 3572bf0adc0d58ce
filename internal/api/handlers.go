package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

// IntakeService is what the handlers need from *appointment.Service.
type IntakeService interface {
	ProcessText(ctx context.Context, req appointment.TextRequest) (*appointment.Outcome, error)
	ProcessImage(ctx context.Context, req appointment.ImageRequest) (*appointment.Outcome, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*appointment.Record, error)
	ListRecords(ctx context.Context, limit, offset int) ([]appointment.Record, error)
}

const maxTextBody = 64 << 10

func textIntakeHandler(svc IntakeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextIntakeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		out, err := svc.ProcessText(r.Context(), appointment.TextRequest{
			Text:           req.Text,
			Timezone:       req.Timezone,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			handleIntakeError(w, r, log, err)
			return
		}
		writeOutcome(w, out)
	}
}

func imageIntakeHandler(svc IntakeService, maxImageBytes int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxImageBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, int64(maxImageBytes)+1<<20)
		}
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "image_too_large", "upload exceeds size limit")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_multipart", "expected multipart/form-data with an image field")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_image", "image field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable_image", err.Error())
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}

		out, err := svc.ProcessImage(r.Context(), appointment.ImageRequest{
			Image:    data,
			MimeType: mimeType,
			Timezone: r.FormValue("timezone"),
		})
		if err != nil {
			handleIntakeError(w, r, log, err)
			return
		}
		writeOutcome(w, out)
	}
}

func listRecordsHandler(svc IntakeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", 20)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}

		records, err := svc.ListRecords(r.Context(), limit, offset)
		if err != nil {
			handleIntakeError(w, r, log, err)
			return
		}
		if records == nil {
			records = []appointment.Record{}
		}
		writeJSON(w, http.StatusOK, ListResponse{Appointments: records, Limit: limit, Offset: offset})
	}
}

func getRecordHandler(svc IntakeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		rec, err := svc.GetRecord(r.Context(), id)
		if err != nil {
			handleIntakeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeOutcome(w http.ResponseWriter, out *appointment.Outcome) {
	if out.Decision.IsCommit() {
		writeJSON(w, http.StatusCreated, CommitResponse{
			Status:        statusSuccess,
			Appointment:   out.Record,
			Confidence:    out.Confidence,
			OCRConfidence: out.OCRConfidence,
		})
		return
	}

	resp := ClarifyResponse{
		Status:        statusNeedsClarification,
		Message:       out.Decision.Message,
		Entities:      out.Entities,
		Normalized:    out.Normalized,
		Confidence:    out.Confidence,
		OCRConfidence: out.OCRConfidence,
	}
	if out.OCRConfidence != nil {
		resp.ExtractedText = out.RawText
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleIntakeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "empty_text", err.Error())
	case errors.Is(err, appointment.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "empty_image", err.Error())
	case errors.Is(err, appointment.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, "unsupported_image_type", err.Error())
	case errors.Is(err, normalize.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, "invalid_timezone", err.Error())
	case errors.Is(err, appointment.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "image_too_large", err.Error())
	case errors.Is(err, appointment.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", err.Error())
	case errors.Is(err, appointment.ErrImageExtraction):
		writeError(w, http.StatusBadGateway, "image_extraction_failed", err.Error())
	case errors.Is(err, appointment.ErrIdempotencyBackend):
		writeError(w, http.StatusServiceUnavailable, "idempotency_unavailable", "retry without Idempotency-Key or later")
	default:
		log.Error("http.internal_error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
