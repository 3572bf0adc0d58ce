package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/extract"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

type entitiesFunc func(ctx context.Context, text string) (normalize.RawEntities, error)

func (f entitiesFunc) ExtractEntities(ctx context.Context, text string) (normalize.RawEntities, error) {
	return f(ctx, text)
}

type imagesFunc func(ctx context.Context, image []byte, mimeType string) (extract.TextResult, error)

func (f imagesFunc) Extract(ctx context.Context, image []byte, mimeType string) (extract.TextResult, error) {
	return f(ctx, image, mimeType)
}

func ptr[T any](v T) *T { return &v }

// byKeyword commits for text mentioning "dentist" and asks for details
// otherwise.
func byKeyword(_ context.Context, text string) (normalize.RawEntities, error) {
	if strings.Contains(text, "fail") {
		return normalize.RawEntities{}, errors.New("llm unavailable")
	}
	if !strings.Contains(text, "dentist") {
		return normalize.RawEntities{DatePhrase: ptr("soon"), Confidence: ptr(0.3)}, nil
	}
	return normalize.RawEntities{
		DatePhrase: ptr("tomorrow"),
		TimePhrase: ptr("3pm"),
		Department: ptr("Dentist"),
		Confidence: ptr(0.92),
		IsClear:    true,
	}, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func newTestServer(t *testing.T, images extract.ImageTextExtractor, rps float64) http.Handler {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC) }
	p, err := normalize.NewPipeline("UTC", now)
	require.NoError(t, err)

	svc := appointment.NewService(appointment.Deps{
		Repo:          appointment.NewMemoryRepository(),
		Entities:      entitiesFunc(byKeyword),
		Images:        images,
		Pipeline:      p,
		MaxImageBytes: 1 << 20,
		Now:           now,
	})
	return NewRouter(RouterConfig{
		Service:       svc,
		Env:           "test",
		Version:       "v0",
		MaxImageBytes: 1 << 20,
		RateLimitRPS:  rps,
		RateBurst:     1,
	})
}

func postText(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/appointments/text", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postImage(t *testing.T, h http.Handler, data []byte, timezone string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "note.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if timezone != "" {
		require.NoError(t, mw.WriteField("timezone", timezone))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/appointments/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTextIntake_Commit(t *testing.T) {
	h := newTestServer(t, nil, 0)

	rec := postText(h, `{"text":"dentist tomorrow at 3pm","timezone":"Asia/Kolkata"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Status      string             `json:"status"`
		Confidence  float64            `json:"confidence"`
		Appointment appointment.Record `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 0.95, resp.Confidence)
	assert.Equal(t, "Dentist", resp.Appointment.Department)
	assert.Equal(t, "2026-01-21", *resp.Appointment.NormalizedData.Date)
	assert.Equal(t, "15:00", *resp.Appointment.NormalizedData.Time)
	assert.Equal(t, "2026-01-21T09:30:00.000Z", *resp.Appointment.NormalizedData.DateTime)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/appointments/"+resp.Appointment.ID.String(), nil))
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestTextIntake_Clarify(t *testing.T) {
	h := newTestServer(t, nil, 0)

	for _, body := range []string{`{"text":"something soon"}`, `{"text":"please fail"}`} {
		rec := postText(h, body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ClarifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "needs_clarification", resp.Status)
		assert.True(t, strings.HasPrefix(resp.Message, "Please provide: "), resp.Message)
	}

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var lr ListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &lr))
	assert.Empty(t, lr.Appointments)
}

func TestTextIntake_BadRequests(t *testing.T) {
	h := newTestServer(t, nil, 0)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad json", `{"text":`, "invalid_request_body"},
		{"empty text", `{"text":"   "}`, "empty_text"},
		{"bad timezone", `{"text":"dentist tomorrow 3pm","timezone":"Moon/Base"}`, "invalid_timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postText(h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestImageIntake(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		var sawType string
		h := newTestServer(t, imagesFunc(func(_ context.Context, _ []byte, mimeType string) (extract.TextResult, error) {
			sawType = mimeType
			return extract.TextResult{Text: "dentist tomorrow 3pm", Confidence: 0.9}, nil
		}), 0)

		rec := postImage(t, h, pngBytes, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", sawType)

		var resp CommitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.OCRConfidence)
		assert.Equal(t, 0.9, *resp.OCRConfidence)
		assert.Equal(t, appointment.SourceImage, resp.Appointment.Source)
	})

	t.Run("ocr failure", func(t *testing.T) {
		h := newTestServer(t, imagesFunc(func(context.Context, []byte, string) (extract.TextResult, error) {
			return extract.TextResult{}, errors.New("tesseract crashed")
		}), 0)
		rec := postImage(t, h, pngBytes, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		h := newTestServer(t, imagesFunc(func(context.Context, []byte, string) (extract.TextResult, error) {
			t.Fatal("extractor must not be called")
			return extract.TextResult{}, nil
		}), 0)
		rec := postImage(t, h, []byte("plain words"), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		h := newTestServer(t, nil, 0)
		req := httptest.NewRequest(http.MethodPost, "/appointments/image", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRecord_Errors(t *testing.T) {
	h := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, nil, 0.001)

	first := postText(h, `{"text":"something soon"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postText(h, `{"text":"something soon"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	assert.Equal(t, http.StatusOK, list.Code, "reads are not rate limited")
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]string{"postgres": "disabled", "redis": "disabled"}, resp.Dependencies)
}
