package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/extract"
	"github.com/hackgods/appointment-intake/internal/normalize"
	redisclient "github.com/hackgods/appointment-intake/internal/redis"
)

var (
	ErrEmptyText          = errors.New("text is required")
	ErrEmptyImage         = errors.New("image is required")
	ErrUnsupportedImage   = errors.New("unsupported image type")
	ErrImageTooLarge      = errors.New("image exceeds size limit")
	ErrImageExtraction    = errors.New("could not read text from image")
	ErrDuplicateRequest   = errors.New("request with this idempotency key was already accepted")
	ErrIdempotencyBackend = errors.New("idempotency backend unavailable")
)

// Deps are the collaborators of a Service. Guard may be nil, in which case
// idempotency keys are ignored. Images may be nil to disable image intake.
type Deps struct {
	Repo          Repository
	Entities      extract.EntityExtractor
	Images        extract.ImageTextExtractor
	Pipeline      *normalize.Pipeline
	Guard         redisclient.Guard
	Logger        *zap.Logger
	MaxImageBytes int
	Now           func() time.Time
}

type Service struct {
	repo          Repository
	entities      extract.EntityExtractor
	images        extract.ImageTextExtractor
	pipeline      *normalize.Pipeline
	guard         redisclient.Guard
	log           *zap.Logger
	maxImageBytes int
	now           func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		repo:          d.Repo,
		entities:      d.Entities,
		images:        d.Images,
		pipeline:      d.Pipeline,
		guard:         d.Guard,
		log:           d.Logger,
		maxImageBytes: d.MaxImageBytes,
		now:           d.Now,
	}
}

// ProcessText runs free text through extraction and normalization and
// persists the record on Commit.
func (s *Service) ProcessText(ctx context.Context, req TextRequest) (*Outcome, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if _, err := normalize.LoadLocation(req.Timezone); err != nil {
		return nil, err
	}

	if req.IdempotencyKey == "" || s.guard == nil {
		return s.intake(ctx, SourceText, text, req.Timezone, nil)
	}

	var out *Outcome
	var intakeErr error
	err := s.guard.Once(ctx, req.IdempotencyKey, func(ctx context.Context) error {
		out, intakeErr = s.intake(ctx, SourceText, text, req.Timezone, nil)
		return intakeErr
	})
	switch {
	case intakeErr != nil:
		return nil, intakeErr
	case errors.Is(err, redisclient.ErrKeyClaimed):
		return nil, ErrDuplicateRequest
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrIdempotencyBackend, err)
	}
	return out, nil
}

// ProcessImage reads the text out of an image and continues as ProcessText.
// OCR text that is blank routes straight to Clarify.
func (s *Service) ProcessImage(ctx context.Context, req ImageRequest) (*Outcome, error) {
	if len(req.Image) == 0 {
		return nil, ErrEmptyImage
	}
	if s.maxImageBytes > 0 && len(req.Image) > s.maxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrImageTooLarge, len(req.Image), s.maxImageBytes)
	}
	if !extract.IsSupportedImageType(req.MimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, req.MimeType)
	}
	if _, err := normalize.LoadLocation(req.Timezone); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, fmt.Errorf("%w: image intake is disabled", ErrImageExtraction)
	}

	res, err := s.images.Extract(ctx, req.Image, req.MimeType)
	if err != nil {
		s.log.Warn("intake.image.extract_failed", zap.Error(err), zap.String("mime_type", req.MimeType))
		return nil, fmt.Errorf("%w: %v", ErrImageExtraction, err)
	}
	ocrConf := res.Confidence

	text := strings.TrimSpace(res.Text)
	if text == "" {
		result, err := s.pipeline.Run(normalize.Unclear(), req.Timezone)
		if err != nil {
			return nil, err
		}
		return &Outcome{
			Decision: normalize.Decision{
				Kind:       normalize.Clarify,
				Normalized: result.Normalized,
				Message:    normalize.GenericClarification,
			},
			Entities:      normalize.Unclear(),
			Normalized:    result.Normalized,
			Confidence:    result.Confidence,
			OCRConfidence: &ocrConf,
		}, nil
	}

	return s.intake(ctx, SourceImage, text, req.Timezone, &ocrConf)
}

func (s *Service) intake(ctx context.Context, source Source, text, tz string, ocrConf *float64) (*Outcome, error) {
	entities, err := s.entities.ExtractEntities(ctx, text)
	if err != nil {
		s.log.Warn("intake.entities.extract_failed", zap.Error(err), zap.String("source", string(source)))
		entities = normalize.Unclear()
	} else if entities.Confidence == nil {
		s.log.Warn("intake.entities.missing_confidence", zap.String("source", string(source)))
		entities = normalize.Unclear()
	}

	result, err := s.pipeline.Run(entities, tz)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Decision:      result.Decision,
		Entities:      entities,
		Normalized:    result.Normalized,
		Confidence:    result.Confidence,
		OCRConfidence: ocrConf,
		RawText:       text,
	}

	if !result.Decision.IsCommit() {
		s.log.Info("intake.clarify",
			zap.String("source", string(source)),
			zap.String("message", result.Decision.Message),
		)
		return out, nil
	}

	rec := &Record{
		ID:                uuid.New(),
		RawText:           text,
		ExtractedEntities: entities,
		NormalizedData:    result.Normalized,
		Department:        ResolveDepartment(result.Normalized, entities),
		Status:            StatusSuccess,
		Source:            source,
		OCRConfidence:     ocrConf,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	out.Record = rec

	s.log.Info("intake.commit",
		zap.String("id", rec.ID.String()),
		zap.String("source", string(source)),
		zap.String("department", rec.Department),
		zap.Stringp("datetime", rec.NormalizedData.DateTime),
	)
	return out, nil
}

// GetRecord retrieves one committed record.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ListRecords returns committed records newest first.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}
