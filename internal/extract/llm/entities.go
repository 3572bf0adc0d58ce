package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/extract"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

var ErrEmptyResponse = errors.New("empty response from model")

const entitySystemPrompt = `You extract appointment requests.
Return ONLY a JSON object with these keys:
- "date_phrase": the date exactly as the user wrote it (e.g. "tomorrow", "next friday", "2026-01-25", "Jan 25, 2026"), or null
- "time_phrase": the time exactly as the user wrote it (e.g. "3pm", "14:30"), or null
- "department": the medical department or service requested (e.g. "Dentist", "Cardiology"), or null
- "confidence": a number from 0 to 1 for how sure you are about the extraction
- "is_clear": true only if the request unambiguously asks for one appointment
Do not resolve relative dates. Do not invent values that are not in the text.`

var entitiesDefinition = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"date_phrase": {Type: jsonschema.String, Description: "date as written by the user, or null"},
		"time_phrase": {Type: jsonschema.String, Description: "time as written by the user, or null"},
		"department":  {Type: jsonschema.String, Description: "requested department, or null"},
		"confidence":  {Type: jsonschema.Number, Description: "extraction confidence between 0 and 1"},
		"is_clear":    {Type: jsonschema.Boolean, Description: "whether the request is unambiguous"},
	},
	Required: []string{"confidence", "is_clear"},
}

// EntityExtractor implements extract.EntityExtractor with a chat model.
type EntityExtractor struct {
	client ChatClient
	cfg    Config
	log    *zap.Logger
}

var _ extract.EntityExtractor = (*EntityExtractor)(nil)

func NewEntityExtractor(client ChatClient, cfg Config, logger *zap.Logger) *EntityExtractor {
	return &EntityExtractor{
		client: client,
		cfg:    cfg.withDefaults(),
		log:    nopIfNil(logger),
	}
}

// ExtractEntities asks the model for entities and validates the reply
// against extract.EntitiesSchema.
func (x *EntityExtractor) ExtractEntities(ctx context.Context, text string) (normalize.RawEntities, error) {
	rid := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, x.cfg.Timeout)
	defer cancel()

	x.log.Debug("llm.entities.start",
		zap.String("req_id", rid),
		zap.String("model", x.cfg.Model),
		zap.Int("text_len", len(text)),
	)

	req := openai.ChatCompletionRequest{
		Model:       x.cfg.Model,
		Temperature: x.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: entitySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.TrimSpace(text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "appointment_entities",
				Schema: &entitiesDefinition,
			},
		},
	}

	resp, err := x.client.CreateChatCompletion(ctx, req)
	if err != nil {
		x.log.Error("llm.entities.request_failed",
			zap.String("req_id", rid),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return normalize.RawEntities{}, fmt.Errorf("chat completion: %w", err)
	}

	content, ok := firstChoice(resp)
	if !ok {
		return normalize.RawEntities{}, ErrEmptyResponse
	}

	entities, err := extract.DecodeEntities(content)
	if err != nil {
		x.log.Warn("llm.entities.invalid_response",
			zap.String("req_id", rid),
			zap.String("content", truncateForLog(content, 200)),
			zap.Error(err),
		)
		return normalize.RawEntities{}, fmt.Errorf("decode entities: %w", err)
	}

	x.log.Info("llm.entities.ok",
		zap.String("req_id", rid),
		zap.Float64("confidence", *entities.Confidence),
		zap.Bool("is_clear", entities.IsClear),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return entities, nil
}
