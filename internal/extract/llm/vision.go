package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/extract"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

const visionPrompt = "Transcribe all text in this image exactly as written, including handwriting. " +
	"Return only the transcribed text with no commentary."

// VisionExtractor implements extract.ImageTextExtractor with a multimodal
// chat model.
type VisionExtractor struct {
	client ChatClient
	cfg    Config
	log    *zap.Logger
}

var _ extract.ImageTextExtractor = (*VisionExtractor)(nil)

func NewVisionExtractor(client ChatClient, cfg Config, logger *zap.Logger) *VisionExtractor {
	return &VisionExtractor{
		client: client,
		cfg:    cfg.withDefaults(),
		log:    nopIfNil(logger),
	}
}

func (v *VisionExtractor) Extract(ctx context.Context, image []byte, mimeType string) (extract.TextResult, error) {
	if !extract.IsSupportedImageType(mimeType) {
		return extract.TextResult{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	start := time.Now()
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: v.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		v.log.Error("llm.vision.request_failed",
			zap.Error(err),
			zap.Int("image_bytes", len(image)),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return extract.TextResult{}, fmt.Errorf("chat completion: %w", err)
	}

	content, ok := firstChoice(resp)
	if !ok {
		return extract.TextResult{}, ErrEmptyResponse
	}
	text := strings.TrimSpace(content)

	v.log.Info("llm.vision.ok",
		zap.Int("text_len", len(text)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return extract.TextResult{Text: text, Confidence: extract.HeuristicOCRConfidence(text)}, nil
}
