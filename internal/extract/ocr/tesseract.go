// Package ocr reads text out of images with the Tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/extract"
)

// Config holds the Tesseract configuration.
type Config struct {
	// TesseractPath is the tesseract executable, "tesseract" when empty.
	TesseractPath string
	// DataPath is the tessdata directory (optional).
	DataPath string
	// Languages passed with -l, "eng" when empty.
	Languages string
	// PSM is the page segmentation mode; 0 keeps the tesseract default.
	PSM int
}

// Runner lets tests stub the external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Client implements extract.ImageTextExtractor.
type Client struct {
	cfg    Config
	runner Runner
	log    *zap.Logger
}

var _ extract.ImageTextExtractor = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return newClient(cfg, execRunner{}, logger)
}

func newClient(cfg Config, runner Runner, logger *zap.Logger) *Client {
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, runner: runner, log: logger}
}

// Extract writes the image to a temp file and runs
// `tesseract <file> stdout -l <lang>`.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) (extract.TextResult, error) {
	if !extract.IsSupportedImageType(mimeType) {
		return extract.TextResult{}, errors.Errorf("unsupported MIME type: %s", mimeType)
	}

	tmpFile, err := os.CreateTemp("", "intake_ocr_*")
	if err != nil {
		return extract.TextResult{}, errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(image); err != nil {
		tmpFile.Close()
		return extract.TextResult{}, errors.Wrap(err, "failed to write temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return extract.TextResult{}, errors.Wrap(err, "failed to close temp file")
	}

	args := []string{tmpPath, "stdout", "-l", c.cfg.Languages}
	if c.cfg.DataPath != "" {
		args = append(args, "--tessdata-dir", c.cfg.DataPath)
	}
	if c.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(c.cfg.PSM))
	}

	start := time.Now()
	out, stderr, err := c.runner.Run(ctx, c.cfg.TesseractPath, args...)
	if err != nil {
		c.log.Warn("tesseract command failed",
			zap.Error(err),
			zap.String("stderr", string(stderr)),
		)
		return extract.TextResult{}, errors.Wrap(err, "tesseract command failed")
	}

	text := Clean(string(out))
	c.log.Debug("tesseract ok",
		zap.Int("text_len", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return extract.TextResult{Text: text, Confidence: extract.HeuristicOCRConfidence(text)}, nil
}

var (
	boxNoise   = regexp.MustCompile(`[|_~]{2,}`)
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Clean strips common OCR line noise and collapses whitespace.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = boxNoise.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
