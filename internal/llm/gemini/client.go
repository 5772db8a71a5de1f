package gemini

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"receiptscan/internal/common"
)

// Config for the Gemini client.
type Config struct {
	APIKey  string        // if empty, falls back to env GEMINI_API_KEY
	Model   string        // e.g. "gemini-2.0-flash"
	Timeout time.Duration // per-call deadline; the client does not retry
}

// Client implements llm.TextGenerator against the Gemini API.
type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

// NewClient builds the client and verifies the credential up front: a
// missing API key fails here, at process start, never per call.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, common.NewExtractionServiceError("GEMINI_API_KEY is not set", nil)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, common.NewExtractionServiceError("create gemini client", err)
	}

	return &Client{
		cfg:    cfg,
		client: client,
		model:  client.GenerativeModel(cfg.Model),
		logger: logger,
	}, nil
}

// Generate sends one prompt and returns the raw completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.logger.Info("llm.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
	)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("llm.generate.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewExtractionServiceError("gemini request failed", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		c.logger.Error("llm.generate.empty", "req_id", rid)
		return "", common.NewExtractionServiceError("no candidates in gemini response", nil)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	c.logger.Info("llm.generate.ok",
		"req_id", rid,
		"bytes", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}

// Close releases the underlying API connection.
func (c *Client) Close() error {
	return c.client.Close()
}
