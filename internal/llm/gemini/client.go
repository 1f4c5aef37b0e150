// Package gemini implements llm.FieldExtractor on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/llm"
)

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string // optional endpoint override
	Model       string // e.g., "gemini-2.5-flash"
	Temperature float32
	Timeout     time.Duration
	MaxChars    int
}

type Client struct {
	cfg    Config
	api    *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{cfg: cfg, api: api, logger: logger}, nil
}

// ExtractFields asks for a JSON response constrained by resumeSchema.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"file", req.Filename,
		"text_len", len(req.Text),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.Models.GenerateContent(ctx,
		c.cfg.Model,
		genai.Text(llm.BuildUserPrompt(req, c.cfg.MaxChars)),
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			ResponseSchema:    resumeSchema(),
			Temperature:       genai.Ptr(c.cfg.Temperature),
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: llm.BuildSystemPrompt()}}},
		},
	)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("llm.extract.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini returned no candidates")
	}

	content := strings.TrimSpace(resp.Text())
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"file", req.Filename,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func resumeSchema() *genai.Schema {
	str := func(desc string) *genai.Schema { return &genai.Schema{Type: genai.TypeString, Description: desc} }
	list := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                str("Full name"),
			"email":               str("Email address"),
			"education":           list("Degrees and institutions"),
			"experience_years":    {Type: genai.TypeNumber, Description: "Total years of experience, inferred from job dates if absent"},
			"current_role":        str("Most recent job title"),
			"current_company":     str("Most recent employer"),
			"investment_approach": list("Fundamental, Systematic or Quantitative"),
			"markets":             list("US, Europe, APAC"),
			"sectors":             list("Industry sectors covered"),
			"skills":              list("Skills"),
		},
		PropertyOrdering: []string{
			"name", "email", "education", "experience_years", "current_role",
			"current_company", "investment_approach", "markets", "sectors", "skills",
		},
	}
}
