package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// Config holds connection details shared by the transports.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Gemini calls the generateContent REST endpoint. The API key travels per request.
type Gemini struct {
	httpClient *http.Client
	endpoint   string
	logger     zerolog.Logger
}

var _ question.TextGenerator = (*Gemini)(nil)

func NewGemini(cfg Config, logger zerolog.Logger) *Gemini {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGeminiURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &Gemini{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, model),
		logger:     logger.With().Str("component", "gemini").Logger(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Generate(ctx context.Context, credential string, req question.GenerateRequest) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature: req.Temperature,
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		payload.GenerationConfig.ResponseMIMEType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", credential)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Debug().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("generator rejected request")
		return "", err
	}

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decode generator payload: %v", question.ErrBatchParse, err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: generator returned no candidates", question.ErrBatchParse)
	}

	var out strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}

func classifyTransport(ctx context.Context, err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", question.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", question.ErrNetwork, err)
}

func classifyStatus(status int) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", question.ErrCredentialRejected, status)
	default:
		return fmt.Errorf("%w: status %d", question.ErrNetwork, status)
	}
}
