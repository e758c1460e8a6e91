package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

// OpenAI talks to any OpenAI-compatible chat completion endpoint.
// One client is kept per credential because go-openai binds the key at construction.
type OpenAI struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[string]*openai.Client
}

var _ question.TextGenerator = (*OpenAI)(nil)

func NewOpenAI(cfg Config, logger zerolog.Logger) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &OpenAI{
		cfg:     cfg,
		logger:  logger.With().Str("component", "openai").Logger(),
		clients: make(map[string]*openai.Client),
	}
}

func (o *OpenAI) client(credential string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[credential]; ok {
		return c
	}
	config := openai.DefaultConfig(credential)
	if o.cfg.BaseURL != "" {
		config.BaseURL = o.cfg.BaseURL
	}
	c := openai.NewClientWithConfig(config)
	o.clients[credential] = c
	return c
}

func (o *OpenAI) Generate(ctx context.Context, credential string, req question.GenerateRequest) (string, error) {
	msgs := []openai.ChatCompletionMessage{}
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
	// json_object mode requires an object at the top level; the batch parser accepts
	// the {"questions": [...]} envelope for that reason.
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client(credential).CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", o.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: generator returned no choices", question.ErrBatchParse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) classify(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		o.logger.Debug().Int("status", apiErr.HTTPStatusCode).Str("type", apiErr.Type).Msg("generator api error")
		if classified := classifyStatus(apiErr.HTTPStatusCode); classified != nil {
			return classified
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if classified := classifyStatus(reqErr.HTTPStatusCode); classified != nil {
			return classified
		}
	}
	return classifyTransport(ctx, err)
}
