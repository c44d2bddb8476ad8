package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"bizledger/internal/log"
)

const systemPrompt = `You are an expert financial advisor for a small business.
Given the description of a transaction, suggest a short list of relevant financial categories that could be used to classify it.
Use short title-case names such as "Office Supplies" or "Travel". Most relevant first.`

// categoriesSchema builds a fresh schema per request; Definition.MarshalJSON
// fills in nil maps, so a shared value would be written concurrently.
func categoriesSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"categories": {
				Type:        jsonschema.Array,
				Description: "Suggested financial categories, most relevant first",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required:             []string{"categories"},
		AdditionalProperties: false,
	}
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint, for example a local
	// Ollama at http://localhost:11434/v1. Empty means api.openai.com.
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI asks a chat completion model for categories using a strict JSON
// schema response format. It does not retry.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *log.Logger
}

var _ Suggester = (*OpenAI)(nil)

func NewOpenAI(cfg OpenAIConfig, logger *log.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger.WithComponent(log.ComponentSuggest),
	}
}

func (o *OpenAI) Suggest(ctx context.Context, description string) ([]string, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Description: " + desc},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "financial_categories",
				Schema: categoriesSchema(),
				Strict: true,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		o.logger.WarnContext(ctx, "Category suggestion request failed",
			log.FieldOperation, log.OpSuggest, log.FieldError, err, "status", apiStatus(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	var out categoriesResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		o.logger.WarnContext(ctx, "Category suggestion response was not valid JSON",
			log.FieldError, err, "raw", resp.Choices[0].Message.Content)
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	cats := normalize(out.Categories)
	o.logger.DebugContext(ctx, "Categories suggested",
		log.FieldCount, len(cats), log.FieldDuration, time.Since(start).Milliseconds())
	return cats, nil
}

func apiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
