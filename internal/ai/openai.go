package ai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using the official openai-go SDK.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for an OpenAI or Azure OpenAI endpoint.
// Retries are left to WithRetry.
func NewOpenAIClient(apiType, apiKey, baseURL, apiVersion, model string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if apiType == "azure" {
		opts = append(opts,
			azure.WithEndpoint(baseURL, apiVersion),
			azure.WithAPIKey(apiKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(apiKey))
		if baseURL != "" {
			opts = append(opts, option.WithBaseURL(baseURL))
		}
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		model:  model,
	}
}

// Complete sends the prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       c.model,
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &ServiceError{Kind: classifyOpenAI(err), Err: err}
	}

	if len(completion.Choices) == 0 {
		return "", &ServiceError{Kind: KindMalformed, Err: errors.New("no choices returned from model")}
	}

	return completion.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) Kind {
	if kind, ok := kindFromTransport(err); ok {
		return kind
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return kindFromStatus(apiErr.StatusCode)
	}
	return KindUnavailable
}
