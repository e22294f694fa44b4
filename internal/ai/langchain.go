package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient implements Client using langchaingo's OpenAI-compatible model.
type LangChainClient struct {
	model   llms.Model
	timeout time.Duration
}

// NewLangChainClient creates a new OpenAI-compatible client. apiType is
// "openai" or "azure".
func NewLangChainClient(apiType, apiKey, baseURL, apiVersion, model string, timeout time.Duration) (*LangChainClient, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithHTTPClient(&http.Client{Transport: &topPTransport{base: http.DefaultTransport}}),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if apiType == "azure" {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(apiVersion),
		)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &LangChainClient{model: client, timeout: timeout}, nil
}

// Complete sends the prompt as a single human message and returns the first
// choice.
func (c *LangChainClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx = context.WithValue(ctx, topPKey{}, req.TopP)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(req.MaxTokens),
		llms.WithTemperature(req.Temperature),
		llms.WithTopP(req.TopP),
	)
	if err != nil {
		kind, ok := kindFromTransport(err)
		if !ok {
			kind = kindFromMessage(err)
		}
		return "", &ServiceError{Kind: kind, Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", &ServiceError{Kind: KindMalformed, Err: errors.New("no choices returned from model")}
	}

	return resp.Choices[0].Content, nil
}

type topPKey struct{}

// topPTransport adds top_p to chat requests. langchaingo accepts
// llms.WithTopP but does not put it on the wire for OpenAI models.
type topPTransport struct {
	base http.RoundTripper
}

func (t *topPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	topP, ok := req.Context().Value(topPKey{}).(float64)
	if !ok || topP <= 0 || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if !gjson.GetBytes(body, "top_p").Exists() {
		if body, err = sjson.SetBytes(body, "top_p", topP); err != nil {
			return nil, fmt.Errorf("failed to set top_p: %w", err)
		}
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(out)
}
