package openai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/sashabaranov/go-openai"

    "github.com/bryanwahyu/launchlens/internal/domain/ai"
)

const (
    maxTokens    = 2048
    defaultModel = "gpt-4o-mini"
)

type Client struct {
    *openai.Client
    Model string
}

// NewClient builds a chat client. baseURL is optional and points at an
// OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
    cfg := openai.DefaultConfig(apiKey)
    if baseURL != "" {
        cfg.BaseURL = baseURL
    }
    return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Complete(ctx context.Context, p ai.Prompt) (string, error) {
    model := c.Model
    if model == "" {
        model = defaultModel
    }
    req := openai.ChatCompletionRequest{
        Model: model,
        ResponseFormat: &openai.ChatCompletionResponseFormat{
            Type: openai.ChatCompletionResponseFormatTypeJSONObject,
        },
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: p.System},
            {Role: openai.ChatMessageRoleUser, Content: p.User},
        },
    }
    // For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
    if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
        req.MaxCompletionTokens = maxTokens
    } else {
        req.MaxTokens = maxTokens
    }

    resp, err := c.CreateChatCompletion(ctx, req)
    if err != nil {
        if isRateLimited(err) {
            return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
        }
        return "", fmt.Errorf("failed to create chat completion: %w", err)
    }
    if len(resp.Choices) == 0 {
        return "", ai.ErrEmptyCompletion
    }

    return resp.Choices[0].Message.Content, nil
}

func isRateLimited(err error) bool {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) {
        return apiErr.HTTPStatusCode == http.StatusTooManyRequests
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) {
        return reqErr.HTTPStatusCode == http.StatusTooManyRequests
    }
    return false
}
