package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codr1/releaseboard/internal/upstream"
)

const serviceName = "OpenAI"

// ChatModel is the slice of the OpenAI client the routers use.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ModelConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewOpenAIClient builds a chat client for OpenAI or any compatible endpoint.
func NewOpenAIClient(cfg ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientConfig)
}

func complete(ctx context.Context, model ChatModel, request openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	resp, err := model.CreateChatCompletion(ctx, request)
	if err != nil {
		return openai.ChatCompletionMessage{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, &upstream.Error{Service: serviceName, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message, nil
}

// classifyError separates throttling from every other model failure.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	return &upstream.Error{
		Service:     serviceName,
		RateLimited: status == http.StatusTooManyRequests,
		Err:         fmt.Errorf("chat completion: %w", err),
	}
}

func toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		if msg.ImageURL == "" || msg.Role != RoleUser {
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
			continue
		}

		parts := []openai.ChatMessagePart{}
		if msg.Content != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: msg.Content})
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: msg.ImageURL, Detail: openai.ImageURLDetailAuto},
		})
		out = append(out, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}
	return out
}

func systemMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}
