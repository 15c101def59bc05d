package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var ErrDisabled = errors.New("ai is not configured")

// OpenAICompleter backs ports.ChatCompleter with the OpenAI chat API. A nil
// client (empty api key) turns every call into ErrDisabled so the rest of
// the app can treat AI as an optional feature.
type OpenAICompleter struct {
	client *openai.Client
	model  shared.ChatModel
}

func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if apiKey == "" {
		return &OpenAICompleter{}
	}
	chatModel := shared.ChatModel(model)
	if model == "" {
		chatModel = shared.ChatModelGPT4oMini
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAICompleter{client: &c, model: chatModel}
}

func (s *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if s.client == nil {
		return "", ErrDisabled
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ ports.ChatCompleter = (*OpenAICompleter)(nil)
