package classifier

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is the minimal language model surface the classifier needs. Tests
// inject a fake; production wires the OpenAI implementation below.
type Client interface {
	Complete(ctx context.Context, system string, user string, maxTokens int) (string, error)
}

type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Complete runs one chat completion with temperature 0 and a bounded output
// budget. Classification needs determinism, not creativity.
func (c *OpenAIClient) Complete(ctx context.Context, system string, user string, maxTokens int) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
