// Package openai implements text generation against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/infrastructure/resilience"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	api      *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(apiCfg),
		model:    cfg.Model,
		executor: executor,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	request := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
	}
	if params.MaxOutputTokens > 0 {
		request.MaxTokens = params.MaxOutputTokens
	}

	var response goopenai.ChatCompletionResponse
	call := func(ctx context.Context) error {
		var err error
		response, err = c.api.CreateChatCompletion(ctx, request)
		return err
	}

	if err := c.executor.Execute(ctx, "openai.chat", call, classifyOpenAIError); err != nil {
		return "", wrapUnavailableIfNeeded("openai.chat", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choice list")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
