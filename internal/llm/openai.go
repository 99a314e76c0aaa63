package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/m3rciful/qabot/core/logger"
	"log/slog"
)

// OpenAIClient implements Generator against the OpenAI chat completions API.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient builds a client for the given model.
func NewOpenAIClient(apiKey, model string, maxTokens int) *OpenAIClient {
	return &OpenAIClient{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate sends the composed prompt and returns the model's text.
func (o *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range req.History {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(user))

	reqID := uuid.New().String()
	start := time.Now()
	logger.LLM.LogAttrs(ctx, slog.LevelDebug, "generate.start",
		slog.String("event", "generate.start"),
		slog.String("req_id", reqID),
		slog.String("model", o.model),
		slog.String("format", req.Format),
		slog.Int("chars", len(user)),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		logger.LLM.LogAttrs(ctx, slog.LevelError, "generate.fail",
			slog.String("event", "generate.fail"),
			slog.String("req_id", reqID),
			slog.String("model", o.model),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.String("err", err.Error()),
		)
		return "", &Error{Kind: KindBackend, Detail: "model call failed", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindEmpty, Detail: "no choices in response"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &Error{Kind: KindEmpty, Detail: "empty completion text"}
	}

	logger.LLM.LogAttrs(ctx, slog.LevelInfo, "generate.success",
		slog.String("event", "generate.success"),
		slog.String("req_id", reqID),
		slog.String("model", o.model),
		slog.String("format", req.Format),
		slog.Int("chars", len(text)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return text, nil
}
