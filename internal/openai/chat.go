package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

// DefaultChatModel is the chat model used for structured answers
const DefaultChatModel = openai.GPT4oMini

var (
	// ErrEmptyCompletion is returned when the model answers without content
	ErrEmptyCompletion = errors.New("completion has no content")
	// ErrInvalidTarget is returned when the decode target is not a non-nil pointer
	ErrInvalidTarget = errors.New("structured output target must be a non-nil pointer")
)

// ChatAPI is the part of the go-openai client used for chat completions.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatModel answers prompts with JSON constrained to the schema of the target type.
type ChatModel struct {
	api    ChatAPI
	model  string
	logger *zap.Logger
}

func NewChatModel(api ChatAPI, model string, log *zap.Logger) *ChatModel {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatModel{
		api:    api,
		model:  model,
		logger: logger.Named(log, "openai"),
	}
}

// GenerateStructured sends req.Prompt and decodes the schema-validated answer into out.
func (m *ChatModel) GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}

	schema, err := jsonschema.GenerateSchemaForType(rv.Elem().Interface())
	if err != nil {
		return fmt.Errorf("failed to build schema for %s: %w", req.Name, err)
	}

	m.logger.Debug("structured completion",
		zap.String("name", req.Name),
		zap.String("model", m.model),
		zap.String("prompt", logger.TruncateForLog(req.Prompt, 200)),
	)

	resp, err := m.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		// zero is dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion %s: %w", req.Name, err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion %s: %w", req.Name, ErrEmptyCompletion)
	}
	choice := resp.Choices[0].Message
	if choice.Refusal != "" {
		return fmt.Errorf("chat completion %s refused: %s", req.Name, choice.Refusal)
	}
	content := strings.TrimSpace(choice.Content)
	if content == "" {
		return fmt.Errorf("chat completion %s: %w", req.Name, ErrEmptyCompletion)
	}

	if err := schema.Unmarshal(content, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.Name, err)
	}
	return nil
}
