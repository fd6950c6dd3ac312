package gemini

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

const defaultModel = "gemini-2.5-flash"

var (
	// ErrEmptyResponse is returned when no candidate carries text
	ErrEmptyResponse = errors.New("gemini api returned empty response")
	// ErrInvalidTarget is returned when the decode target is not a non-nil pointer
	ErrInvalidTarget = errors.New("structured output target must be a non-nil pointer")
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Model answers prompts with JSON constrained by a response schema.
type Model struct {
	models    contentGenerator
	modelName string
	logger    *zap.Logger
}

// NewModel creates a Model configured for the Gemini API backend.
func NewModel(ctx context.Context, apiKey, model string, log *zap.Logger) (*Model, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Model{
		models:    client.Models,
		modelName: model,
		logger:    logger.Named(log, "gemini"),
	}, nil
}

func (m *Model) Name() string {
	if m == nil {
		return ""
	}
	return m.modelName
}

// GenerateStructured sends req.Prompt and decodes the JSON answer into out.
func (m *Model) GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error {
	if m == nil || m.models == nil {
		return errors.New("gemini model is not initialized")
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}

	schema, err := jsonschema.GenerateSchemaForType(rv.Elem().Interface())
	if err != nil {
		return fmt.Errorf("failed to build schema for %s: %w", req.Name, err)
	}

	m.logger.Debug("structured generation",
		zap.String("name", req.Name),
		zap.String("model", m.modelName),
		zap.String("prompt", logger.TruncateForLog(req.Prompt, 200)),
	)

	resp, err := m.models.GenerateContent(ctx, m.modelName, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](0),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
	})
	if err != nil {
		return fmt.Errorf("generate content %s: %w", req.Name, err)
	}

	output := responseText(resp)
	if output == "" {
		return fmt.Errorf("generate content %s: %w", req.Name, ErrEmptyResponse)
	}

	if err := schema.Unmarshal(output, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.Name, err)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			builder.WriteString(text)
		}
		// only the first candidate with content is used
		if builder.Len() > 0 {
			break
		}
	}

	return strings.TrimSpace(builder.String())
}
