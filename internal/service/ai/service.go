package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Ronak501/Research-Agent/backend/internal/config"
)

// generateTimeout bounds a single generation call.
const generateTimeout = 30 * time.Second

const researchPrompt = `You are a research assistant.
Answer clearly, factually, and concisely.

Question:
{question}`

// Service turns a question into a research answer with one model call.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
	logger    *log.Logger
}

// NewChatModel builds the chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiChatModel(cfg.GeminiEndpoint, cfg.GeminiAPIKey, nil)
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// NewService compiles the research prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage(researchPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile research chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		timeout:   generateTimeout,
		logger:    log.Default().WithPrefix("ai"),
	}, nil
}

// ChatModel returns the underlying chat model.
func (s *Service) ChatModel() model.ChatModel {
	return s.chatModel
}

// Generate answers prompt. Every failure is returned as a *GenerationError.
func (s *Service) Generate(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &GenerationError{Operation: "generate", Message: "prompt is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	response, err := s.chain.Invoke(ctx, map[string]any{"question": question})
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return "", genErr
		}
		return "", &GenerationError{Operation: "generate", Message: "run research chain", Cause: err}
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", &GenerationError{Operation: "generate", Message: "model returned no text"}
	}

	s.logger.Debug("generated response", "length", len(response.Content), "elapsed", time.Since(start))
	return response.Content, nil
}
