// Package agents provides the generative-AI collaborator: LLM clients for
// OpenAI and Gemini, chat sessions with bounded history, and the prompt
// builders that turn resolved stock views into questions.
package agents

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
	"stockdesk/internal/resilience"
	"stockdesk/internal/security"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// SystemPrompt frames every conversation with the assistant.
const SystemPrompt = `You are a stock market analysis assistant inside a terminal application.
Answer in concise markdown. Use the figures you are given; never invent prices.
When data is marked N/A, say it is unavailable instead of guessing.
You provide educational analysis only, not personalized financial advice.`

// LLMClient sends single-shot prompts to a language model.
type LLMClient interface {
	// Complete sends a prompt and returns the model's answer.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt with a system instruction.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ChatClient is an LLMClient that can also continue a conversation.
// The last message in history is the one being answered.
type ChatClient interface {
	LLMClient
	Chat(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error)
}

// NewClient builds the ChatClient for provider. A missing API key yields
// ErrNotConfigured so callers can tell the user to fill in credentials.
func NewClient(ctx context.Context, provider, apiKey, model string) (ChatClient, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.NewAgentError(provider, "init", apperrors.Wrap(apperrors.ErrNotConfigured, "missing api key"))
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, model)
	default:
		return nil, apperrors.NewValidationError("ai.provider", provider, "must be openai or gemini")
	}
}

// GuardedClient routes every call through a circuit breaker and reports
// failures as AgentErrors with any API keys masked out of the message.
type GuardedClient struct {
	inner    ChatClient
	provider string
	breaker  *resilience.Breaker
	logger   zerolog.Logger
}

// NewGuardedClient wraps inner with breaker.
func NewGuardedClient(inner ChatClient, provider string, breaker *resilience.Breaker, logger zerolog.Logger) *GuardedClient {
	return &GuardedClient{
		inner:    inner,
		provider: provider,
		breaker:  breaker,
		logger:   logger.With().Str("component", "llm").Str("provider", provider).Logger(),
	}
}

// Complete implements LLMClient.
func (g *GuardedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return g.call(ctx, "complete", func(ctx context.Context) (string, error) {
		return g.inner.Complete(ctx, prompt)
	})
}

// CompleteWithSystem implements LLMClient.
func (g *GuardedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.call(ctx, "complete", func(ctx context.Context) (string, error) {
		return g.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	})
}

// Chat implements ChatClient.
func (g *GuardedClient) Chat(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error) {
	return g.call(ctx, "chat", func(ctx context.Context) (string, error) {
		return g.inner.Chat(ctx, systemPrompt, history)
	})
}

func (g *GuardedClient) call(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	out, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		out, err := fn(ctx)
		if err == nil && strings.TrimSpace(out) == "" {
			err = apperrors.Wrap(apperrors.ErrUpstreamFailure, "empty response")
		}
		return out, err
	})
	if err != nil {
		masked := security.MaskSensitive(err.Error())
		g.logger.Warn().Str("operation", op).Str("error", masked).Msg("LLM call failed")
		return "", apperrors.NewAgentError(g.provider, op, &maskedError{msg: masked, err: err})
	}
	return out, nil
}

// maskedError keeps the error chain of err while printing msg.
type maskedError struct {
	msg string
	err error
}

func (e *maskedError) Error() string { return e.msg }
func (e *maskedError) Unwrap() error { return e.err }
