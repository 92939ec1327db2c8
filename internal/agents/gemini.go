package agents

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"stockdesk/internal/models"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements ChatClient using the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client authenticated with apiKey.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends a prompt to the model and returns the response.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Chat(ctx, systemPrompt, []models.ChatMessage{{Role: models.RoleUser, Content: userPrompt}})
}

// Chat replays history into a fresh chat and sends the last message.
func (c *GeminiClient) Chat(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("gemini chat needs at least one message")
	}

	var config *genai.GenerateContentConfig
	if systemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		}
	}

	chat, err := c.client.Chats.Create(ctx, c.model, config, toGeminiHistory(history[:len(history)-1]))
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	resp, err := chat.Send(ctx, &genai.Part{Text: history[len(history)-1].Content})
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func toGeminiHistory(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return out
}
