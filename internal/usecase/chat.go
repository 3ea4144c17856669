package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
)

// HistoryTrimmer sizes chat turns against a token budget.
type HistoryTrimmer interface {
	CountTokens(text string) int
	TrimHistory(history []domain.ChatMessage, reserved, budget int) []domain.ChatMessage
}

// ChatService continues a strategist conversation.
type ChatService struct {
	Gen       *Generator
	Tokens    HistoryTrimmer
	MaxTokens int
}

// NewChatService constructs a ChatService. A nil trimmer or non-positive
// budget sends the full history.
func NewChatService(gen *Generator, tokens HistoryTrimmer, maxTokens int) *ChatService {
	return &ChatService{Gen: gen, Tokens: tokens, MaxTokens: maxTokens}
}

// Send appends message to history and returns the model's reply.
func (s *ChatService) Send(ctx domain.Context, history []domain.ChatMessage, message string, lang domain.Language) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message required", domain.ErrInvalidArgument)
	}
	for i, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleModel {
			return "", fmt.Errorf("%w: history[%d] has unknown role %q", domain.ErrInvalidArgument, i, m.Role)
		}
	}

	instruction := chatInstruction(lang)
	if s.Tokens != nil && s.MaxTokens > 0 {
		reserved := s.Tokens.CountTokens(instruction) + s.Tokens.CountTokens(message)
		trimmed := s.Tokens.TrimHistory(history, reserved, s.MaxTokens)
		if dropped := len(history) - len(trimmed); dropped > 0 {
			observability.LoggerFromContext(ctx).Info("chat history trimmed",
				slog.Int("dropped_turns", dropped),
				slog.Int("kept_turns", len(trimmed)))
		}
		history = trimmed
	}

	resp, err := s.Gen.Text(ctx, "chat.send", domain.TextRequest{
		Model:             s.Gen.Models.Chat,
		SystemInstruction: instruction,
		History:           history,
		Prompt:            message,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
