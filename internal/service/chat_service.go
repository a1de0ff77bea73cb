package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/chatbot"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// Replies used when the chat backend cannot answer.
const (
	ChatUnavailableReply = "Desculpe, o serviço de chatbot está temporariamente indisponível."
	ChatFailureReply     = "Desculpe, tive um problema técnico. Tente novamente."
)

// Completer produces the assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []chatbot.Message) (string, error)
}

// ChatService answers TI-support questions keeping a short per-user history.
type ChatService struct {
	completer    Completer
	sessions     chatbot.SessionStore
	systemPrompt string
	logger       *zap.Logger
}

// NewChatService wires the chatbot. A nil completer makes every answer the
// unavailable reply.
func NewChatService(completer Completer, sessions chatbot.SessionStore, systemPrompt string, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		completer:    completer,
		sessions:     sessions,
		systemPrompt: systemPrompt,
		logger:       logger.With(zap.String("component", "chatbot")),
	}
}

// Ask sends message with the user's recent history. Backend failures reset the
// session and yield a friendly reply instead of an error.
func (s *ChatService) Ask(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.NewValidationError("message is required", map[string]any{"message": "required"})
	}
	if s.completer == nil {
		s.logger.Warn("chatbot called without a configured backend", zap.String("user_id", userID))
		return ChatUnavailableReply, nil
	}

	history, err := s.sessions.History(ctx, userID)
	if err != nil {
		s.logger.Warn("chat history unavailable", zap.String("user_id", userID), zap.Error(err))
		history = nil
	}

	conversation := make([]chatbot.Message, 0, len(history)+2)
	if s.systemPrompt != "" {
		conversation = append(conversation, chatbot.Message{Role: chatbot.RoleSystem, Content: s.systemPrompt})
	}
	conversation = append(conversation, history...)
	question := chatbot.Message{Role: chatbot.RoleUser, Content: message}
	conversation = append(conversation, question)

	reply, err := s.completer.Complete(ctx, conversation)
	if err != nil {
		s.logger.Error("chat backend failed", zap.String("user_id", userID), zap.Error(err))
		if resetErr := s.sessions.Reset(ctx, userID); resetErr != nil {
			s.logger.Warn("chat session reset failed", zap.String("user_id", userID), zap.Error(resetErr))
		}
		return ChatFailureReply, nil
	}

	answer := chatbot.Message{Role: chatbot.RoleAssistant, Content: reply}
	if err := s.sessions.Append(ctx, userID, question, answer); err != nil {
		s.logger.Warn("chat history not saved", zap.String("user_id", userID), zap.Error(err))
	}
	return reply, nil
}
