package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/api/dto"
	"github.com/nicopel-ti/helpdesk/internal/service"
)

// ChatbotHandler answers TI support questions.
type ChatbotHandler struct {
	chat *service.ChatService
}

// NewChatbotHandler constructs handler.
func NewChatbotHandler(chat *service.ChatService) *ChatbotHandler {
	return &ChatbotHandler{chat: chat}
}

// Ask POST /api/chatbot.
func (h *ChatbotHandler) Ask(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	reply, err := h.chat.Ask(c.UserContext(), principal.User.ID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChatResponse{Reply: reply}})
}
