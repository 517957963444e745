package app

import (
	"errors"

	errprocess "rental_messaging_service/pkg/err"
	"rental_messaging_service/pkg/logger"
	"rental_messaging_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MessagingHandler REST facade for clients without an open websocket:
// conversation bootstrap, history catch-up and read-state mutation.
type MessagingHandler struct {
	uc *MessagingUseCase
}

// NewMessagingHandler create MessagingHandler
func NewMessagingHandler(uc *MessagingUseCase) *MessagingHandler {
	return &MessagingHandler{uc: uc}
}

// StartConversation start or fetch the conversation with another user
// @Summary Start or get a conversation
// @Description Finds the thread between the caller and recipient_id (optionally scoped to property_id), creating it on first contact. An initial message is appended only when the thread is new.
// @Tags Conversations
// @Accept json
// @Produce json
// @Success 200 {object} domain.ThreadView "the thread"
// @Failure 400 {object} string "self-conversation or malformed input"
// @Failure 404 {object} string "unknown recipient"
// @Router /conversations [post]
func (h *MessagingHandler) StartConversation(c *fiber.Ctx) error {
	callerID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity"})
	}

	type request struct {
		RecipientID    string `json:"recipient_id"`
		PropertyID     string `json:"property_id"`
		InitialMessage string `json:"initial_message"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("StartConversation",
		zap.String("callerID", callerID),
		zap.String("recipientID", req.RecipientID),
		zap.String("propertyID", req.PropertyID))

	view, err := h.uc.StartOrGetConversation(c.Context(), callerID, req.RecipientID, req.PropertyID, req.InitialMessage)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// ListConversations list the caller's threads, newest activity first
// @Summary List my conversations
// @Tags Conversations
// @Produce json
// @Success 200 {array} domain.ThreadView "threads ordered by last message"
// @Router /conversations [get]
func (h *MessagingHandler) ListConversations(c *fiber.Ctx) error {
	callerID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity"})
	}

	views, err := h.uc.ListThreads(c.Context(), callerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// GetConversation full history of one thread
// @Summary Get conversation history
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.ThreadView "the thread with messages"
// @Failure 403 {object} string "caller is not a participant"
// @Failure 404 {object} string "no such conversation"
// @Router /conversations/{id} [get]
func (h *MessagingHandler) GetConversation(c *fiber.Ctx) error {
	callerID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity"})
	}

	view, err := h.uc.GetConversationHistory(c.Context(), callerID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// MarkConversationRead mark every message from the peer as read
// @Summary Mark conversation read
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} string "ok"
// @Failure 403 {object} string "caller is not a participant"
// @Failure 404 {object} string "no such conversation"
// @Router /conversations/{id}/read [post]
func (h *MessagingHandler) MarkConversationRead(c *fiber.Ctx) error {
	callerID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity"})
	}

	if err := h.uc.MarkConversationRead(c.Context(), callerID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "conversation marked read"})
}

// respondError map the error taxonomy onto HTTP status codes
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, errprocess.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, errprocess.ErrAuth):
		status = fiber.StatusUnauthorized
	case errors.Is(err, errprocess.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, errprocess.ErrThreadNotFound), errors.Is(err, errprocess.ErrUserNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, errprocess.ErrStorageUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
