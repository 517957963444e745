package router

import (
	"context"

	"rental_messaging_service/internal/messaging/app"
	"rental_messaging_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wire the REST facade and the realtime gateway
// @title Rental Messaging Service API
// @version 1.0
// @description Conversation and realtime messaging API for the rental marketplace
// @host localhost:8084
// @BasePath /
func RegisterRoutes(r *fiber.App, restHandler *app.MessagingHandler, wsHandler *app.MessagingWebsocketHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)

	// handshake auth happens here: the JWT middleware rejects a missing or
	// invalid bearer credential before the upgrade, so no gateway event
	// handler is reachable on an unauthenticated connection
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	conversations := r.Group("/conversations")
	conversations.Post("/", restHandler.StartConversation)
	conversations.Get("/", restHandler.ListConversations)
	conversations.Get("/:id", restHandler.GetConversation)
	conversations.Post("/:id/read", restHandler.MarkConversationRead)
}
