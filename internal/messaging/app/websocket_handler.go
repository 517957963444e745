package app

import (
	"context"
	"encoding/json"
	"time"

	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/internal/messaging/repository"
	"rental_messaging_service/pkg/logger"
	"rental_messaging_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// relayChannel shared bus channel for cross-instance room broadcasts
const relayChannel = "messaging:broadcast"

// MessagingWebsocketHandler the realtime gateway: authenticated connections,
// room membership and the low-latency send path. Every send is persisted
// through the use case before anything is broadcast; the stored thread is
// the source of truth and the realtime channel only notifies.
type MessagingWebsocketHandler struct {
	uc         *MessagingUseCase
	hub        *ConversationHub
	bus        repository.BroadcastBus
	instanceID string
}

// NewMessagingWebsocketHandler create the gateway. bus may be nil for a
// single-process deployment.
func NewMessagingWebsocketHandler(uc *MessagingUseCase, hub *ConversationHub, bus repository.BroadcastBus) *MessagingWebsocketHandler {
	return &MessagingWebsocketHandler{
		uc:         uc,
		hub:        hub,
		bus:        bus,
		instanceID: uuid.New().String(),
	}
}

// StartRelay subscribe to the shared broadcast bus so rooms span gateway
// instances. Remote-origin envelopes are replayed into the local hub; our
// own are skipped since they were already broadcast locally.
func (h *MessagingWebsocketHandler) StartRelay(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}
	return h.bus.Subscribe(ctx, relayChannel, func(payload []byte) {
		var env domain.BroadcastEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.Log.Errorf("relay unmarshal error:", err)
			return
		}
		if env.Origin == h.instanceID {
			return
		}
		h.hub.Broadcast(env.ConversationID, env.Response)
	})
}

// HandleConnection is the entry point for an upgraded websocket connection.
// The JWT middleware has already rejected credential-less handshakes, so the
// identity in Locals is trusted here.
func (h *MessagingWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, ok := conn.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		// middleware should make this unreachable
		h.sendError(NewClient("", conn), "unauthenticated connection")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	client := NewClient(userID, conn)
	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		cancel()
		h.hub.RemoveClient(client)
		logger.Log.Info("websocket closed", zap.String("userID", userID))
		conn.Close()
	}()

	// fiber answers close frames itself; hook in only for the log line
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("websocket close frame:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// periodic ping keeps idle connections from being dropped by proxies
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, client, mt, message)
	}
}

func (h *MessagingWebsocketHandler) execWebsocketAction(ctx context.Context, client *Client, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, client, msg)
	default:
		h.sendError(client, "unknown message type")
	}
}

func (h *MessagingWebsocketHandler) textMessageAction(ctx context.Context, client *Client, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(client, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	case string(domain.JoinConversation):
		if err := h.uc.AuthorizeJoin(ctx, client.UserID(), req.ConversationID); err != nil {
			resp.Error = err.Error()
		} else {
			h.hub.Join(req.ConversationID, client)
			resp.Success = true
			resp.Payload["conversation_id"] = req.ConversationID
		}

	case string(domain.LeaveConversation):
		h.hub.Leave(req.ConversationID, client)
		resp.Success = true
		resp.Payload["conversation_id"] = req.ConversationID

	// every send is written to the thread first, then fanned out to the room
	case string(domain.SendMessage):
		conversationID, message, err := h.uc.SendMessage(ctx,
			client.UserID(), req.RecipientID, req.ConversationID, req.PropertyID, req.Content)
		if err != nil {
			// the sender alone learns about the failure; nothing was broadcast
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversation_id"] = conversationID
			resp.Payload["message_id"] = message.ID
			h.broadcast(conversationID, *message)
		}

	default:
		h.sendError(client, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("userID", client.UserID()),
			zap.String("action", req.Action),
			zap.String("err", resp.Error))
	}
	if err := client.Send(resp); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

// broadcast deliver a persisted message to the local room and relay it to
// the other gateway instances
func (h *MessagingWebsocketHandler) broadcast(conversationID string, message domain.ChatMessage) {
	receive := domain.WSResponse{
		Action:  string(domain.ReceiveMessage),
		Success: true,
		Payload: map[string]interface{}{
			"conversation_id": conversationID,
			"message":         message,
		},
	}
	h.hub.Broadcast(conversationID, receive)

	if h.bus != nil {
		env := domain.BroadcastEnvelope{
			Origin:         h.instanceID,
			ConversationID: conversationID,
			Response:       receive,
		}
		if err := h.bus.Publish(relayChannel, env); err != nil {
			logger.Log.Errorf("relay publish error:", err)
		}
	}
}

func (h *MessagingWebsocketHandler) sendError(client *Client, errorMsg string) {
	resp := domain.WSResponse{
		Action:  string(domain.ErrorAction),
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
	if err := client.Send(resp); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}
