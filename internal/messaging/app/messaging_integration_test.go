//go:build integration

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/internal/messaging/repository"
	"rental_messaging_service/pkg/database"
	"rental_messaging_service/pkg/middlewares"
	testtool "rental_messaging_service/pkg/test_tool"
	"rental_messaging_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const wsAddr = "127.0.0.1:8091"

// readUntilAction reads frames until one carries the wanted action
func readUntilAction(t *testing.T, conn *gws.Conn, action string) domain.WSResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	for {
		var resp domain.WSResponse
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed waiting for %s: %v", action, err)
		}
		if err := json.Unmarshal(payload, &resp); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if resp.Action == action {
			return resp
		}
	}
}

func dial(t *testing.T, userID string) *gws.Conn {
	t.Helper()
	jwt, err := token.GenerateJWT(userID, string(token.RoleTenant), "integration-test")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?auth=%s", wsAddr, jwt), nil)
	assert.NoError(t, err)
	return conn
}

func sendReq(t *testing.T, conn *gws.Conn, req domain.WSRequest) {
	t.Helper()
	b, err := json.Marshal(req)
	assert.NoError(t, err)
	assert.NoError(t, conn.WriteMessage(gws.TextMessage, b))
}

func TestMessagingIntegration(t *testing.T) {
	ctx := context.Background()

	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:latest",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		t.Fatalf("failed to start MongoDB container: %v", err)
	}
	defer mongoContainer.Terminate(ctx)

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    5,
		RetryInterval: 2 * time.Second,
	}, "test_messaging_db")
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(ctx)

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort),
		DB:   0,
	})

	// user service stand-in: every id under /users/ exists except "ghost"
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/users/")
		if id == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(domain.UserProfile{ID: id, Name: "user " + id})
	}))
	defer userSrv.Close()

	threadRepo := repository.NewMongoThreadRepository(mongo.Database)
	cache := database.NewRedisRepository[domain.UserProfile](redisClient)
	users := repository.NewHTTPUserDirectory(userSrv.URL, cache)
	bus := repository.NewRedisPubSub(redisClient)

	uc := NewMessagingUseCase(threadRepo, users)
	hub := NewConversationHub()
	wsHandler := NewMessagingWebsocketHandler(uc, hub, bus)
	assert.NoError(t, wsHandler.StartRelay(ctx))

	app := fiber.New()
	app.Use(middlewares.JWTMiddleware())
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	go func() {
		if err := app.Listen(wsAddr); err != nil {
			t.Logf("fiber listen: %v", err)
		}
	}()
	defer app.Shutdown()
	time.Sleep(500 * time.Millisecond)

	t.Run("handshake without credential is rejected", func(t *testing.T) {
		_, resp, err := gws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", wsAddr), nil)
		assert.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("find or create is idempotent under concurrent first contact", func(t *testing.T) {
		const conversationID = "a1_b1_prop9"
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := threadRepo.FindOrCreate(ctx, conversationID, []string{"a1", "b1"}, "prop9")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := mongo.Database.Collection("conversations").CountDocuments(ctx, map[string]interface{}{"_id": conversationID})
		assert.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("append updates last_message_at atomically", func(t *testing.T) {
		const conversationID = "a2_b2"
		_, _, err := threadRepo.FindOrCreate(ctx, conversationID, []string{"a2", "b2"}, "")
		assert.NoError(t, err)

		msg, err := threadRepo.AppendMessage(ctx, conversationID, "a2", "first")
		assert.NoError(t, err)

		thread, err := threadRepo.FindByConversationID(ctx, conversationID)
		assert.NoError(t, err)
		assert.Len(t, thread.Messages, 1)
		assert.Equal(t, msg.Timestamp, thread.LastMessageAt)

		// a foreign sender must not mutate the thread
		_, err = threadRepo.AppendMessage(ctx, conversationID, "intruder", "boo")
		assert.Error(t, err)
		thread, err = threadRepo.FindByConversationID(ctx, conversationID)
		assert.NoError(t, err)
		assert.Len(t, thread.Messages, 1)
	})

	t.Run("mark read excludes the reader's own messages and is idempotent", func(t *testing.T) {
		const conversationID = "a3_b3"
		_, _, err := threadRepo.FindOrCreate(ctx, conversationID, []string{"a3", "b3"}, "")
		assert.NoError(t, err)
		_, err = threadRepo.AppendMessage(ctx, conversationID, "a3", "hello")
		assert.NoError(t, err)
		_, err = threadRepo.AppendMessage(ctx, conversationID, "b3", "hi back")
		assert.NoError(t, err)

		assert.NoError(t, threadRepo.MarkReadExcludingSender(ctx, conversationID, "b3"))
		assert.NoError(t, threadRepo.MarkReadExcludingSender(ctx, conversationID, "b3"))

		thread, err := threadRepo.FindByConversationID(ctx, conversationID)
		assert.NoError(t, err)
		for _, m := range thread.Messages {
			if m.SenderID == "a3" {
				assert.True(t, m.Read)
			} else {
				assert.False(t, m.Read)
			}
		}
	})

	t.Run("send over websocket reaches every joined connection", func(t *testing.T) {
		connU1 := dial(t, "u1")
		defer connU1.Close()
		connU2 := dial(t, "u2")
		defer connU2.Close()

		// first contact creates the thread
		sendReq(t, connU1, domain.WSRequest{
			Action:      string(domain.SendMessage),
			RecipientID: "u2",
			PropertyID:  "p1",
			Content:     "Hi, is this available?",
		})
		ack := readUntilAction(t, connU1, string(domain.SendMessage))
		assert.True(t, ack.Success)
		conversationID := ack.Payload["conversation_id"].(string)
		assert.Equal(t, "u1_u2_p1", conversationID)

		// both join the room
		sendReq(t, connU1, domain.WSRequest{Action: string(domain.JoinConversation), ConversationID: conversationID})
		assert.True(t, readUntilAction(t, connU1, string(domain.JoinConversation)).Success)
		sendReq(t, connU2, domain.WSRequest{Action: string(domain.JoinConversation), ConversationID: conversationID})
		assert.True(t, readUntilAction(t, connU2, string(domain.JoinConversation)).Success)

		sendReq(t, connU1, domain.WSRequest{
			Action:         string(domain.SendMessage),
			ConversationID: conversationID,
			RecipientID:    "u2",
			PropertyID:     "p1",
			Content:        "On my way",
		})

		gotU1 := readUntilAction(t, connU1, string(domain.ReceiveMessage))
		gotU2 := readUntilAction(t, connU2, string(domain.ReceiveMessage))
		assert.Equal(t, gotU1.Payload["message"], gotU2.Payload["message"])

		thread, err := threadRepo.FindByConversationID(ctx, conversationID)
		assert.NoError(t, err)
		assert.Len(t, thread.Messages, 2)
		assert.Equal(t, "On my way", thread.Messages[1].Content)
	})

	t.Run("send to unknown recipient fails without broadcast", func(t *testing.T) {
		conn := dial(t, "u1")
		defer conn.Close()

		sendReq(t, conn, domain.WSRequest{
			Action:      string(domain.SendMessage),
			RecipientID: "ghost",
			Content:     "anyone there?",
		})
		resp := readUntilAction(t, conn, string(domain.SendMessage))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})
}
