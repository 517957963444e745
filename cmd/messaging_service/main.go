package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rental_messaging_service/internal/messaging/app"
	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/internal/messaging/repository"
	"rental_messaging_service/internal/messaging/router"
	"rental_messaging_service/pkg/config"
	"rental_messaging_service/pkg/database"
	"rental_messaging_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceLogPath)
	cfg := config.LoadConfig[config.Messaging](config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceYAMLPath)

	// Mongo holds the conversation threads
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis carries the cross-instance broadcast relay and the profile cache
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	threadRepo := repository.NewMongoThreadRepository(mongo.Database)
	profileCache := database.NewRedisRepository[domain.UserProfile](redisClient)
	userBaseURL := fmt.Sprintf("http://%s:%s", cfg.UserService.Name, cfg.UserService.Port)
	users := repository.NewHTTPUserDirectory(userBaseURL, profileCache)
	bus := repository.NewRedisPubSub(redisClient)

	uc := app.NewMessagingUseCase(threadRepo, users)
	hub := app.NewConversationHub()
	wsHandler := app.NewMessagingWebsocketHandler(uc, hub, bus)
	if err := wsHandler.StartRelay(ctx); err != nil {
		logger.Log.Fatal(fmt.Sprintf("start broadcast relay err : %v", err))
	}
	restHandler := app.NewMessagingHandler(uc)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MessagingServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, restHandler, wsHandler)

	port := ":" + cfg.Port
	log.Printf("Messaging Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
