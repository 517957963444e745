package main

import (
	"rental_messaging_service/internal/messaging/router"

	"github.com/gofiber/fiber/v2"
)

// swagger init entrypoint
// swag init output ./docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil, nil)
}
