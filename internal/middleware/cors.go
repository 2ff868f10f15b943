package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the game client (and its local dev builds) to call the API
// from any origin. The marketplace carries no cookies or ambient auth, so a
// permissive policy is acceptable here.
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,X-Admin-Key",
	})
}
