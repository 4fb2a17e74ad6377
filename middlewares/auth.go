package middlewares

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDHeader carries the caller identity set by the authenticating proxy in front of the app.
const UserIDHeader = "X-User-ID"

const userIDLocalKey = "userID"

// AuthMiddleware rejects requests without a positive numeric X-User-ID and stores the id in
// c.Locals("userID").
func AuthMiddleware(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Get(UserIDHeader))
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "missing or invalid " + UserIDHeader + " header",
		})
	}
	c.Locals(userIDLocalKey, uint(id))
	return c.Next()
}

// CurrentUserID returns the id stored by AuthMiddleware.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(userIDLocalKey).(uint)
	return id, ok && id != 0
}
