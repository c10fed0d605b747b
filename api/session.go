package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	SessionCookie = "derma_session"
	SessionHeader = "X-Session-ID"
)

// sessionID returns the caller's session id from the cookie or the header,
// or "" when the caller has none. The id outlives the request as a store
// key, so it is copied out of the request buffer.
func sessionID(c *fiber.Ctx) string {
	if id := c.Cookies(SessionCookie); id != "" {
		return utils.CopyString(id)
	}
	return utils.CopyString(c.Get(SessionHeader))
}

// ensureSession returns the caller's session id, issuing a new one in a
// cookie when absent.
func ensureSession(c *fiber.Ctx, ttl time.Duration) string {
	if id := sessionID(c); id != "" {
		return id
	}
	id := uuid.NewString()
	cookie := &fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	}
	c.Cookie(cookie)
	c.Set(SessionHeader, id)
	return id
}
