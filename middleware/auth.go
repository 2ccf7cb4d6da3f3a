package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/plateful/plateful-server/identity"
)

// SubjectKey is the request-local key holding the resolved caller identity.
const SubjectKey = "subject"

// ResolveIdentity resolves the bearer token into a caller subject and stores
// it in the request context. It never rejects: mutations enforce the
// presence of a subject in the service layer, and queries degrade to empty
// results, matching the read contract.
func ResolveIdentity(resolver identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		subject, err := resolver.Resolve(c.Context(), token)
		if err != nil {
			slog.Debug("Identity resolution failed",
				slog.String("type", "req"),
				slog.Any("error", err))
			return c.Next()
		}

		c.Locals(SubjectKey, subject)
		return c.Next()
	}
}

// Subject returns the resolved caller identity, or "" when the request is
// anonymous.
func Subject(c *fiber.Ctx) string {
	if subject, ok := c.Locals(SubjectKey).(string); ok {
		return subject
	}
	return ""
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		// Websocket clients cannot set headers from the browser; accept the
		// token as a query parameter there.
		return c.Query("token")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
