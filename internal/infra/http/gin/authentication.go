package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/infra/auth"
)

const actorContextKey = "staybook.actor"

// ActorResolver turns a bearer token into the caller's identity.
type ActorResolver interface {
	Actor(raw string) (domainbooking.Actor, error)
}

type AuthMiddleware struct {
	Tokens ActorResolver
	Logger *slog.Logger
}

// Handle resolves the caller when a token is present. Anonymous requests pass
// through; handlers decide whether they need an actor.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Tokens == nil {
		c.Next()
		return
	}
	actor, err := m.Tokens.Actor(token)
	if err != nil {
		if m.Logger != nil && !errors.Is(err, auth.ErrMissingToken) {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "Unauthenticated"})
		return
	}
	c.Set(actorContextKey, actor)
	c.Next()
}

func currentActor(c *gin.Context) (domainbooking.Actor, bool) {
	val, exists := c.Get(actorContextKey)
	if !exists {
		return domainbooking.Actor{}, false
	}
	actor, ok := val.(domainbooking.Actor)
	return actor, ok
}

func requireActor(c *gin.Context) (domainbooking.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok || actor.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required", "kind": "Unauthenticated"})
		return domainbooking.Actor{}, false
	}
	return actor, true
}

func requireAdmin(c *gin.Context) (domainbooking.Actor, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return actor, false
	}
	if !actor.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions", "kind": "NotAuthorized"})
		return domainbooking.Actor{}, false
	}
	return actor, true
}
