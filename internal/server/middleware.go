package server

import (
	"strconv"
	"strings"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/gin-gonic/gin"
)

// Headers set by the upstream auth gateway.
const (
	HeaderActorID       = "X-Actor-Id"
	HeaderActorUsername = "X-Actor-Username"
	HeaderActorRole     = "X-Actor-Role"
)

// ActorFromHeaders stores the gateway-provided actor on the request context.
// Requests without a username pass through anonymously.
func ActorFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.GetHeader(HeaderActorUsername))
		if username == "" {
			c.Next()
			return
		}

		var id int64
		if raw := strings.TrimSpace(c.GetHeader(HeaderActorID)); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid actor id"))
				return
			}
			id = parsed
		}

		a := actor.Actor{
			ID:       id,
			Username: username,
			Role:     strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderActorRole))),
		}
		c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), a))
		c.Next()
	}
}

// RequireActor rejects mutating requests that carry no actor.
func (s *Server) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := actor.Require(c.Request.Context()); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
