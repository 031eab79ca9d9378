package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to a caller identity
type Authenticator interface {
	Authenticate(token string) (entity.Actor, bool)
}

// StaticTokens authenticates against a fixed token table
type StaticTokens map[string]entity.Actor

// Authenticate implements Authenticator
func (t StaticTokens) Authenticate(token string) (entity.Actor, bool) {
	actor, ok := t[token]
	return actor, ok
}

func authMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		actor, ok := auth.Authenticate(token)
		if !ok {
			abortUnauthorized(c, "invalid bearer token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="dmt"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: msg})
}

// actorFrom returns the identity set by authMiddleware
func actorFrom(c *gin.Context) entity.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(entity.Actor)
	return actor
}

func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
