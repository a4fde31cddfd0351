// Package api exposes the HTTP surface: read-only session inspection
// endpoints, the WebSocket attachment point, and the health probes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// HandleListSessions GET /api/v1/sessions
func HandleListSessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := store.List()
		c.JSON(http.StatusOK, gin.H{
			"sessions": sessions,
			"count":    len(sessions),
		})
	}
}

// HandleGetSession GET /api/v1/sessions/:key
func HandleGetSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := store.Get(c.Param("key"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// HandleGetSessionStats GET /api/v1/sessions/:key/stats
func HandleGetSessionStats(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, ok := store.Stats(c.Param("key"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
