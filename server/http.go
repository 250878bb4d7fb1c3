package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/willmacd/dql-tetris/render"
)

// NewHTTP returns the read-only HTTP API over the relay's sessions.
func NewHTTP(r *Relay, rd *render.Renderer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/sessions", listSessions(r))
	router.GET("/sessions/:id", getSession(r))
	router.GET("/sessions/:id/board.png", boardPNG(r, rd))
	return router
}

func listSessions(r *Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Sessions())
	}
}

func getSession(r *Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := r.Frame(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, f)
	}
}

func boardPNG(r *Relay, rd *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := r.Frame(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		width := 0
		if w := c.Query("width"); w != "" {
			n, err := strconv.Atoi(w)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "width must be a positive integer"})
				return
			}
			width = n
		}
		var buf bytes.Buffer
		if err := rd.PNG(&buf, f.Snapshot(), width); err != nil {
			r.logger.Error("failed to render board", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to render board"})
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}
