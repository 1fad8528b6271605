// Package server exposes ingestion, question answering and chat sessions
// over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/rag"
	"document-qa/internal/vectorstore"
)

// Deps are the services the router dispatches to.
type Deps struct {
	GinMode  string
	InputDir string
	Ingestor *rag.Ingestor
	Store    *vectorstore.Store
	Chat     *rag.ChatService
}

func NewRouter(d Deps) *gin.Engine {
	if d.GinMode != "" {
		gin.SetMode(d.GinMode)
	}
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery(), cors())

	docHandler := NewDocumentHandler(d.Ingestor, d.Store, d.InputDir)
	chatHandler := NewChatHandler(d.Chat)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/upload_file", docHandler.Upload)
	router.DELETE("/documents/:file_name", docHandler.Delete)
	router.GET("/stats", docHandler.Stats)

	router.POST("/rag_query", chatHandler.Query)
	router.POST("/new_chat_session", chatHandler.NewSession)
	router.GET("/list_chat_sessions", chatHandler.ListSessions)
	router.GET("/get_chat_history/:session_id", chatHandler.History)
	router.DELETE("/delete_chat_session/:session_id", chatHandler.DeleteSession)
	router.POST("/save_system_message", chatHandler.SaveSystemMessage)

	return router
}

// cors allows any origin; the bundled frontend is served from elsewhere.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrStoreUninitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
