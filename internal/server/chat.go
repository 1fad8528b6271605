package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa/internal/models"
	"document-qa/internal/rag"
)

type ChatHandler struct {
	chat *rag.ChatService
}

type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

type SystemMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id" binding:"required"`
}

func NewChatHandler(chat *rag.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Query answers the posted question inside the session named by the
// session_id query parameter.
func (h *ChatHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("invalid request payload: %w", models.ErrInvalidInput))
		return
	}
	reply, err := h.chat.Ask(c.Request.Context(), c.Query("session_id"), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *ChatHandler) NewSession(c *gin.Context) {
	id, err := h.chat.NewSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id})
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	ids, err := h.chat.ListSessions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ids})
}

func (h *ChatHandler) History(c *gin.Context) {
	id := c.Param("session_id")
	if !models.IsValidSessionID(id) {
		c.JSON(http.StatusOK, gin.H{"session_id": id, "history": []models.ChatMessage{}})
		return
	}
	history, err := h.chat.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "history": history})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("session_id")
	if !models.IsValidSessionID(id) {
		c.JSON(http.StatusOK, gin.H{"status": "skip", "reason": "invalid session_id"})
		return
	}
	deleted, err := h.chat.DeleteSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	status := "deleted"
	if !deleted {
		status = "not found"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "session_id": id})
}

func (h *ChatHandler) SaveSystemMessage(c *gin.Context) {
	var req SystemMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("invalid request payload: %w", models.ErrInvalidInput))
		return
	}
	if err := h.chat.SaveSystemMessage(c.Request.Context(), req.SessionID, req.Message); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
