package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// isoTimestampLayout renders UTC instants with millisecond precision and a Z suffix.
const isoTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type chatRequestPayload struct {
	Message string `json:"message"`
}

type chatResponsePayload struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

func (h *httpHandler) timestamp() string {
	return h.clock().UTC().Format(isoTimestampLayout)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.timestamp(),
		"version":   h.version,
	})
}

func (h *httpHandler) handleChat(c *gin.Context) {
	var request chatRequestPayload
	// A missing or malformed body is reported the same way as an empty message.
	_ = c.ShouldBindJSON(&request)

	response, err := h.assistant.Ask(c.Request.Context(), request.Message)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to process message")
		return
	}
	c.JSON(http.StatusOK, chatResponsePayload{Response: response, Timestamp: h.timestamp()})
}

func (h *httpHandler) handleChatStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Chat API is running",
		"status":  "healthy",
	})
}
