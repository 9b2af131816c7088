package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/tg-storefront/internal/models"
)

//
// --- Outbound Messages (Transport Only) ---
//

// GetOutbox lists undelivered messages of the bot, oldest first.
func (h *Handlers) GetOutbox(c *gin.Context) {
	botName := c.Param("bot")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	messages, err := h.Outbox.Pending(c.Request.Context(), botName, limit)
	if err != nil {
		h.Log.Error("failed to read outbox", "bot", botName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// AckOutbox marks one message as delivered.
func (h *Handlers) AckOutbox(c *gin.Context) {
	botName := c.Param("bot")

	// 1. Get message ID from URL
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	// 2. Mark it delivered
	err = h.Outbox.Ack(c.Request.Context(), botName, id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if err != nil {
		h.Log.Error("failed to ack message", "bot", botName, "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message acknowledged"})
}

// FailOutbox records that the transport could not deliver a message.
// Operator notifications are rerouted to the next channel.
func (h *Handlers) FailOutbox(c *gin.Context) {
	botName := c.Param("bot")

	// 1. Get message ID from URL
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	// 2. Bind the optional failure reason
	var input struct {
		Error string `json:"error" binding:"max=1024"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// 3. Settle the message
	msg, err := h.Outbox.Fail(c.Request.Context(), botName, id, input.Error)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if err != nil {
		h.Log.Error("failed to record delivery failure", "bot", botName, "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record delivery failure"})
		return
	}

	// 4. Reroute notifications; a repeated report changes nothing
	rerouted := false
	if msg != nil && h.Failover != nil {
		rerouted, err = h.Failover.Failover(c.Request.Context(), *msg)
		if err != nil {
			h.Log.Warn("notification failover failed", "bot", botName, "id", id, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Failure recorded", "rerouted": rerouted})
}
