package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/tg-storefront/internal/bot"
)

//
// --- Inbound Updates (Transport Only) ---
//

// PostUpdate queues one inbound update for the bot named in the path.
func (h *Handlers) PostUpdate(c *gin.Context) {
	// 1. Resolve the bot.
	d, ok := h.Dispatchers[c.Param("bot")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or disabled bot"})
		return
	}

	// 2. Bind and validate the update.
	var update bot.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. Queue it. The reply arrives later through the outbox.
	id, err := d.Enqueue(update)
	if errors.Is(err, bot.ErrQueueFull) {
		h.Log.Warn("update rejected, queue full", "bot", d.Name(), "chat_id", update.ChatID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bot is busy, retry later"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue update"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"updateId": id})
}
