package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/tg-storefront/internal/handlers"
	"github.com/01moynul/tg-storefront/internal/middleware"
)

// SetupRouter wires every HTTP route. webAppOrigin is the only origin
// allowed to call the public catalog from a browser.
func SetupRouter(h *handlers.Handlers, webAppOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(h.Log))

	// --- APPLY THE CORS GUARD ---
	router.Use(middleware.CORSMiddleware(webAppOrigin))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Public Catalog (Web App) ---
		v1.GET("/catalog", h.ListCatalog)
		v1.GET("/catalog/:sku", h.GetProduct)
		v1.GET("/categories", h.ListCategories)

		// --- Chat Transport (Bearer Token Per Bot) ---
		bots := v1.Group("/bots/:bot")
		bots.Use(middleware.BotAuthMiddleware(h.JWTSecret))
		{
			bots.POST("/updates", h.PostUpdate)
			bots.GET("/outbox", h.GetOutbox)
			bots.POST("/outbox/:id/ack", h.AckOutbox)
			bots.POST("/outbox/:id/fail", h.FailOutbox)
		}
	}

	return router
}
