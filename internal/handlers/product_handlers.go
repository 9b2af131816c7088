package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/tg-storefront/internal/models"
)

//
// --- Public Catalog (Web App Storefront) ---
//

// ListCatalog returns one page of active products.
// GET /v1/catalog?page=0&category=<slug>
func (h *Handlers) ListCatalog(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	category := c.Query("category")

	products, total, err := h.Catalog.List(c.Request.Context(), page, category)
	if err != nil {
		h.Log.Error("failed to list catalog", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    products,
		"total":    total,
		"page":     page,
		"pageSize": h.Catalog.PageSize(),
		"hasNext":  h.Catalog.HasNext(page, total),
	})
}

// GetProduct returns one active product.
// GET /v1/catalog/:sku
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.Catalog.GetActive(c.Request.Context(), c.Param("sku"))
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		h.Log.Error("failed to fetch product", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListCategories returns the distinct categories of active products.
// GET /v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.Catalog.Categories(c.Request.Context())
	if err != nil {
		h.Log.Error("failed to list categories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve categories"})
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}

	c.JSON(http.StatusOK, gin.H{"categories": cats})
}
