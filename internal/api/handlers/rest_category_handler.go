package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bibliophile/server/internal/services"
)

type RestCategoryHandler struct {
	categoryService services.ICategoryService
}

func NewRestCategoryHandler(categoryService services.ICategoryService) *RestCategoryHandler {
	return &RestCategoryHandler{categoryService: categoryService}
}

// ListCategories handles GET /categories.
func (h *RestCategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}
