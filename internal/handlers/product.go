// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cisnetsa/cisnet-backend/internal/services"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GET /products
func (h *ProductHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	category := c.Query("category")

	result, err := h.productService.List(params, category)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /products/featured
func (h *ProductHandler) Featured(c *gin.Context) {
	products, err := h.productService.GetFeatured()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"products": products})
}

// GET /products/search?q=
func (h *ProductHandler) Search(c *gin.Context) {
	products, err := h.productService.Search(c.Query("q"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"products": products})
}

// GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.GetByID(c.Param("id"), false)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}
