// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cisnetsa/cisnet-backend/internal/i18n"
	"github.com/cisnetsa/cisnet-backend/internal/services"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type AdminHandler struct {
	productService *services.ProductService
	orderService   *services.OrderService
	storageService *services.StorageService
}

func NewAdminHandler(productService *services.ProductService, orderService *services.OrderService, storageService *services.StorageService) *AdminHandler {
	return &AdminHandler{
		productService: productService,
		orderService:   orderService,
		storageService: storageService,
	}
}

// GET /admin/products
func (h *AdminHandler) ListProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.productService.ListAll(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /admin/products/:id
func (h *AdminHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetByID(c.Param("id"), true)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.productService.Create(req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /admin/products/:id
func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.productService.Update(c.Param("id"), req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /admin/products/:id
func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.productService.Delete(c.Param("id")); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

// POST /admin/products/:id/image
func (h *AdminHandler) UploadProductImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "image"), err.Error())
		return
	}
	defer file.Close()

	if err := h.storageService.ValidateImage(file); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	upload, err := h.storageService.UploadFile(file, header, services.ProductImageOptions())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	product, err := h.productService.SetImage(c.Param("id"), upload.URL)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminImageUpload),
		"product": product,
		"upload":  upload,
	})
}

// GET /admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.orderService.ListAllOrders(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// POST /admin/grants/:id/retry
func (h *AdminHandler) RetryGrant(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	grant, err := h.orderService.RetryGrant(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyGrantRetryDone),
		"grant":   grant,
	})
}

// POST /admin/grants/:id/revoke
func (h *AdminHandler) RevokeGrant(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	grant, err := h.orderService.RevokeGrant(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyGrantRevoked),
		"grant":   grant,
	})
}
