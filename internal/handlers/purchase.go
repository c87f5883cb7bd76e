// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cisnetsa/cisnet-backend/internal/i18n"
	"github.com/cisnetsa/cisnet-backend/internal/services"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type PurchaseHandler struct {
	orderService *services.OrderService
	authService  *services.AuthService
}

func NewPurchaseHandler(orderService *services.OrderService, authService *services.AuthService) *PurchaseHandler {
	return &PurchaseHandler{
		orderService: orderService,
		authService:  authService,
	}
}

// POST /purchases/create-order
func (h *PurchaseHandler) CreateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), user, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPurchaseCompleted),
		"orderId": order.ID,
		"order":   order,
	})
}

// POST /purchases/check-access
func (h *PurchaseHandler) CheckAccess(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	email, ok := utils.GetUserEmailFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req struct {
		ProductID string `json:"productId" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.orderService.CheckAccess(email, req.ProductID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /purchases/get-download-url
func (h *PurchaseHandler) GetDownloadURL(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	email, ok := utils.GetUserEmailFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req struct {
		ProductID string `json:"productId" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.orderService.GetDownloadURL(c.Request.Context(), email, req.ProductID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /purchases
func (h *PurchaseHandler) ListOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orderService.GetOrders(userID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /purchases/library
func (h *PurchaseHandler) GetLibrary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	entries, err := h.orderService.GetLibrary(userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"library": entries})
}
