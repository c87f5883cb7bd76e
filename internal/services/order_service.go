// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/database"
	"github.com/cisnetsa/cisnet-backend/internal/models"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type OrderService struct {
	db            *gorm.DB
	grants        FileGrantProvider
	notifications *NotificationService
}

func NewOrderService(db *gorm.DB, grants FileGrantProvider, notifications *NotificationService) *OrderService {
	return &OrderService{
		db:            db,
		grants:        grants,
		notifications: notifications,
	}
}

type CreateOrderInput struct {
	ProductIDs    []string `json:"productIds" validate:"required,min=1,dive,required"`
	TotalAmount   float64  `json:"totalAmount" validate:"required,gt=0"`
	PaymentMethod string   `json:"paymentMethod"`
	PaymentID     string   `json:"paymentId"`
}

type AccessCheckResult struct {
	ProductID string `json:"productId"`
	HasAccess bool   `json:"hasAccess"`
	Status    string `json:"status,omitempty"`
}

// LibraryEntry is one purchased product with its grant state, rebuilt from
// order history rather than trusting anything the client sends.
type LibraryEntry struct {
	Product     models.Product     `json:"product"`
	OrderID     uuid.UUID          `json:"order_id"`
	PurchasedAt time.Time          `json:"purchased_at"`
	GrantStatus models.GrantStatus `json:"grant_status"`
	ViewURL     string             `json:"view_url,omitempty"`
}

// CreateOrder records a simulated payment. The order and its pending file
// grants commit atomically, then grant issuance runs against the provider.
// A grant failure never loses the purchase, the rows stay pending and are
// retried later.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, input CreateOrderInput) (*models.Order, error) {
	products, err := s.loadOrderProducts(input.ProductIDs)
	if err != nil {
		return nil, err
	}

	quantities, err := s.cartQuantities(user.ID, input.ProductIDs)
	if err != nil {
		return nil, err
	}

	// The client submits the cart total, which is quantity-weighted.
	// Products ordered outside the cart count once.
	var expected float64
	for _, p := range products {
		qty := quantities[p.ID]
		if qty < 1 {
			qty = 1
		}
		expected += p.Price * float64(qty)
	}
	if math.Abs(expected-input.TotalAmount) > 0.01 {
		return nil, apperrors.Newf(apperrors.KindValidation, "order total %.2f does not match product prices %.2f", input.TotalAmount, expected)
	}

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "simulated"
	}
	paymentID := input.PaymentID
	if paymentID == "" {
		paymentID = "SIM-" + uuid.NewString()
	}

	order := &models.Order{
		UserID:        user.ID,
		ProductIDs:    input.ProductIDs,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: paymentMethod,
		PaymentID:     paymentID,
		Status:        models.OrderStatusCompleted,
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for _, p := range products {
			grant := &models.FileGrant{
				OrderID:   order.ID,
				ProductID: p.ID,
				UserEmail: user.Email,
				Status:    models.GrantStatusPending,
			}
			if err := tx.Create(grant).Error; err != nil {
				return err
			}
			order.Grants = append(order.Grants, *grant)
		}

		// Purchased items leave the cart as part of the same commit.
		return tx.Where("user_id = ? AND product_id IN ?", user.ID, input.ProductIDs).
			Delete(&models.CartItem{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindConflict, "this payment has already been processed")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create order", err)
	}

	s.issueGrants(ctx, order)

	go s.notifications.SendPurchaseConfirmation(user.Email, user.Name, order, products)

	return order, nil
}

func (s *OrderService) loadOrderProducts(productIDs []string) ([]models.Product, error) {
	seen := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			return nil, apperrors.Newf(apperrors.KindValidation, "duplicate product %s in order", id)
		}
		seen[id] = true
	}

	var products []models.Product
	if err := s.db.Where("id IN ? AND active = ?", productIDs, true).Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load order products", err)
	}

	if len(products) != len(productIDs) {
		for _, id := range productIDs {
			found := false
			for _, p := range products {
				if p.ID == id {
					found = true
					break
				}
			}
			if !found {
				return nil, apperrors.Newf(apperrors.KindNotFound, "product %s not found or unavailable", id)
			}
		}
	}

	return products, nil
}

// cartQuantities maps each ordered product to the caller's cart quantity.
// Products absent from the cart are not in the map.
func (s *OrderService) cartQuantities(userID uuid.UUID, productIDs []string) (map[string]int, error) {
	var items []models.CartItem
	if err := s.db.Where("user_id = ? AND product_id IN ?", userID, productIDs).Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load cart quantities", err)
	}

	quantities := make(map[string]int, len(items))
	for _, item := range items {
		quantities[item.ProductID] = item.Quantity
	}
	return quantities, nil
}

// issueGrants attempts every pending grant of an order. Failures are
// recorded on the row and left pending.
func (s *OrderService) issueGrants(ctx context.Context, order *models.Order) {
	for i := range order.Grants {
		grant := &order.Grants[i]
		if grant.Status != models.GrantStatusPending {
			continue
		}
		if err := s.issueGrant(ctx, grant); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"grant_id":   grant.ID,
				"product_id": grant.ProductID,
			}).Warn("File grant issuance failed, will retry")
		}
	}
}

func (s *OrderService) issueGrant(ctx context.Context, grant *models.FileGrant) error {
	result, err := s.grants.GrantAccess(ctx, grant.UserEmail, grant.ProductID)
	if err != nil {
		grant.LastError = err.Error()
		if dbErr := s.db.Model(grant).Update("last_error", grant.LastError).Error; dbErr != nil {
			logrus.WithError(dbErr).WithField("grant_id", grant.ID).Error("Failed to record grant issuance error")
		}
		return err
	}

	now := time.Now()
	grant.FileID = result.FileID
	grant.FileName = result.FileName
	grant.PermissionID = result.PermissionID
	grant.DownloadURL = result.DownloadURL
	grant.ViewURL = result.ViewURL
	grant.Status = models.GrantStatusActive
	grant.GrantedAt = &now
	grant.LastError = ""

	return s.db.Model(grant).Updates(map[string]interface{}{
		"file_id":       grant.FileID,
		"file_name":     grant.FileName,
		"permission_id": grant.PermissionID,
		"download_url":  grant.DownloadURL,
		"view_url":      grant.ViewURL,
		"status":        grant.Status,
		"granted_at":    now,
		"last_error":    "",
	}).Error
}

// CheckAccess reports whether the user has purchased the product. Any
// non-revoked grant counts, a pending one still represents a completed
// purchase whose file access is catching up.
func (s *OrderService) CheckAccess(userEmail, productID string) (*AccessCheckResult, error) {
	var grant models.FileGrant
	err := s.db.Where("user_email = ? AND product_id = ? AND status <> ?",
		userEmail, productID, models.GrantStatusRevoked).
		Order("created_at DESC").
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AccessCheckResult{ProductID: productID, HasAccess: false}, nil
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to check access", err)
	}

	return &AccessCheckResult{
		ProductID: productID,
		HasAccess: true,
		Status:    string(grant.Status),
	}, nil
}

// GetDownloadURL returns the download link for a purchased product. A
// pending grant gets one more issuance attempt before giving up.
func (s *OrderService) GetDownloadURL(ctx context.Context, userEmail, productID string) (*DownloadResult, error) {
	var grant models.FileGrant
	err := s.db.Where("user_email = ? AND product_id = ? AND status <> ?",
		userEmail, productID, models.GrantStatusRevoked).
		Order("created_at DESC").
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindForbidden, "this product has not been purchased")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up grant", err)
	}

	if grant.Status == models.GrantStatusPending {
		if err := s.issueGrant(ctx, &grant); err != nil {
			return nil, apperrors.Wrap(apperrors.KindIntegration, "file access is still being prepared", err)
		}
	}

	if grant.DownloadURL != "" {
		return &DownloadResult{
			FileID:      grant.FileID,
			FileName:    grant.FileName,
			DownloadURL: grant.DownloadURL,
			ViewURL:     grant.ViewURL,
		}, nil
	}

	result, err := s.grants.ResolveDownloadURL(ctx, productID, userEmail)
	if err != nil {
		return nil, err
	}

	s.db.Model(&grant).Updates(map[string]interface{}{
		"file_id":      result.FileID,
		"file_name":    result.FileName,
		"download_url": result.DownloadURL,
		"view_url":     result.ViewURL,
	})

	return result, nil
}

func (s *OrderService) GetOrders(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to count orders", err)
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total_amount"})
	if err := utils.ApplyPagination(query, params).Preload("Grants").Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list orders", err)
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

// GetLibrary rebuilds the user's purchased-products list from completed
// orders. The newest grant per product wins.
func (s *OrderService) GetLibrary(userID uuid.UUID) ([]LibraryEntry, error) {
	var orders []models.Order
	err := s.db.Where("user_id = ? AND status = ?", userID, models.OrderStatusCompleted).
		Preload("Grants").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load orders", err)
	}

	type grantInfo struct {
		orderID     uuid.UUID
		purchasedAt time.Time
		status      models.GrantStatus
		viewURL     string
	}
	byProduct := make(map[string]grantInfo)
	productIDs := make([]string, 0)

	for _, order := range orders {
		for _, grant := range order.Grants {
			if grant.Status == models.GrantStatusRevoked {
				continue
			}
			if _, exists := byProduct[grant.ProductID]; exists {
				continue
			}
			byProduct[grant.ProductID] = grantInfo{
				orderID:     order.ID,
				purchasedAt: order.CreatedAt,
				status:      grant.Status,
				viewURL:     grant.ViewURL,
			}
			productIDs = append(productIDs, grant.ProductID)
		}
	}

	if len(productIDs) == 0 {
		return []LibraryEntry{}, nil
	}

	var products []models.Product
	if err := s.db.Unscoped().Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load library products", err)
	}
	productMap := make(map[string]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	entries := make([]LibraryEntry, 0, len(productIDs))
	for _, id := range productIDs {
		info := byProduct[id]
		entries = append(entries, LibraryEntry{
			Product:     productMap[id],
			OrderID:     info.orderID,
			PurchasedAt: info.purchasedAt,
			GrantStatus: info.status,
			ViewURL:     info.viewURL,
		})
	}
	return entries, nil
}

// Admin operations

func (s *OrderService) ListAllOrders(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to count orders", err)
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total_amount", "status"})
	if err := utils.ApplyPagination(query, params).Preload("Grants").Preload("User").Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list orders", err)
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

func (s *OrderService) RetryGrant(ctx context.Context, grantID string) (*models.FileGrant, error) {
	var grant models.FileGrant
	if err := s.db.Where("id = ?", grantID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "file grant not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up grant", err)
	}

	if grant.Status != models.GrantStatusPending {
		return nil, apperrors.Newf(apperrors.KindValidation, "grant is %s, only pending grants can be retried", grant.Status)
	}

	if err := s.issueGrant(ctx, &grant); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntegration, "grant retry failed", err)
	}
	return &grant, nil
}

func (s *OrderService) RevokeGrant(ctx context.Context, grantID string) (*models.FileGrant, error) {
	var grant models.FileGrant
	if err := s.db.Where("id = ?", grantID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "file grant not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up grant", err)
	}

	if grant.Status == models.GrantStatusRevoked {
		return &grant, nil
	}

	if grant.FileID != "" {
		if err := s.grants.RevokeAccess(ctx, grant.FileID, grant.UserEmail); err != nil {
			// A permission that no longer exists upstream is already revoked.
			if !apperrors.Is(err, apperrors.KindNotFound) {
				return nil, err
			}
		}
	}

	grant.Status = models.GrantStatusRevoked
	if err := s.db.Model(&grant).Update("status", grant.Status).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to mark grant revoked", err)
	}
	return &grant, nil
}

// RetryPendingGrants sweeps grants stuck in pending and reattempts them.
// Runs at startup and is safe to call repeatedly.
func (s *OrderService) RetryPendingGrants(ctx context.Context) {
	var grants []models.FileGrant
	err := s.db.Where("status = ? AND created_at < ?", models.GrantStatusPending, time.Now().Add(-time.Minute)).
		Limit(100).
		Find(&grants).Error
	if err != nil {
		logrus.WithError(err).Error("Pending grant sweep failed to load grants")
		return
	}

	var issued, failed int
	for i := range grants {
		if ctx.Err() != nil {
			return
		}
		if err := s.issueGrant(ctx, &grants[i]); err != nil {
			failed++
			continue
		}
		issued++
	}

	if issued > 0 || failed > 0 {
		logrus.WithFields(logrus.Fields{
			"issued": issued,
			"failed": failed,
		}).Info(fmt.Sprintf("Pending grant sweep processed %d grants", issued+failed))
	}
}
