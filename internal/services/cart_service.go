// internal/services/cart_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/database"
	"github.com/cisnetsa/cisnet-backend/internal/models"
)

type CartService struct {
	db       *gorm.DB
	products *ProductService
}

func NewCartService(db *gorm.DB, products *ProductService) *CartService {
	return &CartService{db: db, products: products}
}

type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gt=0"`
}

type MergeCartInput struct {
	Items []AddItemInput `json:"items" validate:"required,dive"`
}

type CartSummary struct {
	Items     []models.CartItem `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"item_count"`
}

func (s *CartService) GetCart(userID uuid.UUID) (*CartSummary, error) {
	var items []models.CartItem
	err := s.db.Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load cart", err)
	}

	summary := &CartSummary{Items: items}
	for _, item := range items {
		if item.Product.Active {
			summary.Total += item.Product.Price * float64(item.Quantity)
		}
		summary.ItemCount += item.Quantity
	}
	return summary, nil
}

// AddItem puts a product in the cart. Adding a product already present
// increments its quantity instead of creating a second row.
func (s *CartService) AddItem(userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.products.GetByID(input.ProductID, false)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		findErr := tx.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item).Error
		if findErr == nil {
			item.Quantity += quantity
			return tx.Model(&item).Update("quantity", item.Quantity).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		item = models.CartItem{
			UserID:    userID,
			ProductID: product.ID,
			Quantity:  quantity,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		// A concurrent insert can still trip the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindConflict, "cart item was modified concurrently, retry")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to add cart item", err)
	}

	item.Product = *product
	return &item, nil
}

func (s *CartService) UpdateItem(userID uuid.UUID, itemID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.New(apperrors.KindValidation, "quantity must be at least 1")
	}

	var item models.CartItem
	err := s.db.Preload("Product").
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "cart item not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up cart item", err)
	}

	if err := s.db.Model(&item).Update("quantity", quantity).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to update cart item", err)
	}
	item.Quantity = quantity
	return &item, nil
}

// RemoveItem deletes a cart row. Removing an absent item is not an error,
// the cart ends up in the requested state either way.
func (s *CartService) RemoveItem(userID uuid.UUID, itemID string) error {
	err := s.db.Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to remove cart item", err)
	}
	return nil
}

func (s *CartService) ClearCart(userID uuid.UUID) error {
	err := s.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to clear cart", err)
	}
	return nil
}

// GetCartTotal computes the total from current product prices, not the
// prices at the time items were added.
func (s *CartService) GetCartTotal(userID uuid.UUID) (float64, error) {
	var total *float64
	err := s.db.Model(&models.CartItem{}).
		Select("SUM(products.price * cart_items.quantity)").
		Joins("JOIN products ON products.id = cart_items.product_id AND products.active = ? AND products.deleted_at IS NULL", true).
		Where("cart_items.user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, "failed to compute cart total", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (s *CartService) GetCartItemCount(userID uuid.UUID) (int, error) {
	var count *int
	err := s.db.Model(&models.CartItem{}).
		Select("SUM(quantity)").
		Where("user_id = ?", userID).
		Scan(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, "failed to count cart items", err)
	}
	if count == nil {
		return 0, nil
	}
	return *count, nil
}

// MergeCart folds a guest cart into the user's server-side cart after
// login. Unknown or inactive products are skipped silently.
func (s *CartService) MergeCart(userID uuid.UUID, input MergeCartInput) (*CartSummary, error) {
	for _, guestItem := range input.Items {
		if guestItem.Quantity < 1 {
			guestItem.Quantity = 1
		}
		if _, err := s.AddItem(userID, guestItem); err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				continue
			}
			return nil, err
		}
	}
	return s.GetCart(userID)
}
