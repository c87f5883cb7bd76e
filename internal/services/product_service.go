// internal/services/product_service.go
package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/models"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

type ProductInput struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,max=100"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	DownloadURL string  `json:"download_url" validate:"omitempty,url"`
	Featured    bool    `json:"featured"`
	Active      *bool   `json:"active"`
}

func (s *ProductService) List(params utils.PaginationParams, category string) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{}).Where("active = ?", true)

	if category != "" {
		query = query.Where("category = ?", category)
	}

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to count products", err)
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "price", "name"})
	if err := utils.ApplyPagination(query, params).Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list products", err)
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

func (s *ProductService) GetFeatured() ([]models.Product, error) {
	var products []models.Product
	err := s.db.Where("featured = ? AND active = ?", true, true).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list featured products", err)
	}
	return products, nil
}

func (s *ProductService) GetByID(id string, includeInactive bool) (*models.Product, error) {
	query := s.db.Where("id = ?", id)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up product", err)
	}
	return &product, nil
}

func (s *ProductService) Search(term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.New(apperrors.KindValidation, "search term is required")
	}

	pattern := "%" + strings.ToLower(term) + "%"
	var products []models.Product
	err := s.db.Where("active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "product search failed", err)
	}
	return products, nil
}

// Admin operations

func (s *ProductService) ListAll(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to count products", err)
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "price", "name", "category"})
	if err := utils.ApplyPagination(query, params).Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list products", err)
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	product := &models.Product{
		ID:          strings.TrimSpace(input.ID),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		DownloadURL: input.DownloadURL,
		Featured:    input.Featured,
		Active:      true,
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	if err := s.db.Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindConflict, "a product with this id already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create product", err)
	}
	return product, nil
}

func (s *ProductService) Update(id string, input ProductInput) (*models.Product, error) {
	product, err := s.GetByID(id, true)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = input.Price
	product.Category = input.Category
	product.Featured = input.Featured
	if input.ImageURL != "" {
		product.ImageURL = input.ImageURL
	}
	if input.DownloadURL != "" {
		product.DownloadURL = input.DownloadURL
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to update product", err)
	}
	return product, nil
}

func (s *ProductService) Delete(id string) error {
	result := s.db.Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "product not found")
	}
	return nil
}

func (s *ProductService) SetImage(id, imageURL string) (*models.Product, error) {
	product, err := s.GetByID(id, true)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(product).Update("image_url", imageURL).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to update product image", err)
	}
	product.ImageURL = imageURL
	return product, nil
}
