// internal/models/product.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Product keeps the catalog's short string IDs ("1".."18") as primary key
// so they line up with the Drive file mapping and client-side routes.
type Product struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Category    string         `json:"category" gorm:"size:100;index"`
	ImageURL    string         `json:"image_url" gorm:"size:500"`
	DownloadURL string         `json:"download_url,omitempty" gorm:"size:500"`
	Featured    bool           `json:"featured" gorm:"default:false"`
	Active      bool           `json:"active" gorm:"default:true;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
