// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Order is an immutable record of a completed (simulated) checkout.
// PaymentID carries a unique index: a duplicate checkout request with the
// same client-generated payment ID is rejected instead of double-created.
type Order struct {
	BaseModel
	UserID        uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductIDs    pq.StringArray `json:"product_ids" gorm:"type:text[];not null"`
	TotalAmount   float64        `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	PaymentMethod string         `json:"payment_method" gorm:"size:50;not null"`
	PaymentID     string         `json:"payment_id" gorm:"size:100;uniqueIndex;not null"`
	Status        OrderStatus    `json:"status" gorm:"type:varchar(20);default:'completed';index"`
	Metadata      JSONB          `json:"metadata,omitempty" gorm:"type:jsonb"`

	// Relationships
	User   User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Grants []FileGrant `json:"grants,omitempty" gorm:"foreignKey:OrderID"`
}

// FileGrant records a permission allowing a user to obtain a download URL
// for a product's backing file. Rows are written as pending inside the
// order transaction and flipped to active once the Drive call succeeds,
// so a failed grant stays retryable without touching the order.
type FileGrant struct {
	BaseModel
	OrderID      uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID    string      `json:"product_id" gorm:"size:36;not null;index"`
	UserEmail    string      `json:"user_email" gorm:"size:255;not null;index"`
	FileID       string      `json:"file_id,omitempty" gorm:"size:100"`
	FileName     string      `json:"file_name,omitempty" gorm:"size:255"`
	PermissionID string      `json:"permission_id,omitempty" gorm:"size:100"`
	DownloadURL  string      `json:"download_url,omitempty" gorm:"size:500"`
	ViewURL      string      `json:"view_url,omitempty" gorm:"size:500"`
	Status       GrantStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	GrantedAt    *time.Time  `json:"granted_at,omitempty"`
	LastError    string      `json:"-" gorm:"type:text"`
}
