// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name                string       `json:"name" gorm:"size:100;not null"`
	Email               string       `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string       `json:"-" gorm:"size:255"`
	Role                UserRole     `json:"role" gorm:"type:varchar(20);default:'customer'"`
	Provider            AuthProvider `json:"provider" gorm:"type:varchar(20);default:'local'"`
	GoogleID            *string      `json:"google_id,omitempty" gorm:"uniqueIndex;size:100"`
	ProfilePicture      string       `json:"profile_picture,omitempty" gorm:"size:500"`
	ResetToken          *string      `json:"-" gorm:"index;size:64"`
	ResetTokenExpiresAt *time.Time   `json:"-"`
	LastLoginAt         *time.Time   `json:"last_login_at,omitempty"`

	// Relationships
	CartItems []CartItem `json:"cart_items,omitempty" gorm:"foreignKey:UserID"`
	Orders    []Order    `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
