// internal/services/auth_service.go
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

type AuthService struct {
	db            *gorm.DB
	cfg           *config.Config
	notifications *NotificationService
}

func NewAuthService(db *gorm.DB, cfg *config.Config, notifications *NotificationService) *AuthService {
	return &AuthService{
		db:            db,
		cfg:           cfg,
		notifications: notifications,
	}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,store_password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
}

func (s *AuthService) Register(input RegisterInput) (*AuthResponse, error) {
	user := &models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Role:     models.UserRoleCustomer,
		Provider: models.AuthProviderLocal,
	}

	if err := user.SetPassword(input.Password); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindConflict, "an account with this email already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create user", err)
	}

	go s.notifications.SendWelcomeEmail(user.Email, user.Name)

	return s.buildAuthResponse(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindAuth, "invalid email or password")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}

	if user.PasswordHash == "" {
		// Google-only accounts have no local password.
		return nil, apperrors.New(apperrors.KindAuth, "invalid email or password")
	}

	if err := user.CheckPassword(input.Password); err != nil {
		return nil, apperrors.New(apperrors.KindAuth, "invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logrus.WithError(err).Warn("Failed to record last login time")
	}

	return s.buildAuthResponse(&user)
}

func (s *AuthService) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}
	return &user, nil
}

// ForgotPassword issues a reset token. The response is identical whether or
// not the account exists so the endpoint cannot be used for enumeration.
func (s *AuthService) ForgotPassword(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.Where("email = ? AND provider = ?", email, models.AuthProviderLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to generate reset token", err)
	}

	// Only the hash is stored. The raw token travels in the email link.
	hashed := utils.HashString(token)
	expiresAt := time.Now().Add(time.Hour)

	updates := map[string]interface{}{
		"reset_token":            hashed,
		"reset_token_expires_at": expiresAt,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to store reset token", err)
	}

	go s.notifications.SendPasswordResetEmail(user.Email, user.Name, token)

	return nil
}

func (s *AuthService) ResetPassword(token, newPassword string) error {
	hashed := utils.HashString(token)

	var user models.User
	err := s.db.Where("reset_token = ? AND reset_token_expires_at > ?", hashed, time.Now()).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.KindValidation, "reset token is invalid or expired")
		}
		return apperrors.Wrap(apperrors.KindInternal, "failed to look up reset token", err)
	}

	if err := user.SetPassword(newPassword); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
	}

	updates := map[string]interface{}{
		"password_hash":          user.PasswordHash,
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to update password", err)
	}

	return nil
}

func (s *AuthService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	ttlHours := s.cfg.JWT.AccessTokenTTL
	token, err := utils.GenerateJWT(user.ID, user.Email, user.Name, string(user.Role), ttlHours)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to sign token", err)
	}

	return &AuthResponse{
		User:      user,
		Token:     token,
		ExpiresIn: int64(ttlHours) * 3600,
	}, nil
}
