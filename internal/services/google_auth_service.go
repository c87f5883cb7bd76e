// internal/services/google_auth_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
)

// GoogleProfile is the subset of ID token claims the store cares about.
type GoogleProfile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type GoogleAuthService struct {
	db   *gorm.DB
	cfg  *config.Config
	auth *AuthService

	// validate checks a Google ID token. Overridable in tests.
	validate func(ctx context.Context, credential, clientID string) (*idtoken.Payload, error)
}

func NewGoogleAuthService(db *gorm.DB, cfg *config.Config, auth *AuthService) *GoogleAuthService {
	return &GoogleAuthService{
		db:       db,
		cfg:      cfg,
		auth:     auth,
		validate: idtoken.Validate,
	}
}

// VerifyCredential validates a Google ID token and extracts the profile.
func (s *GoogleAuthService) VerifyCredential(ctx context.Context, credential string) (*GoogleProfile, error) {
	if s.cfg.Google.ClientID == "" {
		return nil, apperrors.New(apperrors.KindIntegration, "google sign-in not configured")
	}

	payload, err := s.validate(ctx, credential, s.cfg.Google.ClientID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuth, "google credential could not be verified", err)
	}

	profile := &GoogleProfile{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = strings.ToLower(email)
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		profile.Picture = picture
	}

	if profile.Email == "" {
		return nil, apperrors.New(apperrors.KindAuth, "google credential carries no email")
	}

	return profile, nil
}

// Login signs the user in with a verified Google credential, creating the
// account on first use and linking the Google ID to an existing local
// account with the same email.
func (s *GoogleAuthService) Login(ctx context.Context, credential string) (*AuthResponse, error) {
	profile, err := s.VerifyCredential(ctx, credential)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Where("google_id = ?", profile.Subject).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Fall back to email match so a local account picks up its Google ID.
		err = s.db.Where("email = ?", profile.Email).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Name:           profile.Name,
				Email:          profile.Email,
				Role:           models.UserRoleCustomer,
				Provider:       models.AuthProviderGoogle,
				GoogleID:       &profile.Subject,
				ProfilePicture: profile.Picture,
			}
			if err := s.db.Create(&user).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create user", err)
			}
		} else {
			updates := map[string]interface{}{
				"google_id": profile.Subject,
			}
			if user.ProfilePicture == "" && profile.Picture != "" {
				updates["profile_picture"] = profile.Picture
			}
			if err := s.db.Model(&user).Updates(updates).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.KindInternal, "failed to link google account", err)
			}
			user.GoogleID = &profile.Subject
		}
	}

	now := time.Now()
	user.LastLoginAt = &now
	s.db.Model(&user).Update("last_login_at", now)

	return s.auth.buildAuthResponse(&user)
}
