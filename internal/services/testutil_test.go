// internal/services/testutil_test.go
package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.FileGrant{},
		&models.AuditLog{},
	))

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 1,
		},
		Frontend: config.FrontendConfig{
			BaseURL: "http://localhost:8080",
		},
	}
}

func seedProduct(t *testing.T, db *gorm.DB, id, name string, price float64, featured bool) models.Product {
	t.Helper()

	product := models.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "Ofimática",
		Featured: featured,
		Active:   true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Role:     models.UserRoleCustomer,
		Provider: models.AuthProviderLocal,
	}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, db.Create(user).Error)
	return user
}

func registerUser(t *testing.T, auth *AuthService, email string) *models.User {
	t.Helper()

	resp, err := auth.Register(RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)
	return resp.User
}

// stubGrantProvider is an in-memory FileGrantProvider for tests. Grants
// are keyed by email and product, and individual products can be made to
// fail to exercise the retry path.
type stubGrantProvider struct {
	mu      sync.Mutex
	grants  map[string]bool
	failing map[string]error
	calls   int
}

func newStubGrantProvider() *stubGrantProvider {
	return &stubGrantProvider{
		grants:  make(map[string]bool),
		failing: make(map[string]error),
	}
}

func (p *stubGrantProvider) failProduct(productID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[productID] = err
}

func (p *stubGrantProvider) fixProduct(productID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failing, productID)
}

func grantKey(email, productID string) string {
	return email + "|" + productID
}

func (p *stubGrantProvider) GrantAccess(ctx context.Context, userEmail, productID string) (*GrantResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if err := p.failing[productID]; err != nil {
		return nil, err
	}

	p.grants[grantKey(userEmail, productID)] = true
	fileID := "file-" + productID
	return &GrantResult{
		FileID:       fileID,
		FileName:     "product_" + productID + ".zip",
		PermissionID: "perm-" + productID,
		DownloadURL:  fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID),
		ViewURL:      fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID),
	}, nil
}

func (p *stubGrantProvider) ResolveDownloadURL(ctx context.Context, productID, userEmail string) (*DownloadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.grants[grantKey(userEmail, productID)] {
		return nil, apperrors.New(apperrors.KindForbidden, "file has not been shared with this account")
	}

	fileID := "file-" + productID
	return &DownloadResult{
		FileID:      fileID,
		FileName:    "product_" + productID + ".zip",
		DownloadURL: fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID),
		ViewURL:     fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID),
	}, nil
}

func (p *stubGrantProvider) CheckPermission(ctx context.Context, fileID, userEmail string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.grants {
		if key == grantKey(userEmail, fileID[len("file-"):]) {
			return true, nil
		}
	}
	return false, nil
}

func (p *stubGrantProvider) RevokeAccess(ctx context.Context, fileID, userEmail string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := grantKey(userEmail, fileID[len("file-"):])
	if !p.grants[key] {
		return apperrors.Newf(apperrors.KindNotFound, "no permission for %s on file %s", userEmail, fileID)
	}
	delete(p.grants, key)
	return nil
}
