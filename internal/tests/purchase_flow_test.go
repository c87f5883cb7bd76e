// internal/tests/purchase_flow_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
	"github.com/cisnetsa/cisnet-backend/internal/router"
	"github.com/cisnetsa/cisnet-backend/internal/services"
)

// fakeGrantProvider stands in for the Drive integration so the whole HTTP
// stack can be exercised without network access.
type fakeGrantProvider struct {
	granted map[string]bool
}

func (p *fakeGrantProvider) key(email, productID string) string {
	return email + "|" + productID
}

func (p *fakeGrantProvider) GrantAccess(ctx context.Context, userEmail, productID string) (*services.GrantResult, error) {
	p.granted[p.key(userEmail, productID)] = true
	fileID := "file-" + productID
	return &services.GrantResult{
		FileID:       fileID,
		FileName:     "product_" + productID + ".zip",
		PermissionID: "perm-" + productID,
		DownloadURL:  fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID),
		ViewURL:      fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID),
	}, nil
}

func (p *fakeGrantProvider) ResolveDownloadURL(ctx context.Context, productID, userEmail string) (*services.DownloadResult, error) {
	fileID := "file-" + productID
	return &services.DownloadResult{
		FileID:      fileID,
		FileName:    "product_" + productID + ".zip",
		DownloadURL: fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID),
	}, nil
}

func (p *fakeGrantProvider) CheckPermission(ctx context.Context, fileID, userEmail string) (bool, error) {
	return p.granted[p.key(userEmail, fileID[len("file-"):])], nil
}

func (p *fakeGrantProvider) RevokeAccess(ctx context.Context, fileID, userEmail string) error {
	delete(p.granted, p.key(userEmail, fileID[len("file-"):]))
	return nil
}

type PurchaseFlowTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func (s *PurchaseFlowTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(s.T(), err)

	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(s.T(), db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.FileGrant{},
		&models.AuditLog{},
	))

	require.NoError(s.T(), db.Create(&models.Product{
		ID:       "7",
		Name:     "Microsoft Office 365",
		Price:    99.99,
		Category: "Ofimática",
		Featured: true,
		Active:   true,
	}).Error)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{CORSOrigin: "*"},
		JWT:         config.JWTConfig{SecretKey: "suite-secret", AccessTokenTTL: 1},
		Frontend:    config.FrontendConfig{BaseURL: "http://localhost:8080"},
	}

	s.db = db
	s.router = router.Initialize(db, cfg, &fakeGrantProvider{granted: make(map[string]bool)})
}

func (s *PurchaseFlowTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *PurchaseFlowTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// TestPurchaseFlow walks the storefront journey end to end: register, log
// in, fill the cart, check out, then verify file access.
func (s *PurchaseFlowTestSuite) TestPurchaseFlow() {
	t := s.T()

	// Register
	w := s.request("POST", "/api/auth/register", map[string]interface{}{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Login
	w = s.request("POST", "/api/auth/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := s.decode(w)
	data := response["data"].(map[string]interface{})
	s.token = data["token"].(string)
	require.NotEmpty(t, s.token)

	// Add the product to the cart
	w = s.request("POST", "/api/cart/items", map[string]interface{}{
		"product_id": "7",
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Cart total reflects the catalog price
	w = s.request("GET", "/api/cart/total", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response = s.decode(w)
	total := response["data"].(map[string]interface{})["total"].(float64)
	assert.InDelta(t, 99.99, total, 0.001)

	// Simulated checkout
	w = s.request("POST", "/api/purchases/create-order", map[string]interface{}{
		"productIds":  []string{"7"},
		"totalAmount": 99.99,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	response = s.decode(w)
	orderData := response["data"].(map[string]interface{})
	require.NotEmpty(t, orderData["orderId"])

	// Purchase grants access
	w = s.request("POST", "/api/purchases/check-access", map[string]interface{}{
		"productId": "7",
	})
	require.Equal(t, http.StatusOK, w.Code)
	response = s.decode(w)
	accessData := response["data"].(map[string]interface{})
	assert.True(t, accessData["hasAccess"].(bool))

	// Download URL is available
	w = s.request("POST", "/api/purchases/get-download-url", map[string]interface{}{
		"productId": "7",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response = s.decode(w)
	downloadData := response["data"].(map[string]interface{})
	assert.Contains(t, downloadData["download_url"].(string), "export=download")

	// The cart emptied as part of checkout
	w = s.request("GET", "/api/cart/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response = s.decode(w)
	assert.Zero(t, response["data"].(map[string]interface{})["count"].(float64))

	// A product that was never purchased stays locked
	w = s.request("POST", "/api/purchases/check-access", map[string]interface{}{
		"productId": "99",
	})
	require.Equal(t, http.StatusOK, w.Code)
	response = s.decode(w)
	assert.False(t, response["data"].(map[string]interface{})["hasAccess"].(bool))

	// The library rebuilt from orders lists the purchase
	w = s.request("GET", "/api/purchases/library", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response = s.decode(w)
	library := response["data"].(map[string]interface{})["library"].([]interface{})
	require.Len(t, library, 1)
}

func (s *PurchaseFlowTestSuite) TestCartEndpointsRequireAuth() {
	saved := s.token
	s.token = ""
	defer func() { s.token = saved }()

	w := s.request("GET", "/api/cart", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	w = s.request("POST", "/api/purchases/create-order", map[string]interface{}{
		"productIds":  []string{"7"},
		"totalAmount": 99.99,
	})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *PurchaseFlowTestSuite) TestHealthEndpoint() {
	w := s.request("GET", "/api/health", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	response := s.decode(w)
	assert.Equal(s.T(), "healthy", response["status"])
}

func TestPurchaseFlowTestSuite(t *testing.T) {
	suite.Run(t, new(PurchaseFlowTestSuite))
}
