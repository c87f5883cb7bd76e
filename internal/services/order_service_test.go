// internal/services/order_service_test.go
package services

import (
	"context"
	"testing"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/models"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

func TestCreateOrderIssuesGrants(t *testing.T) {
	cart, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")
	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.NotEmpty(t, order.PaymentID)
	require.Len(t, order.Grants, 1)
	assert.Equal(t, models.GrantStatusActive, order.Grants[0].Status)
	assert.Equal(t, "alice@example.com", order.Grants[0].UserEmail)
	assert.NotEmpty(t, order.Grants[0].DownloadURL)
	assert.NotNil(t, order.Grants[0].GrantedAt)

	// Purchased items leave the cart.
	summary, err := cart.GetCart(user.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestCreateOrderAcceptsQuantityWeightedTotal(t *testing.T) {
	cart, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")
	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7", Quantity: 2})
	require.NoError(t, err)

	// The submitted total is the cart total, so quantity counts.
	total, err := cart.GetCartTotal(user.ID)
	require.NoError(t, err)
	require.InDelta(t, 199.98, total, 0.001)

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: total,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	require.Len(t, order.Grants, 1)
	assert.Equal(t, models.GrantStatusActive, order.Grants[0].Status)
}

func TestCreateOrderRejectsWrongTotal(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 1.00,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"999"},
		TotalAmount: 10.00,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCreateOrderRejectsDuplicatePayment(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	input := CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
		PaymentID:   "PAY-123",
	}

	_, err := orders.CreateOrder(context.Background(), user, input)
	require.NoError(t, err)

	_, err = orders.CreateOrder(context.Background(), user, input)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestGrantFailureKeepsOrderAndRetries(t *testing.T) {
	_, orders, provider, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	provider.failProduct("7", apperrors.New(apperrors.KindIntegration, "upstream unavailable"))

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)
	require.Len(t, order.Grants, 1)

	// The purchase survives, the grant stays pending with the failure recorded.
	var grant models.FileGrant
	require.NoError(t, orders.db.First(&grant, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.GrantStatusPending, grant.Status)
	assert.Contains(t, grant.LastError, "upstream unavailable")

	// Access still reflects the completed purchase.
	access, err := orders.CheckAccess(user.Email, "7")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	assert.Equal(t, string(models.GrantStatusPending), access.Status)

	// Once the provider recovers an admin retry activates the grant.
	provider.fixProduct("7")
	retried, err := orders.RetryGrant(context.Background(), grant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusActive, retried.Status)
	assert.Empty(t, retried.LastError)
}

func TestIssueGrantLogsWhenFailureRecordCannotBeStored(t *testing.T) {
	_, orders, provider, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	provider.failProduct("7", apperrors.New(apperrors.KindIntegration, "upstream unavailable"))
	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)
	require.Len(t, order.Grants, 1)

	hook := logrustest.NewGlobal()
	defer hook.Reset()

	// With the database gone the failure record cannot be written either.
	sqlDB, err := orders.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = orders.issueGrant(context.Background(), &order.Grants[0])
	require.Error(t, err)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Failed to record grant issuance error" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestRetryGrantRejectsActiveGrant(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	_, err = orders.RetryGrant(context.Background(), order.Grants[0].ID.String())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestCheckAccessWithoutPurchase(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	access, err := orders.CheckAccess(user.Email, "8")
	require.NoError(t, err)
	assert.False(t, access.HasAccess)
}

func TestGetDownloadURLRequiresPurchase(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := orders.GetDownloadURL(context.Background(), user.Email, "7")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestGetDownloadURLAfterPurchase(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	result, err := orders.GetDownloadURL(context.Background(), user.Email, "7")
	require.NoError(t, err)
	assert.Contains(t, result.DownloadURL, "export=download")
	assert.NotEmpty(t, result.FileName)
}

func TestGetDownloadURLIssuesPendingGrant(t *testing.T) {
	_, orders, provider, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	provider.failProduct("7", apperrors.New(apperrors.KindIntegration, "upstream unavailable"))
	_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	provider.fixProduct("7")
	result, err := orders.GetDownloadURL(context.Background(), user.Email, "7")
	require.NoError(t, err)
	assert.NotEmpty(t, result.DownloadURL)
}

func TestRevokeGrantRemovesAccess(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	grant, err := orders.RevokeGrant(context.Background(), order.Grants[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusRevoked, grant.Status)

	access, err := orders.CheckAccess(user.Email, "7")
	require.NoError(t, err)
	assert.False(t, access.HasAccess)

	// Revoking again is a no-op.
	again, err := orders.RevokeGrant(context.Background(), grant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusRevoked, again.Status)
}

func TestGetLibraryRebuildsFromOrders(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7", "8"},
		TotalAmount: 99.99 + 249.99,
	})
	require.NoError(t, err)

	library, err := orders.GetLibrary(user.ID)
	require.NoError(t, err)
	require.Len(t, library, 2)

	names := []string{library[0].Product.Name, library[1].Product.Name}
	assert.Contains(t, names, "Microsoft Office 365")
	assert.Contains(t, names, "Adobe Photoshop 2024")
	for _, entry := range library {
		assert.Equal(t, models.GrantStatusActive, entry.GrantStatus)
		assert.False(t, entry.PurchasedAt.IsZero())
	}
}

func TestGetLibraryExcludesRevokedGrants(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	order, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
		ProductIDs:  []string{"7"},
		TotalAmount: 99.99,
	})
	require.NoError(t, err)

	_, err = orders.RevokeGrant(context.Background(), order.Grants[0].ID.String())
	require.NoError(t, err)

	library, err := orders.GetLibrary(user.ID)
	require.NoError(t, err)
	assert.Empty(t, library)
}

func TestGetOrdersPaginates(t *testing.T) {
	_, orders, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	for i := 0; i < 3; i++ {
		_, err := orders.CreateOrder(context.Background(), user, CreateOrderInput{
			ProductIDs:  []string{"7"},
			TotalAmount: 99.99,
		})
		require.NoError(t, err)
	}

	result, err := orders.GetOrders(user.ID, utils.PaginationParams{Page: 1, Limit: 2, Sort: "created_at", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, 2, result.TotalPages)

	page, ok := result.Data.([]models.Order)
	require.True(t, ok)
	assert.Len(t, page, 2)
}
