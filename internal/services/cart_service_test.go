// internal/services/cart_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
)

func newCartFixture(t *testing.T) (*CartService, *OrderService, *stubGrantProvider, *AuthService) {
	t.Helper()

	db := setupTestDB(t)
	cfg := testConfig()
	notifications := NewNotificationService(cfg)
	products := NewProductService(db)
	cart := NewCartService(db, products)
	provider := newStubGrantProvider()
	orders := NewOrderService(db, provider, notifications)
	auth := NewAuthService(db, cfg, notifications)

	seedProduct(t, db, "7", "Microsoft Office 365", 99.99, true)
	seedProduct(t, db, "8", "Adobe Photoshop 2024", 249.99, true)

	return cart, orders, provider, auth
}

func TestAddItemCreatesRow(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "7", item.ProductID)
	assert.Equal(t, "Microsoft Office 365", item.Product.Name)
}

func TestAddItemIncrementsQuantityOnRepeat(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7", Quantity: 2})
	require.NoError(t, err)

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	summary, err := cart.GetCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)
	assert.Equal(t, 5, summary.ItemCount)
}

func TestAddItemUnknownProduct(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "999"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpdateItemRejectsZeroQuantity(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	_, err = cart.UpdateItem(user.ID, item.ID.String(), 0)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	// Quantity unchanged after the rejected update.
	summary, err := cart.GetCart(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Items[0].Quantity)
}

func TestUpdateItemChangesQuantity(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	updated, err := cart.UpdateItem(user.ID, item.ID.String(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
}

func TestUpdateItemOfAnotherUser(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	alice := registerUser(t, auth, "alice@example.com")
	mallory := registerUser(t, auth, "mallory@example.com")

	item, err := cart.AddItem(alice.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	_, err = cart.UpdateItem(mallory.ID, item.ID.String(), 2)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	require.NoError(t, cart.RemoveItem(user.ID, item.ID.String()))
	require.NoError(t, cart.RemoveItem(user.ID, item.ID.String()))

	summary, err := cart.GetCart(user.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestRemovedItemCanBeReAdded(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	item, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)
	require.NoError(t, cart.RemoveItem(user.ID, item.ID.String()))

	readded, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, readded.Quantity)
}

func TestCartTotalAndCount(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7", Quantity: 2})
	require.NoError(t, err)
	_, err = cart.AddItem(user.ID, AddItemInput{ProductID: "8"})
	require.NoError(t, err)

	total, err := cart.GetCartTotal(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2*99.99+249.99, total, 0.001)

	count, err := cart.GetCartItemCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCartTotalEmptyCart(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	total, err := cart.GetCartTotal(user.ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	count, err := cart.GetCartItemCount(user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClearCart(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)
	_, err = cart.AddItem(user.ID, AddItemInput{ProductID: "8"})
	require.NoError(t, err)

	require.NoError(t, cart.ClearCart(user.ID))

	summary, err := cart.GetCart(user.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestMergeCartSkipsUnknownProducts(t *testing.T) {
	cart, _, _, auth := newCartFixture(t)
	user := registerUser(t, auth, "alice@example.com")

	_, err := cart.AddItem(user.ID, AddItemInput{ProductID: "7"})
	require.NoError(t, err)

	summary, err := cart.MergeCart(user.ID, MergeCartInput{Items: []AddItemInput{
		{ProductID: "7", Quantity: 1},
		{ProductID: "8", Quantity: 2},
		{ProductID: "does-not-exist", Quantity: 1},
	}})
	require.NoError(t, err)

	assert.Len(t, summary.Items, 2)
	assert.Equal(t, 4, summary.ItemCount) // 7 twice, 8 twice
}
