// internal/apperrors/errors_test.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{KindAuth, http.StatusUnauthorized, "UNAUTHORIZED"},
		{KindForbidden, http.StatusForbidden, "FORBIDDEN"},
		{KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{KindConflict, http.StatusConflict, "CONFLICT"},
		{KindIntegration, http.StatusInternalServerError, "INTEGRATION_ERROR"},
		{KindInternal, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		err := New(tc.kind, "boom")
		assert.Equal(t, tc.status, err.Status())
		assert.Equal(t, tc.code, err.Code())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindIntegration, "drive call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "drive call failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(KindNotFound, "product not found")
	outer := fmt.Errorf("loading catalog: %w", inner)

	assert.True(t, Is(outer, KindNotFound))
	assert.False(t, Is(outer, KindConflict))
	assert.False(t, Is(errors.New("plain"), KindNotFound))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindAuth, KindOf(New(KindAuth, "bad credentials")))
}

func TestNewfFormats(t *testing.T) {
	err := Newf(KindValidation, "quantity %d is below minimum %d", 0, 1)
	assert.Equal(t, "quantity 0 is below minimum 1", err.Message)
}
