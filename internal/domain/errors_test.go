package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/pricingservice/internal/pricing"
)

func TestSanitizeError_ConfigInvalid(t *testing.T) {
	var cfg pricing.PricingConfig
	err := json.Unmarshal([]byte(`{"mode":"Progressive"}`), &cfg)
	require.Error(t, err)

	got := SanitizeError(fmt.Errorf("decode request: %w", err))
	assert.Equal(t, ErrCodeConfigInvalid, got.Code)
	assert.Equal(t, "tiers: required for Progressive mode", got.Details)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus())
}

func TestSanitizeError_InvalidSession(t *testing.T) {
	_, err := pricing.ParkingSession{}.Duration()
	got := SanitizeError(err)
	assert.Equal(t, ErrCodeInvalidInput, got.Code)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus())
}

func TestSanitizeError_HidesInternalDetails(t *testing.T) {
	got := SanitizeError(errors.New("dial tcp 10.0.0.4:5432: connection refused"))
	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.NotContains(t, got.Error(), "10.0.0.4")
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus())
}

func TestSanitizeError_PassesThroughDomainErrors(t *testing.T) {
	orig := NewNotFoundError("Coupon", "SAVE15")
	assert.Same(t, orig, SanitizeError(fmt.Errorf("lookup: %w", orig)))
	assert.Equal(t, http.StatusNotFound, orig.HTTPStatus())
	assert.Equal(t, http.StatusConflict, SanitizeError(ErrCouponOverrun).HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, NewRateLimitedError().HTTPStatus())
	assert.Nil(t, SanitizeError(nil))
}
