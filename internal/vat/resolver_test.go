package vat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vatbill/entity"
)

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) GetVatRate(ctx context.Context, country string) (*entity.VatRate, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VatRate), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewResolverRejectsBadDefault(t *testing.T) {
	_, err := NewResolver(nil, 1.5, testLogger())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewResolver(nil, -0.1, testLogger())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRateNoCountryReturnsDefault(t *testing.T) {
	src := &MockRateSource{}
	r, err := NewResolver(src, 0.075, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0.075, r.Rate(context.Background(), ""))
	src.AssertNotCalled(t, "GetVatRate")
}

func TestRateKnownCountry(t *testing.T) {
	src := &MockRateSource{}
	src.On("GetVatRate", mock.Anything, "DE").Return(&entity.VatRate{Country: "DE", Rate: 0.19}, nil)
	r, err := NewResolver(src, 0.075, testLogger())
	require.NoError(t, err)

	// lookup is case-insensitive: input is normalized before the query
	assert.Equal(t, 0.19, r.Rate(context.Background(), "de"))
	src.AssertExpectations(t)
}

func TestRateUnknownCountryReturnsDefault(t *testing.T) {
	src := &MockRateSource{}
	src.On("GetVatRate", mock.Anything, "XX").Return(nil, nil)
	r, err := NewResolver(src, 0.075, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0.075, r.Rate(context.Background(), "XX"))
}

func TestRateLookupFailureReturnsDefault(t *testing.T) {
	src := &MockRateSource{}
	src.On("GetVatRate", mock.Anything, "GB").Return(nil, errors.New("store unreachable"))
	r, err := NewResolver(src, 0.075, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0.075, r.Rate(context.Background(), "GB"))
}

func TestRateOutOfRangeStoredRateReturnsDefault(t *testing.T) {
	src := &MockRateSource{}
	src.On("GetVatRate", mock.Anything, "FR").Return(&entity.VatRate{Country: "FR", Rate: 20}, nil)
	r, err := NewResolver(src, 0.075, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0.075, r.Rate(context.Background(), "FR"))
}

func TestNormalizeCountry(t *testing.T) {
	assert.Equal(t, "", NormalizeCountry(""))
	assert.Equal(t, "", NormalizeCountry("  "))
	assert.Equal(t, "DE", NormalizeCountry("de"))
	assert.Equal(t, "US", NormalizeCountry("US"))
	assert.Equal(t, "DE", NormalizeCountry("Germany"))
}
