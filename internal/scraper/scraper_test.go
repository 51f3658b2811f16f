package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text     string
		amount   string
		currency string
	}{
		{"$1,234", "1234", "USD"},
		{"US$ 980.50", "980.5", "USD"},
		{"€ 455", "455", "EUR"},
		{"USD 300", "300", "USD"},
		{"14 hr 5 min · $612 round trip", "612", "USD"},
		{"Rp 12.500.000", "12500000", "IDR"},
		{"720", "720", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m, err := ParsePrice(tt.text, "USD")
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(m.Amount), "got %s", m.Amount)
			assert.Equal(t, tt.currency, m.Currency)
		})
	}
}

func TestParsePriceFailures(t *testing.T) {
	_, err := ParsePrice("Price unavailable", "USD")
	assert.Error(t, err)

	_, err = ParsePrice("300", "")
	assert.Error(t, err)
}

func TestParseStops(t *testing.T) {
	assert.Equal(t, 0, ParseStops("Nonstop"))
	assert.Equal(t, 1, ParseStops("1 stop DOH"))
	assert.Equal(t, 2, ParseStops("2 stops"))
	assert.Equal(t, -1, ParseStops("Unknown"))
}

func TestNormalizeCarrier(t *testing.T) {
	assert.Equal(t, "United", NormalizeCarrier("  united   airlines "))
	assert.Equal(t, "Qatar Airways", NormalizeCarrier("Qatar  Airways"))
	assert.Equal(t, "Unknown", NormalizeCarrier(""))
}

func TestNewFetchErrorKeepsKind(t *testing.T) {
	inner := &FetchError{Source: "x", Kind: KindMalformed, Err: errors.New("bad json")}
	err := NewFetchError("expedia", KindTransport, fmt.Errorf("wrapped: %w", inner))
	assert.Equal(t, KindMalformed, err.Kind)
	assert.Equal(t, "expedia", err.Source)

	timeout := NewFetchError("expedia", KindTransport, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, timeout.Kind)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
}

func TestGenerateOfferIDIsStable(t *testing.T) {
	o := models.Offer{
		Source:        "expedia",
		Carrier:       "United",
		DepartureDate: "2026-06-13",
		ReturnDate:    "2026-07-01",
		Price:         models.Money{Amount: decimal.NewFromInt(300), Currency: "USD"},
	}
	assert.Equal(t, GenerateOfferID(o), GenerateOfferID(o))

	other := o
	other.Price.Amount = decimal.NewFromInt(301)
	assert.NotEqual(t, GenerateOfferID(o), GenerateOfferID(other))
}
