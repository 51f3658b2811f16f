package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCriteria() SearchCriteria {
	return SearchCriteria{
		Origin:         "iad",
		Destination:    "IDR",
		DepartureStart: "2026-06-13",
		DepartureEnd:   "2026-06-15",
		ReturnStart:    "2026-06-30",
		ReturnEnd:      "2026-07-04",
		Passengers:     1,
		TravelClass:    "economy",
	}
}

func TestRouteKey(t *testing.T) {
	key := testCriteria().RouteKey()
	assert.Equal(t, RouteKey("IAD-IDR:2026-06-13..2026-06-15:2026-06-30..2026-07-04"), key)
	assert.Equal(t, "IAD-IDR_2026-06-13~2026-06-15_2026-06-30~2026-07-04", key.Slug())
}

func TestDepartureDates(t *testing.T) {
	dates, err := testCriteria().DepartureDates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06-13", "2026-06-14", "2026-06-15"}, dates)

	c := testCriteria()
	c.DepartureEnd = "2026-06-01"
	_, err = c.DepartureDates()
	assert.Error(t, err)
}

func TestMidReturnDate(t *testing.T) {
	mid, err := testCriteria().MidReturnDate()
	require.NoError(t, err)
	assert.Equal(t, "2026-07-02", mid)
}

func TestOfferKeyIgnoresTrailingZeros(t *testing.T) {
	a := Offer{Source: "a", Carrier: "United", DepartureDate: "2026-06-13", Price: Money{Amount: decimal.RequireFromString("300"), Currency: "USD"}}
	b := a
	b.Price.Amount = decimal.RequireFromString("300.00")
	b.RetrievedAt = time.Now()
	assert.Equal(t, a.Key(), b.Key())

	b.Carrier = "Delta"
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestOfferValidate(t *testing.T) {
	valid := Offer{Source: "a", DepartureDate: "2026-06-13", Price: Money{Amount: decimal.NewFromInt(10), Currency: "USD"}}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(o *Offer)
	}{
		{"no source", func(o *Offer) { o.Source = "" }},
		{"zero price", func(o *Offer) { o.Price.Amount = decimal.Zero }},
		{"no currency", func(o *Offer) { o.Price.Currency = "" }},
		{"bad departure", func(o *Offer) { o.DepartureDate = "13/06/2026" }},
		{"bad return", func(o *Offer) { o.ReturnDate = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestSealNormalizesFailedSources(t *testing.T) {
	run := NewSearchRun(testCriteria(), time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	run.Offers = nil
	run.FailedSources = []string{"expedia", "google_flights", "expedia"}
	run.Seal(time.Date(2026, 6, 1, 9, 5, 0, 0, time.UTC))

	assert.Equal(t, "20260601T090000.000000000Z", run.ID)
	assert.Equal(t, []string{"expedia", "google_flights"}, run.FailedSources)
	assert.NotNil(t, run.Offers)
}
