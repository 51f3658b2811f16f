package fareapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/scraper"
)

func criteria() models.SearchCriteria {
	return models.SearchCriteria{
		Origin:         "IAD",
		Destination:    "IDR",
		DepartureStart: "2026-06-13",
		DepartureEnd:   "2026-06-14",
		ReturnStart:    "2026-06-30",
		ReturnEnd:      "2026-07-04",
		Passengers:     2,
		TravelClass:    "economy",
	}
}

func newSource(t *testing.T, handler http.HandlerFunc) *FareAPISource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewFareAPISource(srv.URL, logger)
	s.http.SetRetryCount(0)
	return s
}

func TestFetchParsesOffersPerDate(t *testing.T) {
	var seen []string
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen = append(seen, q.Get("departure_date"))
		assert.Equal(t, "2026-07-02", q.Get("return_date"))
		assert.Equal(t, "2", q.Get("adults"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"offers":[{"price":300,"currency":"usd","carrier":"united airlines","duration":"20h 5m","stops":1}]}`)
	})

	offers, err := s.Fetch(context.Background(), criteria())
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, []string{"2026-06-13", "2026-06-14"}, seen)

	o := offers[0]
	assert.Equal(t, SourceName, o.Source)
	assert.Equal(t, "USD", o.Price.Currency)
	assert.Equal(t, "300", o.Price.Amount.String())
	assert.Equal(t, "United", o.Carrier)
	assert.Equal(t, 1, o.Stops)
	assert.Equal(t, "2026-06-13", o.DepartureDate)
	assert.Equal(t, "2026-07-02", o.ReturnDate)
	assert.NotEmpty(t, o.Raw)
}

func TestFetchToleratesOneFailingDate(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("departure_date") == "2026-06-13" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"offers":[{"price":410,"currency":"USD","carrier":"Delta"}]}`)
	})

	offers, err := s.Fetch(context.Background(), criteria())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, -1, offers[0].Stops)
}

func TestFetchFailsWhenEveryDateFails(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.Fetch(context.Background(), criteria())
	var fe *scraper.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, scraper.KindTransport, fe.Kind)
}

func TestFetchMalformedOnClientError(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := s.Fetch(context.Background(), criteria())
	var fe *scraper.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, scraper.KindMalformed, fe.Kind)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "IAD", truncate("IAD", 10))
	assert.Equal(t, "IAD ", truncate("IAD → IDR", 6))
	assert.Equal(t, "IAD →", truncate("IAD → IDR", 7))

	got := truncate(strings.Repeat("é", 10), 7)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 3), got)
}
