package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
	"github.com/navid-fn/fareradar/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fastRetry() faulttolerance.RetryConfig {
	return faulttolerance.RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
		Name:        "analysis",
	}
}

func testRun(prices ...string) *models.SearchRun {
	run := models.NewSearchRun(models.SearchCriteria{
		Origin: "IAD", Destination: "IDR",
		DepartureStart: "2026-06-13", DepartureEnd: "2026-06-20",
		ReturnStart: "2026-06-30", ReturnEnd: "2026-07-04",
		Passengers: 1, TravelClass: "economy",
	}, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	for _, p := range prices {
		run.Offers = append(run.Offers, models.Offer{
			Source:        "fareapi",
			Price:         models.Money{Amount: decimal.RequireFromString(p), Currency: "USD"},
			DepartureDate: "2026-06-13",
			ReturnDate:    "2026-07-02",
			Carrier:       "United",
			Stops:         1,
		})
	}
	run.Seal(run.StartedAt.Add(time.Minute))
	return run
}

func grokServer(t *testing.T, handler func(call int32, w http.ResponseWriter, r *http.Request)) (*GrokClient, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(calls.Add(1), w, r)
	}))
	t.Cleanup(srv.Close)
	return NewGrokClient("secret", srv.URL, "", 5*time.Second, quietLogger()), calls
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestGrokClientSendsChatRequest(t *testing.T) {
	client, _ := grokServer(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "IAD to IDR")

		writeCompletion(w, "  Book the United flight.  ")
	})

	text, err := client.Submit(context.Background(), BuildPayload(testRun("300"), models.PriceSeries{Trend: models.TrendUnknown}))
	require.NoError(t, err)
	assert.Equal(t, "Book the United flight.", text)
}

func TestGrokClientClassifiesFailures(t *testing.T) {
	cases := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusTooManyRequests, KindRateLimited, true},
		{http.StatusBadGateway, KindServer, true},
		{http.StatusGatewayTimeout, KindTimeout, true},
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusForbidden, KindAuth, false},
		{http.StatusBadRequest, KindBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client, _ := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := client.Submit(context.Background(), Payload{})
			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.kind, se.Kind)
			assert.Equal(t, tc.status, se.StatusCode)
			assert.Equal(t, tc.retryable, faulttolerance.IsRetryable(err))
		})
	}
}

func TestGrokClientErrorBodyStaysValidUTF8(t *testing.T) {
	client, _ := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "x"+strings.Repeat("é", 200))
	})

	_, err := client.Submit(context.Background(), Payload{})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.True(t, utf8.ValidString(se.Err.Error()))
	assert.LessOrEqual(t, len(se.Err.Error()), 300)
	assert.Equal(t, "x"+strings.Repeat("é", 149), se.Err.Error())
}

func TestGrokClientEmptyResponse(t *testing.T) {
	client, _ := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, " ")
	})

	_, err := client.Submit(context.Background(), Payload{})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindEmptyResponse, se.Kind)
	assert.False(t, se.Retryable())
}

func TestAnalyzeRetriesRateLimitThenSucceeds(t *testing.T) {
	client, calls := grokServer(t, func(call int32, w http.ResponseWriter, _ *http.Request) {
		if call <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(w, "Wait a week.")
	})
	trigger := NewTrigger(client, fastRetry(), client.Model(), quietLogger())

	record := trigger.Analyze(context.Background(), testRun("300", "280"), models.PriceSeries{})

	assert.Equal(t, models.AnalysisOK, record.Status)
	assert.Equal(t, "Wait a week.", record.Recommendation)
	assert.Equal(t, 3, record.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, DefaultModel, record.Model)
}

func TestAnalyzeExhaustedIsAbsent(t *testing.T) {
	client, calls := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	trigger := NewTrigger(client, fastRetry(), client.Model(), quietLogger())

	record := trigger.Analyze(context.Background(), testRun("300"), models.PriceSeries{})

	assert.True(t, record.Absent())
	assert.Equal(t, 4, record.Attempts)
	assert.Equal(t, int32(4), calls.Load())
	assert.Contains(t, record.Reason, "retries exhausted")
	assert.Contains(t, record.Reason, string(KindServer))
	assert.False(t, record.CreatedAt.IsZero())
}

func TestAnalyzeStopsOnAuthFailure(t *testing.T) {
	client, calls := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	trigger := NewTrigger(client, fastRetry(), client.Model(), quietLogger())

	record := trigger.Analyze(context.Background(), testRun("300"), models.PriceSeries{})

	assert.True(t, record.Absent())
	assert.Equal(t, 1, record.Attempts)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, record.Reason, string(KindAuth))
}

func TestAnalyzeSkipsEmptyRun(t *testing.T) {
	client, calls := grokServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "unused")
	})
	trigger := NewTrigger(client, fastRetry(), client.Model(), quietLogger())

	record := trigger.Analyze(context.Background(), testRun(), models.PriceSeries{})

	assert.True(t, record.Absent())
	assert.Equal(t, ReasonNoOffers, record.Reason)
	assert.Zero(t, calls.Load())
}

func TestBuildPayloadIncludesHistory(t *testing.T) {
	low, prev := decimal.RequireFromString("250"), decimal.RequireFromString("300")
	series := models.PriceSeries{
		Currency:    "USD",
		Trend:       models.TrendDecreasing,
		Min:         &low,
		PreviousMin: &prev,
		History: []models.RunAggregate{
			{At: time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC), Min: &low, Max: &low, Avg: &low, OfferCount: 1},
			{At: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)},
		},
	}
	run := testRun("250")
	run.FailedSources = []string{"expedia"}

	p := BuildPayload(run, series)

	assert.Equal(t, run.ID, p.RunID)
	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.Prompt, "Trend: decreasing (lowest 250.00 USD, previous run 300.00 USD)")
	assert.Contains(t, p.Prompt, "sources unavailable: expedia")
	assert.Contains(t, p.Prompt, "2026-05-02: no prices")
	assert.Contains(t, p.Prompt, "fareapi: 250.00 USD")
}
