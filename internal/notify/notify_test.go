package notify

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/models"
)

func testReport() Report {
	run := models.NewSearchRun(models.SearchCriteria{
		Origin: "IAD", Destination: "IDR",
		DepartureStart: "2026-06-13", DepartureEnd: "2026-06-20",
		ReturnStart: "2026-06-30", ReturnEnd: "2026-07-04",
		Passengers: 2, TravelClass: "economy",
	}, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	run.Offers = append(run.Offers, models.Offer{
		Source:        "expedia",
		Price:         models.Money{Amount: decimal.RequireFromString("980.5"), Currency: "USD"},
		DepartureDate: "2026-06-13",
		ReturnDate:    "2026-07-02",
		Carrier:       "<United>",
		Stops:         1,
	})
	run.FailedSources = []string{"google_flights"}
	run.Seal(run.StartedAt.Add(time.Minute))

	low := decimal.RequireFromString("980.5")
	return Report{
		Run:      run,
		Series:   models.PriceSeries{Currency: "USD", Trend: models.TrendDecreasing, Min: &low, Max: &low, Avg: &low},
		Analysis: models.AnalysisRecord{Status: models.AnalysisOK, Recommendation: "Book now.\nPrices are falling."},
	}
}

func newTestNotifier(send func(context.Context, *email.Email) error) *EmailNotifier {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: 465, User: "agent@example.com", To: "a@example.com, b@example.com"}, logger)
	n.send = send
	n.now = func() time.Time { return time.Date(2026, 5, 1, 9, 5, 0, 0, time.UTC) }
	return n
}

func TestNotifyComposesReport(t *testing.T) {
	var sent *email.Email
	n := newTestNotifier(func(_ context.Context, e *email.Email) error {
		sent = e
		return nil
	})

	require.NoError(t, n.Notify(context.Background(), testReport()))
	require.NotNil(t, sent)

	assert.Equal(t, "Flight Search Results: IAD → IDR", sent.Subject)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sent.To)
	assert.Equal(t, "agent@example.com", sent.From)

	text := string(sent.Text)
	assert.Contains(t, text, "Found 1 flight options.")
	assert.Contains(t, text, "Unavailable sources: google_flights")
	assert.Contains(t, text, "Price trend: decreasing")
	assert.Contains(t, text, "Lowest: 980.50 USD")
	assert.Contains(t, text, "Book now.")
	assert.Contains(t, text, "Generated on 2026-05-01 09:05:00")

	html := string(sent.HTML)
	assert.Contains(t, html, "Book now.<br>Prices are falling.")
	assert.Contains(t, html, "&lt;United&gt;")
	assert.NotContains(t, html, "<United>")
}

func TestNotifyAbsentAnalysis(t *testing.T) {
	var sent *email.Email
	n := newTestNotifier(func(_ context.Context, e *email.Email) error {
		sent = e
		return nil
	})
	report := testReport()
	report.Analysis = models.AnalysisRecord{Status: models.AnalysisAbsent, Reason: "retries exhausted"}

	require.NoError(t, n.Notify(context.Background(), report))
	assert.Contains(t, string(sent.Text), "No analysis available (retries exhausted).")
}

func TestNotifyReturnsSendError(t *testing.T) {
	n := newTestNotifier(func(context.Context, *email.Email) error { return errors.New("dial tcp: refused") })
	err := n.Notify(context.Background(), testReport())
	assert.ErrorContains(t, err, "refused")
}

func TestNotifyGivesUpOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	n := NewEmailNotifier(SMTPConfig{Host: host, Port: port, User: "agent@example.com", Password: "secret", To: "a@example.com"}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Notify(ctx, testReport()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Notify did not return after its context deadline")
	}
}
