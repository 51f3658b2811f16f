// Package fareapi queries a JSON fare search API, one request per departure date.
package fareapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/scraper"
)

const (
	SourceName        = "fareapi"
	RequestsPerSecond = 1.0
)

type searchResponse struct {
	Offers []apiOffer `json:"offers"`
}

type apiOffer struct {
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Carrier       string          `json:"carrier"`
	Duration      string          `json:"duration"`
	Stops         *int            `json:"stops"`
	DepartureDate string          `json:"departure_date"`
	ReturnDate    string          `json:"return_date"`
}

type FareAPISource struct {
	http   *resty.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewFareAPISource(baseURL string, logger *logrus.Logger) *FareAPISource {
	config := scraper.DefaultHTTPConfig(baseURL, RequestsPerSecond)
	return &FareAPISource{
		http:   scraper.NewHTTPClient(config, logger, SourceName),
		logger: logger,
		now:    time.Now,
	}
}

func (s *FareAPISource) Name() string {
	return SourceName
}

// Fetch asks the API once per departure date with the middle of the return
// window. A failing date is logged and skipped; the source only fails when no
// date produced offers.
func (s *FareAPISource) Fetch(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error) {
	dates, err := criteria.DepartureDates()
	if err != nil {
		return nil, scraper.NewFetchError(SourceName, scraper.KindMalformed, err)
	}
	returnDate, err := criteria.MidReturnDate()
	if err != nil {
		return nil, scraper.NewFetchError(SourceName, scraper.KindMalformed, err)
	}

	var offers []models.Offer
	var lastErr error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, scraper.NewFetchError(SourceName, scraper.KindTimeout, err)
		}

		found, err := s.fetchDate(ctx, criteria, date, returnDate)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithFields(logrus.Fields{
				"source": SourceName,
				"date":   date,
			}).Warn("Fare API search failed for date")
			continue
		}
		offers = append(offers, found...)
	}

	if len(offers) == 0 {
		if lastErr != nil {
			return nil, scraper.NewFetchError(SourceName, scraper.KindTransport, lastErr)
		}
		return nil, scraper.NewFetchError(SourceName, scraper.KindEmpty, scraper.ErrNoOffers)
	}
	return offers, nil
}

func (s *FareAPISource) fetchDate(ctx context.Context, criteria models.SearchCriteria, date, returnDate string) ([]models.Offer, error) {
	var body searchResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origin":         criteria.Origin,
			"destination":    criteria.Destination,
			"departure_date": date,
			"return_date":    returnDate,
			"adults":         strconv.Itoa(criteria.Passengers),
			"cabin":          criteria.TravelClass,
		}).
		SetResult(&body).
		Get("/search")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		kind := scraper.KindTransport
		if resp.StatusCode() < http.StatusInternalServerError && resp.StatusCode() != http.StatusTooManyRequests {
			kind = scraper.KindMalformed
		}
		return nil, &scraper.FetchError{
			Source: SourceName,
			Kind:   kind,
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)),
		}
	}

	retrievedAt := s.now().UTC()
	offers := make([]models.Offer, 0, len(body.Offers))
	for _, o := range body.Offers {
		stops := -1
		if o.Stops != nil {
			stops = *o.Stops
		}
		dep := o.DepartureDate
		if dep == "" {
			dep = date
		}
		ret := o.ReturnDate
		if ret == "" {
			ret = returnDate
		}
		offers = append(offers, models.Offer{
			Source:        SourceName,
			Price:         models.Money{Amount: o.Price, Currency: scraper.NormalizeCurrency(o.Currency)},
			DepartureDate: dep,
			ReturnDate:    ret,
			Carrier:       scraper.NormalizeCarrier(o.Carrier),
			Duration:      scraper.NormalizeDuration(o.Duration),
			Stops:         stops,
			RetrievedAt:   retrievedAt,
			Raw:           resp.String(),
		})
	}
	if len(offers) == 0 {
		return nil, &scraper.FetchError{Source: SourceName, Kind: scraper.KindEmpty, Err: scraper.ErrNoOffers}
	}
	return offers, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
