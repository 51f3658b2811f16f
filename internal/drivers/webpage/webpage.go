// Package webpage scrapes flight result pages with CSS selector rules.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/scraper"
)

const (
	DefaultMaxResults  = 5
	RequestsPerSecond  = 0.5
	rawSnapshotMaxSize = 2000
)

// URLBuilder returns the path and query of a search page, relative to the base URL.
type URLBuilder func(criteria models.SearchCriteria, departureDate, returnDate string) string

// Rules describe where a page keeps its results.
type Rules struct {
	Name     string
	BaseURL  string
	BuildURL URLBuilder

	// ItemSelector matches one result card.
	ItemSelector string

	// Selectors inside a card. An empty PriceSelector reads the card text.
	PriceSelector    string
	CarrierSelector  string
	DurationSelector string
	StopsSelector    string

	MaxResults      int
	DefaultCurrency string
}

type PageSource struct {
	rules  Rules
	http   *resty.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewPageSource(rules Rules, logger *logrus.Logger) *PageSource {
	if rules.MaxResults <= 0 {
		rules.MaxResults = DefaultMaxResults
	}
	config := scraper.DefaultHTTPConfig(rules.BaseURL, RequestsPerSecond)
	client := scraper.NewHTTPClient(config, logger, rules.Name)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &PageSource{
		rules:  rules,
		http:   client,
		logger: logger,
		now:    time.Now,
	}
}

func (s *PageSource) Name() string {
	return s.rules.Name
}

// Fetch loads one result page per departure date, paired with the middle of
// the return window, and keeps the first MaxResults priced cards of each.
func (s *PageSource) Fetch(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error) {
	dates, err := criteria.DepartureDates()
	if err != nil {
		return nil, scraper.NewFetchError(s.rules.Name, scraper.KindMalformed, err)
	}
	returnDate, err := criteria.MidReturnDate()
	if err != nil {
		return nil, scraper.NewFetchError(s.rules.Name, scraper.KindMalformed, err)
	}

	var offers []models.Offer
	var lastErr error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, scraper.NewFetchError(s.rules.Name, scraper.KindTimeout, err)
		}

		found, err := s.fetchPage(ctx, criteria, date, returnDate)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithFields(logrus.Fields{
				"source": s.rules.Name,
				"date":   date,
			}).Warn("Result page search failed for date")
			continue
		}
		offers = append(offers, found...)
	}

	if len(offers) == 0 {
		if lastErr != nil {
			return nil, scraper.NewFetchError(s.rules.Name, scraper.KindTransport, lastErr)
		}
		return nil, scraper.NewFetchError(s.rules.Name, scraper.KindEmpty, scraper.ErrNoOffers)
	}
	return offers, nil
}

func (s *PageSource) fetchPage(ctx context.Context, criteria models.SearchCriteria, date, returnDate string) ([]models.Offer, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(s.rules.BuildURL(criteria, date, returnDate))
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, scraper.NewFetchError(s.rules.Name, scraper.KindMalformed, err)
	}

	retrievedAt := s.now().UTC()
	var offers []models.Offer
	doc.Find(s.rules.ItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		offer, ok := s.parseItem(item, date, returnDate, retrievedAt)
		if ok {
			offers = append(offers, offer)
		}
		return len(offers) < s.rules.MaxResults
	})

	if len(offers) == 0 {
		return nil, &scraper.FetchError{Source: s.rules.Name, Kind: scraper.KindEmpty, Err: scraper.ErrNoOffers}
	}
	return offers, nil
}

func (s *PageSource) parseItem(item *goquery.Selection, date, returnDate string, retrievedAt time.Time) (models.Offer, bool) {
	text := strings.TrimSpace(item.Text())

	priceText := text
	if s.rules.PriceSelector != "" {
		priceText = item.Find(s.rules.PriceSelector).First().Text()
	}
	price, err := scraper.ParsePrice(priceText, s.rules.DefaultCurrency)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"source": s.rules.Name,
			"text":   truncate(priceText, 80),
		}).Debug("Skipping result without price")
		return models.Offer{}, false
	}

	stopsText := text
	if s.rules.StopsSelector != "" {
		stopsText = s.selectText(item, s.rules.StopsSelector)
	}

	return models.Offer{
		Source:        s.rules.Name,
		Price:         price,
		DepartureDate: date,
		ReturnDate:    returnDate,
		Carrier:       scraper.NormalizeCarrier(s.selectText(item, s.rules.CarrierSelector)),
		Duration:      scraper.NormalizeDuration(s.selectText(item, s.rules.DurationSelector)),
		Stops:         scraper.ParseStops(stopsText),
		RetrievedAt:   retrievedAt,
		Raw:           truncate(text, rawSnapshotMaxSize),
	}, true
}

func (s *PageSource) selectText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
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
