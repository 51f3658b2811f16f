package scraper

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultRequestTimeout = 30 * time.Second
)

type HTTPConfig struct {
	BaseURL        string
	RateLimiter    *rate.Limiter
	RequestTimeout time.Duration
	UserAgent      string
}

// DefaultHTTPConfig paces requests to one source at requestsPerSecond.
func DefaultHTTPConfig(baseURL string, requestsPerSecond float64) *HTTPConfig {
	return &HTTPConfig{
		BaseURL:        baseURL,
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
	}
}

// NewHTTPClient builds the resty client used by HTTP drivers. Every request
// waits on the limiter first, so a driver never hammers its source.
func NewHTTPClient(config *HTTPConfig, logger *logrus.Logger, source string) *resty.Client {
	client := resty.New()
	if config.BaseURL != "" {
		client.SetBaseURL(config.BaseURL)
	}
	client.SetTimeout(config.RequestTimeout)
	client.SetHeader("User-Agent", config.UserAgent)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if config.RateLimiter == nil {
			return nil
		}
		return config.RateLimiter.Wait(req.Context())
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.WithFields(logrus.Fields{
			"source":   source,
			"url":      resp.Request.URL,
			"status":   resp.StatusCode(),
			"duration": resp.Time(),
		}).Debug("Source request finished")
		return nil
	})

	return client
}
