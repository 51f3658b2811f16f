package analysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel       = "grok-3"
	DefaultTemperature = 0.7
)

// Service turns a payload into a recommendation text.
type Service interface {
	Submit(ctx context.Context, payload Payload) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GrokClient talks to an OpenAI compatible chat completions endpoint.
type GrokClient struct {
	http        *resty.Client
	model       string
	temperature float64
	logger      *logrus.Logger
}

func NewGrokClient(apiKey, apiBase, model string, timeout time.Duration, logger *logrus.Logger) *GrokClient {
	if model == "" {
		model = DefaultModel
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(apiBase, "/")).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &GrokClient{
		http:        client,
		model:       model,
		temperature: DefaultTemperature,
		logger:      logger,
	}
}

func (c *GrokClient) Model() string {
	return c.model
}

// Submit makes a single call. Retrying is left to the caller.
func (c *GrokClient) Submit(ctx context.Context, payload Payload) (string, error) {
	var body chatResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: payload.System},
				{Role: "user", Content: payload.Prompt},
			},
			Temperature: c.temperature,
		}).
		SetResult(&body).
		Post("/chat/completions")
	if err != nil {
		return "", transportError(err)
	}

	c.logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode(),
		"duration": time.Since(start),
		"model":    c.model,
	}).Debug("Analysis service responded")

	if !resp.IsSuccess() {
		return "", classifyStatus(resp.StatusCode(), truncate(resp.String(), 300))
	}
	if len(body.Choices) == 0 || strings.TrimSpace(body.Choices[0].Message.Content) == "" {
		return "", &ServiceError{Kind: KindEmptyResponse, StatusCode: resp.StatusCode(), Err: errors.New("no message content")}
	}
	return strings.TrimSpace(body.Choices[0].Message.Content), nil
}

func transportError(err error) *ServiceError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ServiceError{Kind: KindTimeout, Err: err}
	}
	return &ServiceError{Kind: KindTransport, Err: err}
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
