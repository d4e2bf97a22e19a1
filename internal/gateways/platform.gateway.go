package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/waplatform/messaging-core/pkg/logger"
)

var (
	ErrCircuitOpen = errors.New("platform circuit open")
)

// PlatformError is a structured send failure reported by the messaging
// platform. Code carries the platform error number (131049 and friends) and
// is persisted verbatim on the failed message or recipient.
type PlatformError struct {
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// Transient reports whether a retry could succeed. Rate limiting and server
// errors are transient; everything else (bad recipient, unapproved template,
// per-user marketing limits) is permanent for this send.
func (e *PlatformError) Transient() bool {
	switch e.Code {
	case 4, 80007, 130429: // throughput and rate limits
		return true
	}
	return e.Code >= 500 && e.Code < 600
}

// TemplateComponent is the variable payload substituted into an approved
// template at send time.
type TemplateComponent struct {
	Type       string              `json:"type"`
	Parameters []TemplateParameter `json:"parameters,omitempty"`
}

type TemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type sendPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   languagePayload     `json:"language"`
	Components []TemplateComponent `json:"components,omitempty"`
}

type languagePayload struct {
	Code string `json:"code"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *PlatformError `json:"error"`
}

type templateSubmitResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *PlatformError `json:"error"`
}

// ClientMetrics tracks call outcomes against the platform for the metrics
// endpoint and the circuit breaker.
type ClientMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64
}

func NewClientMetrics() *ClientMetrics {
	return &ClientMetrics{}
}

func (m *ClientMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *ClientMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *ClientMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *ClientMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type Config struct {
	BaseURL                 string
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Client is the Cloud API transport. One client serves every business
// account; the per-account access token is passed per call so tokens stay
// inside the secrets store between sends.
//
// Transport failures trip a circuit breaker. Platform-reported send errors
// do not: a rejected recipient says nothing about the health of the API.
type Client struct {
	config  *Config
	http    *fasthttp.Client
	metrics *ClientMetrics

	circuitOpenUntil atomic.Int64
	mu               sync.RWMutex
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("platform base url is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	client := &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		},
		metrics: NewClientMetrics(),
	}

	logger.Info("Platform client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return client, nil
}

// SendText delivers a session message inside the service window.
func (c *Client) SendText(ctx context.Context, token, platformPhoneID, to, body string) (string, error) {
	payload := &sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}
	return c.send(ctx, token, platformPhoneID, payload)
}

// SendTemplate delivers an approved template message.
func (c *Client) SendTemplate(ctx context.Context, token, platformPhoneID, to, name, language string, components []TemplateComponent) (string, error) {
	payload := &sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &templatePayload{
			Name:       name,
			Language:   languagePayload{Code: language},
			Components: components,
		},
	}
	return c.send(ctx, token, platformPhoneID, payload)
}

func (c *Client) send(ctx context.Context, token, platformPhoneID string, payload *sendPayload) (string, error) {
	if !c.Available() {
		return "", ErrCircuitOpen
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/%s/messages", platformPhoneID)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		startTime := time.Now()
		raw, err := c.doRequest(ctx, token, "POST", path, body)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			c.metrics.RecordFailure()
			c.checkCircuitBreaker()
			logger.Warn("Platform request failed, retrying", "error", err, "attempt", attempt+1)
			lastErr = err
			continue
		}

		var resp sendResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			c.metrics.RecordFailure()
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}

		if resp.Error != nil {
			if resp.Error.Transient() {
				c.metrics.RecordFailure()
				lastErr = resp.Error
				continue
			}
			// permanent rejection travels to the caller as-is
			c.metrics.RecordSuccess(latency)
			return "", resp.Error
		}

		if len(resp.Messages) == 0 {
			c.metrics.RecordFailure()
			return "", errors.New("platform accepted the send without a message id")
		}

		c.metrics.RecordSuccess(latency)
		wamid := resp.Messages[0].ID
		logger.Debug("Message accepted by platform", "wamid", wamid, "to", payload.To, "latency_ms", latency)
		return wamid, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// SubmitTemplate registers a template for platform review and returns the
// review id.
func (c *Client) SubmitTemplate(ctx context.Context, token, platformAccountID, name, language, category, body string) (string, error) {
	if !c.Available() {
		return "", ErrCircuitOpen
	}

	payload, err := json.Marshal(map[string]interface{}{
		"name":     name,
		"language": language,
		"category": category,
		"components": []map[string]string{
			{"type": "BODY", "text": body},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/%s/message_templates", platformAccountID)

	startTime := time.Now()
	raw, err := c.doRequest(ctx, token, "POST", path, payload)
	latency := time.Since(startTime).Milliseconds()
	if err != nil {
		c.metrics.RecordFailure()
		c.checkCircuitBreaker()
		return "", err
	}

	var resp templateSubmitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.metrics.RecordFailure()
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		c.metrics.RecordSuccess(latency)
		return "", resp.Error
	}

	c.metrics.RecordSuccess(latency)
	logger.Info("Template submitted for review", "name", name, "review_id", resp.ID)
	return resp.ID, nil
}

func (c *Client) doRequest(ctx context.Context, token, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	// error payloads arrive with 4xx status codes and are decoded by the
	// caller, so only transport-level failures are surfaced here
	statusCode := resp.StatusCode()
	if statusCode >= fasthttp.StatusInternalServerError {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

// Available reports whether the circuit allows calls. An expired breaker
// window closes the circuit on the next check.
func (c *Client) Available() bool {
	openUntil := c.circuitOpenUntil.Load()
	if openUntil == 0 {
		return true
	}
	if time.Now().Unix() > openUntil {
		c.circuitOpenUntil.Store(0)
		c.metrics.ConsecutiveFails.Store(0)
		return true
	}
	return false
}

func (c *Client) checkCircuitBreaker() {
	consecutiveFails := c.metrics.ConsecutiveFails.Load()
	if consecutiveFails >= int32(c.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		c.circuitOpenUntil.Store(openUntil)

		logger.Warn("Platform circuit breaker opened", "consecutive_fails", consecutiveFails, "timeout", c.config.CircuitBreakerTimeout)
	}
}

// Stats is the snapshot surfaced on the internal metrics endpoint.
type Stats struct {
	TotalRequests    int64
	SuccessfulReqs   int64
	FailedReqs       int64
	SuccessRate      float64
	AvgLatencyMs     int64
	LastLatencyMs    int64
	ConsecutiveFails int32
	CircuitOpen      bool
}

func (c *Client) GetStats() Stats {
	return Stats{
		TotalRequests:    c.metrics.TotalRequests.Load(),
		SuccessfulReqs:   c.metrics.SuccessfulReqs.Load(),
		FailedReqs:       c.metrics.FailedReqs.Load(),
		SuccessRate:      c.metrics.SuccessRate(),
		AvgLatencyMs:     c.metrics.AvgLatencyMs(),
		LastLatencyMs:    c.metrics.LastLatencyMs.Load(),
		ConsecutiveFails: c.metrics.ConsecutiveFails.Load(),
		CircuitOpen:      !c.Available(),
	}
}

func (c *Client) Close() error {
	logger.Info("Platform client closed")
	return nil
}
