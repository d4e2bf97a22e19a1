package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMetrics(t *testing.T) {
	metrics := NewClientMetrics()

	metrics.RecordSuccess(100)
	metrics.RecordSuccess(200)
	metrics.RecordFailure()

	assert.Equal(t, int64(3), metrics.TotalRequests.Load())
	assert.Equal(t, int64(2), metrics.SuccessfulReqs.Load())
	assert.Equal(t, int64(1), metrics.FailedReqs.Load())
	assert.InDelta(t, 0.666, metrics.SuccessRate(), 0.01)
	assert.Equal(t, int64(100), metrics.AvgLatencyMs())
	assert.Equal(t, int32(1), metrics.ConsecutiveFails.Load())

	metrics.RecordSuccess(50)
	assert.Equal(t, int32(0), metrics.ConsecutiveFails.Load())
}

func TestPlatformError_Transient(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		transient bool
	}{
		{"rate limit", 130429, true},
		{"throughput limit", 80007, true},
		{"too many calls", 4, true},
		{"server error", 500, true},
		{"per-user marketing limit", 131049, false},
		{"unapproved template", 132001, false},
		{"invalid recipient", 131026, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &PlatformError{Code: tt.code, Message: tt.name}
			assert.Equal(t, tt.transient, e.Transient())
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:                 server.URL,
		Timeout:                 2 * time.Second,
		MaxRetries:              1,
		RetryDelay:              5 * time.Millisecond,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   time.Minute,
	})
	require.NoError(t, err)
	return client
}

func TestClient_SendTemplate(t *testing.T) {
	var gotAuth atomic.Value
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "whatsapp", payload["messaging_product"])
		assert.Equal(t, "template", payload["type"])
		assert.Equal(t, "/PHONE123/messages", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{{"id": "wamid.test-1"}},
		})
	}))

	wamid, err := client.SendTemplate(context.Background(), "token-abc", "PHONE123", "+15551230001", "spring_sale", "en", nil)
	require.NoError(t, err)
	assert.Equal(t, "wamid.test-1", wamid)
	assert.Equal(t, "Bearer token-abc", gotAuth.Load())
}

func TestClient_SendText_PermanentError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    131049,
				"message": "per-user marketing limit reached",
			},
		})
	}))

	_, err := client.SendText(context.Background(), "token", "PHONE123", "+15551230001", "hello")
	require.Error(t, err)

	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, 131049, platformErr.Code)
	// permanent rejections are not retried; exactly one request was counted
	assert.Equal(t, int64(1), client.metrics.TotalRequests.Load())
}

func TestClient_SendText_RetriesTransientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 130429, "message": "rate limit hit"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{{"id": "wamid.retry-ok"}},
		})
	}))

	wamid, err := client.SendText(context.Background(), "token", "PHONE123", "+15551230001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.retry-ok", wamid)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		_, err := client.SendText(context.Background(), "token", "PHONE123", "+15551230001", "hello")
		require.Error(t, err)
	}
	// 2 calls x 2 attempts = 4 transport failures, past the threshold of 3
	assert.False(t, client.Available())

	_, err := client.SendText(context.Background(), "token", "PHONE123", "+15551230001", "hello")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	stats := client.GetStats()
	assert.True(t, stats.CircuitOpen)
	assert.Equal(t, int64(4), stats.TotalRequests)

	// breaker reopens after the window passes
	client.circuitOpenUntil.Store(time.Now().Add(-time.Second).Unix())
	assert.True(t, client.Available())
}

func TestClient_SubmitTemplate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/WABA1/message_templates", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "review-42",
			"status": "PENDING",
		})
	}))

	id, err := client.SubmitTemplate(context.Background(), "token", "WABA1", "spring_sale", "en", "MARKETING", "Sale is on, {{1}}!")
	require.NoError(t, err)
	assert.Equal(t, "review-42", id)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{})
	assert.Error(t, err)
}
