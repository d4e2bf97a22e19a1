package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mock messaging platform for local development. Speaks just enough of the
// Cloud API surface for the gateway client: accepts sends and template
// submissions, rejects a configurable fraction, and plays delivery status
// webhooks back at the core after a short delay.

type sendRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to" binding:"required"`
	Type             string          `json:"type" binding:"required"`
	Text             json.RawMessage `json:"text,omitempty"`
	Template         json.RawMessage `json:"template,omitempty"`
}

type platformError struct {
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

type sendResponse struct {
	MessagingProduct string `json:"messaging_product,omitempty"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages,omitempty"`
	Error *platformError `json:"error,omitempty"`
}

// MockPlatform simulates the Cloud API for one fake business.
type MockPlatform struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	callbackURL  string
	appSecret    string
	rng          *rand.Rand
}

func NewMockPlatform(deliveryRate float64, minDelay, maxDelay time.Duration, callbackURL, appSecret string) *MockPlatform {
	return &MockPlatform{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		callbackURL:  callbackURL,
		appSecret:    appSecret,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockPlatform) accept() bool {
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockPlatform) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockPlatform) randomRejection() *platformError {
	rejections := []platformError{
		{Code: 131026, Message: "Message undeliverable"},
		{Code: 131047, Message: "Re-engagement message outside the allowed window"},
		{Code: 131048, Message: "Spam rate limit hit"},
		{Code: 100, Subcode: 33, Type: "OAuthException", Message: "Unsupported post request"},
	}
	e := rejections[m.rng.Intn(len(rejections))]
	return &e
}

// emitStatuses walks a message through sent, delivered and read, posting
// each hop to the callback URL with a signed body.
func (m *MockPlatform) emitStatuses(wamid string) {
	if m.callbackURL == "" {
		return
	}
	for _, status := range []string{"sent", "delivered", "read"} {
		time.Sleep(m.randomDelay())

		body, err := json.Marshal(statusPayload(wamid, status))
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal status payload")
			return
		}

		mac := hmac.New(sha256.New, []byte(m.appSecret))
		mac.Write(body)
		signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

		req, err := http.NewRequest(http.MethodPost, m.callbackURL, bytes.NewReader(body))
		if err != nil {
			log.Error().Err(err).Msg("Failed to build status request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Hub-Signature-256", signature)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Warn().Err(err).Str("wamid", wamid).Str("status", status).Msg("Status callback failed")
			return
		}
		resp.Body.Close()

		log.Info().Str("wamid", wamid).Str("status", status).Int("code", resp.StatusCode).Msg("Status delivered")
	}
}

func statusPayload(wamid, status string) map[string]interface{} {
	return map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"id": "mock-waba",
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"statuses": []map[string]interface{}{{
						"id":        wamid,
						"status":    status,
						"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
					}},
				},
			}},
		}},
	}
}

type Handler struct {
	platform *MockPlatform
}

func NewHandler(platform *MockPlatform) *Handler {
	return &Handler{platform: platform}
}

// SendMessage handles POST /:phone_number_id/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, sendResponse{Error: &platformError{
			Code:    100,
			Message: "Invalid parameter: " + err.Error(),
		}})
		return
	}

	log.Info().
		Str("phone_number_id", c.Param("phone_number_id")).
		Str("to", req.To).
		Str("type", req.Type).
		Msg("Received send request")

	if !h.platform.accept() {
		rejection := h.platform.randomRejection()
		log.Warn().Int("code", rejection.Code).Str("to", req.To).Msg("Send rejected")
		c.JSON(http.StatusBadRequest, sendResponse{Error: rejection})
		return
	}

	wamid := "wamid." + uuid.New().String()
	resp := sendResponse{MessagingProduct: "whatsapp"}
	resp.Messages = append(resp.Messages, struct {
		ID string `json:"id"`
	}{ID: wamid})

	go h.platform.emitStatuses(wamid)

	c.JSON(http.StatusOK, resp)
}

// SubmitTemplate handles POST /:waba_id/message_templates.
func (h *Handler) SubmitTemplate(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Language string `json:"language" binding:"required"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": platformError{
			Code:    100,
			Message: "Invalid parameter: " + err.Error(),
		}})
		return
	}

	reviewID := uuid.New().String()
	log.Info().
		Str("waba_id", c.Param("waba_id")).
		Str("name", req.Name).
		Str("review_id", reviewID).
		Msg("Template submitted")

	c.JSON(http.StatusOK, gin.H{"id": reviewID, "status": "PENDING"})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now(),
		"delivery_rate": h.platform.deliveryRate,
	})
}

// UpdateConfig allows changing the accept rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
		h.platform.deliveryRate = *config.DeliveryRate
		log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
	}

	c.JSON(http.StatusOK, gin.H{"delivery_rate": h.platform.deliveryRate})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/:phone_number_id/messages", handler.SendMessage)
	router.POST("/:waba_id/message_templates", handler.SubmitTemplate)
	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 500*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 3*time.Second)
	callbackURL := getEnv("CALLBACK_URL", "")
	appSecret := getEnv("WEBHOOK_APP_SECRET", "")

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Str("callback_url", callbackURL).
		Msg("Starting mock messaging platform")

	platform := NewMockPlatform(deliveryRate, minDelay, maxDelay, callbackURL, appSecret)
	handler := NewHandler(platform)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
