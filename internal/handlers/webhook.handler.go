package handlers

import (
	"context"
	"encoding/json"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/webhook"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
	"github.com/waplatform/messaging-core/pkg/logger"
)

type WebhookProcessor interface {
	Process(ctx context.Context, payload *webhook.Payload)
}

type WebhookVerifier interface {
	ValidateSignature(body []byte, header string) error
	VerifySubscription(mode, token, challenge string) (string, error)
}

// WebhookHandler is the platform-facing ingest endpoint. Signature
// verification happens before anything else touches the payload; a bad
// signature never reaches the tracker.
type WebhookHandler struct {
	tracker  WebhookProcessor
	verifier WebhookVerifier
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.GET("/webhook", h.VerifySubscription)
	e.POST("/webhook", h.ReceiveDelivery)
}

func NewWebhookHandler(tracker WebhookProcessor, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{tracker: tracker, verifier: verifier}
}

// VerifySubscription answers the platform's subscription handshake by
// echoing hub.challenge back when the verify token matches.
func (h *WebhookHandler) VerifySubscription(ctx *xhttp.RequestCtx) {
	challenge, err := h.verifier.VerifySubscription(
		query(ctx, "hub.mode"),
		query(ctx, "hub.verify_token"),
		query(ctx, "hub.challenge"),
	)
	if err != nil {
		logger.Warn("Webhook subscription handshake rejected", "error", err)
		ctx.Response.SetStatusCode(403)
		return
	}
	ctx.Response.SetStatusCode(200)
	ctx.Response.SetBodyString(challenge)
}

// ReceiveDelivery ingests one webhook delivery. Always answers 200 once the
// signature checks out, even when individual events fail to apply; the
// platform retries the whole batch on any other answer and the tracker is
// idempotent against that anyway.
func (h *WebhookHandler) ReceiveDelivery(ctx *xhttp.RequestCtx) {
	body := ctx.PostBody()
	signature := string(ctx.Request.Header.Peek("X-Hub-Signature-256"))

	if err := h.verifier.ValidateSignature(body, signature); err != nil {
		logger.Warn("Webhook signature rejected", "error", err)
		ctx.Response.SetStatusCode(401)
		return
	}

	var payload webhook.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("Malformed webhook payload", "error", err)
		ctx.Response.SetStatusCode(400)
		return
	}

	h.tracker.Process(ctx, &payload)
	ctx.Response.SetStatusCode(200)
}
