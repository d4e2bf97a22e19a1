package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type AlertStore interface {
	ListOpen(ctx context.Context, accountID *int64) ([]*model.AccountRiskAlert, error)
	Acknowledge(ctx context.Context, id int64, at time.Time) (*model.AccountRiskAlert, error)
	Resolve(ctx context.Context, id int64, at time.Time) (*model.AccountRiskAlert, error)
}

type AlertHandler struct {
	alerts AlertStore
}

func RegisterAlertRoutes(e *router.Group, h *AlertHandler) {
	e.GET("/risk-alerts", h.ListOpenAlerts)
	e.POST("/risk-alerts/{id}/acknowledge", h.AcknowledgeAlert)
	e.POST("/risk-alerts/{id}/resolve", h.ResolveAlert)
}

func NewAlertHandler(alerts AlertStore) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

func (h *AlertHandler) ListOpenAlerts(ctx *xhttp.RequestCtx) {
	items, err := h.alerts.ListOpen(ctx, queryInt64(ctx, "account_id"))
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"items": items})
}

func (h *AlertHandler) AcknowledgeAlert(ctx *xhttp.RequestCtx) {
	h.stamp(ctx, h.alerts.Acknowledge)
}

func (h *AlertHandler) ResolveAlert(ctx *xhttp.RequestCtx) {
	h.stamp(ctx, h.alerts.Resolve)
}

func (h *AlertHandler) stamp(ctx *xhttp.RequestCtx, fn func(context.Context, int64, time.Time) (*model.AccountRiskAlert, error)) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid alert id")
		return
	}
	alert, err := fn(ctx, id, time.Now().UTC())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, alert)
}
