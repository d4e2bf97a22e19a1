package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type Pinger interface {
	Ping() error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check.Ping(); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := 200
	if !healthy {
		code = 503
	}
	writeJSON(ctx, code, status)
}
