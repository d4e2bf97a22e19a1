package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type OptInService interface {
	RecordConsent(ctx context.Context, workspaceID int64, phone, name string, source model.OptInSource) (*model.OptIn, error)
	OptOut(ctx context.Context, workspaceID int64, phone string) error
	Import(ctx context.Context, workspaceID int64, optIns []*model.OptIn) (int64, []string, error)
	List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error)
}

type OptInHandler struct {
	svc OptInService
}

func RegisterOptInRoutes(e *router.Group, h *OptInHandler) {
	e.GET("/opt-ins", h.ListOptIns)
	e.POST("/opt-ins", h.RecordConsent)
	e.POST("/opt-ins/import", h.ImportOptIns)
	e.POST("/opt-ins/opt-out", h.OptOut)
}

func NewOptInHandler(svc OptInService) *OptInHandler {
	return &OptInHandler{svc: svc}
}

type consentRequest struct {
	WorkspaceID int64  `json:"workspace_id"`
	Phone       string `json:"phone"`
	Name        string `json:"name,omitempty"`
	Source      string `json:"source,omitempty"`
}

type importRequest struct {
	WorkspaceID int64 `json:"workspace_id"`
	Entries     []struct {
		Phone string `json:"phone"`
		Name  string `json:"name,omitempty"`
	} `json:"entries"`
}

type importResponse struct {
	Imported int64    `json:"imported"`
	Rejected []string `json:"rejected,omitempty"`
}

type optInListResponse struct {
	Items []*model.OptIn `json:"items"`
	Total int64          `json:"total"`
}

func (h *OptInHandler) ListOptIns(ctx *xhttp.RequestCtx) {
	var f model.OptInFilter

	f.WorkspaceID = queryInt64(ctx, "workspace_id")
	if query(ctx, "active") == "true" {
		f.ActiveOnly = true
	}
	if v := query(ctx, "phone_prefix"); v != "" {
		f.PhonePrefix = &v
	}
	pagination(ctx, &f.Limit, &f.Offset, nil)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, optInListResponse{Items: items, Total: total})
}

func (h *OptInHandler) RecordConsent(ctx *xhttp.RequestCtx) {
	var req consentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	source := model.OptInSource(req.Source)
	if req.Source == "" {
		source = model.OptInSourceWebsite
	}
	optIn, err := h.svc.RecordConsent(ctx, req.WorkspaceID, req.Phone, req.Name, source)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, optIn)
}

func (h *OptInHandler) ImportOptIns(ctx *xhttp.RequestCtx) {
	var req importRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	optIns := make([]*model.OptIn, len(req.Entries))
	for i, e := range req.Entries {
		optIns[i] = &model.OptIn{
			WorkspaceID: req.WorkspaceID,
			PhoneNumber: e.Phone,
			Name:        e.Name,
			Source:      model.OptInSourceImport,
		}
	}
	imported, rejected, err := h.svc.Import(ctx, req.WorkspaceID, optIns)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, importResponse{Imported: imported, Rejected: rejected})
}

func (h *OptInHandler) OptOut(ctx *xhttp.RequestCtx) {
	var req consentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.OptOut(ctx, req.WorkspaceID, req.Phone); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "opted_out"})
}
