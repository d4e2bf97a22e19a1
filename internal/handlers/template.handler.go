package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type TemplateService interface {
	Create(ctx context.Context, p model.TemplateCreateRequest) (*model.Template, error)
	UpdateBody(ctx context.Context, id int64, body string, category model.TemplateCategory) (*model.Template, error)
	Submit(ctx context.Context, id int64) (*model.Template, error)
	ApplyDecision(ctx context.Context, id int64, approved bool, rejectionReason string) (*model.Template, error)
	Get(ctx context.Context, id int64) (*model.Template, error)
	List(ctx context.Context, workspaceID int64, statuses []model.TemplateStatus) ([]*model.Template, error)
}

type TemplateHandler struct {
	svc TemplateService
}

func RegisterTemplateRoutes(e *router.Group, h *TemplateHandler) {
	e.GET("/templates", h.ListTemplates)
	e.GET("/templates/{id}", h.GetTemplate)
	e.POST("/templates", h.CreateTemplate)
	e.PUT("/templates/{id}", h.UpdateTemplate)
	e.POST("/templates/{id}/submit", h.SubmitTemplate)
	e.POST("/templates/{id}/decision", h.ApplyDecision)
}

func NewTemplateHandler(svc TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

type createTemplateRequest struct {
	WorkspaceID   int64  `json:"workspace_id"`
	PhoneNumberID int64  `json:"phone_number_id"`
	Name          string `json:"name"`
	Language      string `json:"language"`
	Category      string `json:"category"`
	Body          string `json:"body"`
}

type updateTemplateRequest struct {
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
}

// decisionRequest mirrors what the platform sync job reports back about a
// submitted template.
type decisionRequest struct {
	Approved        bool   `json:"approved"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func (h *TemplateHandler) ListTemplates(ctx *xhttp.RequestCtx) {
	workspaceID := queryInt64(ctx, "workspace_id")
	if workspaceID == nil {
		writeError(ctx, 400, "workspace_id is required")
		return
	}
	var statuses []model.TemplateStatus
	for _, s := range queryCSV(ctx, "status") {
		statuses = append(statuses, model.TemplateStatus(s))
	}
	items, err := h.svc.List(ctx, *workspaceID, statuses)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"items": items})
}

func (h *TemplateHandler) GetTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	tmpl, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tmpl)
}

func (h *TemplateHandler) CreateTemplate(ctx *xhttp.RequestCtx) {
	var req createTemplateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	tmpl, err := h.svc.Create(ctx, model.TemplateCreateRequest{
		WorkspaceID:   req.WorkspaceID,
		PhoneNumberID: req.PhoneNumberID,
		Name:          req.Name,
		Language:      req.Language,
		Category:      model.TemplateCategory(req.Category),
		Body:          req.Body,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, tmpl)
}

func (h *TemplateHandler) UpdateTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	var req updateTemplateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	tmpl, err := h.svc.UpdateBody(ctx, id, req.Body, model.TemplateCategory(req.Category))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tmpl)
}

func (h *TemplateHandler) SubmitTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	tmpl, err := h.svc.Submit(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tmpl)
}

func (h *TemplateHandler) ApplyDecision(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	var req decisionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	tmpl, err := h.svc.ApplyDecision(ctx, id, req.Approved, req.RejectionReason)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tmpl)
}
