package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type AutomationService interface {
	Create(ctx context.Context, p model.AutomationRuleCreateRequest) (*model.AutomationRule, error)
	Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error)
}

type AutomationHandler struct {
	svc AutomationService
}

func RegisterAutomationRoutes(e *router.Group, h *AutomationHandler) {
	e.GET("/automation-rules", h.ListRules)
	e.POST("/automation-rules", h.CreateRule)
	e.PUT("/automation-rules/{id}", h.UpdateRule)
	e.POST("/automation-rules/{id}/enable", h.EnableRule)
	e.POST("/automation-rules/{id}/disable", h.DisableRule)
	e.DELETE("/automation-rules/{id}", h.DeleteRule)
}

func NewAutomationHandler(svc AutomationService) *AutomationHandler {
	return &AutomationHandler{svc: svc}
}

type createRuleRequest struct {
	WorkspaceID  int64    `json:"workspace_id"`
	Name         string   `json:"name"`
	TriggerType  string   `json:"trigger_type"`
	Keywords     []string `json:"keywords,omitempty"`
	ActionType   string   `json:"action_type"`
	ReplyBody    string   `json:"reply_body,omitempty"`
	AssignUserID *int64   `json:"assign_user_id,omitempty"`
	AssignTeamID *int64   `json:"assign_team_id,omitempty"`
	Priority     int      `json:"priority"`
}

func (h *AutomationHandler) ListRules(ctx *xhttp.RequestCtx) {
	workspaceID := queryInt64(ctx, "workspace_id")
	if workspaceID == nil {
		writeError(ctx, 400, "workspace_id is required")
		return
	}
	items, err := h.svc.List(ctx, *workspaceID)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"items": items})
}

func (h *AutomationHandler) CreateRule(ctx *xhttp.RequestCtx) {
	var req createRuleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	rule, err := h.svc.Create(ctx, model.AutomationRuleCreateRequest{
		WorkspaceID:  req.WorkspaceID,
		Name:         req.Name,
		TriggerType:  model.TriggerType(req.TriggerType),
		Keywords:     req.Keywords,
		ActionType:   model.ActionType(req.ActionType),
		ReplyBody:    req.ReplyBody,
		AssignUserID: req.AssignUserID,
		AssignTeamID: req.AssignTeamID,
		Priority:     req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, rule)
}

func (h *AutomationHandler) UpdateRule(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid rule id")
		return
	}
	var rule model.AutomationRule
	if err := readJSON(ctx, &rule); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	rule.ID = id
	updated, err := h.svc.Update(ctx, &rule)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, updated)
}

func (h *AutomationHandler) EnableRule(ctx *xhttp.RequestCtx) {
	h.setEnabled(ctx, true)
}

func (h *AutomationHandler) DisableRule(ctx *xhttp.RequestCtx) {
	h.setEnabled(ctx, false)
}

func (h *AutomationHandler) setEnabled(ctx *xhttp.RequestCtx, enabled bool) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid rule id")
		return
	}
	if err := h.svc.SetEnabled(ctx, id, enabled); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, map[string]bool{"enabled": enabled})
}

func (h *AutomationHandler) DeleteRule(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid rule id")
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(204)
}
