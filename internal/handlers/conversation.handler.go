package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type ConversationService interface {
	Get(ctx context.Context, id int64) (*model.Conversation, error)
	List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
	Resolve(ctx context.Context, id int64) (*model.Conversation, error)
	Reopen(ctx context.Context, id int64) (*model.Conversation, error)
	MarkPending(ctx context.Context, id int64) (*model.Conversation, error)
	Assign(ctx context.Context, id int64, userID, teamID *int64) (*model.Conversation, error)
}

type ConversationHandler struct {
	svc ConversationService
}

func RegisterConversationRoutes(e *router.Group, h *ConversationHandler) {
	e.GET("/conversations", h.ListConversations)
	e.GET("/conversations/{id}", h.GetConversation)
	e.POST("/conversations/{id}/resolve", h.ResolveConversation)
	e.POST("/conversations/{id}/reopen", h.ReopenConversation)
	e.POST("/conversations/{id}/pending", h.MarkPending)
	e.POST("/conversations/{id}/assign", h.AssignConversation)
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type conversationListResponse struct {
	Items []*model.Conversation `json:"items"`
	Total int64                 `json:"total"`
}

type assignRequest struct {
	UserID *int64 `json:"user_id,omitempty"`
	TeamID *int64 `json:"team_id,omitempty"`
}

func (h *ConversationHandler) ListConversations(ctx *xhttp.RequestCtx) {
	var f model.ConversationFilter

	f.WorkspaceID = queryInt64(ctx, "workspace_id")
	f.PhoneNumberID = queryInt64(ctx, "phone_number_id")
	f.AssignedUserID = queryInt64(ctx, "assigned_user_id")
	f.AssignedTeamID = queryInt64(ctx, "assigned_team_id")
	for _, s := range queryCSV(ctx, "status") {
		f.Statuses = append(f.Statuses, model.ConversationStatus(s))
	}
	pagination(ctx, &f.Limit, &f.Offset, &f.Desc)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, conversationListResponse{Items: items, Total: total})
}

func (h *ConversationHandler) GetConversation(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Get)
}

func (h *ConversationHandler) ResolveConversation(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Resolve)
}

func (h *ConversationHandler) ReopenConversation(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Reopen)
}

func (h *ConversationHandler) MarkPending(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.MarkPending)
}

func (h *ConversationHandler) AssignConversation(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid conversation id")
		return
	}
	var req assignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	conv, err := h.svc.Assign(ctx, id, req.UserID, req.TeamID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, conv)
}

func (h *ConversationHandler) withID(ctx *xhttp.RequestCtx, fn func(context.Context, int64) (*model.Conversation, error)) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid conversation id")
		return
	}
	conv, err := fn(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, conv)
}
