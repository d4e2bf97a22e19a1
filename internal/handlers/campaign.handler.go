package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error)
	BuildAudience(ctx context.Context, campaignID int64) (int, error)
	Schedule(ctx context.Context, id int64, at time.Time) (*model.Campaign, error)
	SendNow(ctx context.Context, id int64) (*model.Campaign, error)
	Cancel(ctx context.Context, id int64) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error)
	Stats(ctx context.Context, id int64) (*model.CampaignStats, error)
}

type CampaignHandler struct {
	svc CampaignService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.GET("/campaigns", h.ListCampaigns)
	e.GET("/campaigns/{id}", h.GetCampaign)
	e.GET("/campaigns/{id}/stats", h.GetCampaignStats)
	e.POST("/campaigns", h.CreateCampaign)
	e.POST("/campaigns/{id}/audience", h.BuildAudience)
	e.POST("/campaigns/{id}/schedule", h.ScheduleCampaign)
	e.POST("/campaigns/{id}/send", h.SendCampaign)
	e.POST("/campaigns/{id}/cancel", h.CancelCampaign)
}

func NewCampaignHandler(svc CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

type createCampaignRequest struct {
	WorkspaceID    int64                `json:"workspace_id"`
	PhoneNumberID  int64                `json:"phone_number_id"`
	TemplateID     int64                `json:"template_id"`
	Name           string               `json:"name"`
	AudienceFilter model.AudienceFilter `json:"audience_filter"`
	ScheduledAt    *time.Time           `json:"scheduled_at,omitempty"`
}

type scheduleRequest struct {
	At time.Time `json:"at"`
}

type campaignListResponse struct {
	Items []*model.Campaign `json:"items"`
	Total int64             `json:"total"`
}

func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	var f model.CampaignFilter

	f.WorkspaceID = queryInt64(ctx, "workspace_id")
	for _, s := range queryCSV(ctx, "status") {
		f.Statuses = append(f.Statuses, model.CampaignStatus(s))
	}
	pagination(ctx, &f.Limit, &f.Offset, &f.Desc)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, campaignListResponse{Items: items, Total: total})
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	c, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) GetCampaignStats(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	stats, err := h.svc.Stats(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, stats)
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req createCampaignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Create(ctx, model.CampaignCreateRequest{
		WorkspaceID:    req.WorkspaceID,
		PhoneNumberID:  req.PhoneNumberID,
		TemplateID:     req.TemplateID,
		Name:           req.Name,
		AudienceFilter: req.AudienceFilter,
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, c)
}

func (h *CampaignHandler) BuildAudience(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	total, err := h.svc.BuildAudience(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, map[string]int{"total_recipients": total})
}

func (h *CampaignHandler) ScheduleCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	var req scheduleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Schedule(ctx, id, req.At)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) SendCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	c, err := h.svc.SendNow(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) CancelCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	c, err := h.svc.Cancel(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}
