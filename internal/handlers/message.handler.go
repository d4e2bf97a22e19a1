package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/waplatform/messaging-core/internal/model"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

type MessageService interface {
	Send(ctx context.Context, p model.SendMessageRequest) (*model.Message, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
	Get(ctx context.Context, id int64) (*model.Message, error)
}

type MessageHandler struct {
	svc MessageService
}

func RegisterMessageRoutes(e *router.Group, h *MessageHandler) {
	e.POST("/messages", h.SendMessage)
	e.GET("/messages", h.ListMessages)
	e.GET("/messages/{id}", h.GetMessage)
}

func NewMessageHandler(messageService MessageService) *MessageHandler {
	return &MessageHandler{svc: messageService}
}

type sendMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Type           string `json:"type"`
	Body           string `json:"body"`
	MediaURL       string `json:"media_url,omitempty"`
	TemplateID     *int64 `json:"template_id,omitempty"`
}

type messageListResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

func (h *MessageHandler) SendMessage(ctx *xhttp.RequestCtx) {
	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	msgType := model.MessageType(req.Type)
	if req.Type == "" {
		msgType = model.MessageTypeText
	}
	msg, err := h.svc.Send(ctx, model.SendMessageRequest{
		ConversationID: req.ConversationID,
		Type:           msgType,
		Body:           req.Body,
		MediaURL:       req.MediaURL,
		TemplateID:     req.TemplateID,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	// A recorded platform rejection still comes back as the stored message;
	// the caller reads the failed status and error detail off it.
	writeJSON(ctx, 201, msg)
}

func (h *MessageHandler) ListMessages(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter

	f.ConversationID = queryInt64(ctx, "conversation_id")
	if v := query(ctx, "direction"); v != "" {
		d := model.MessageDirection(v)
		f.Direction = &d
	}
	for _, s := range queryCSV(ctx, "status") {
		f.Statuses = append(f.Statuses, model.MessageStatus(s))
	}
	if v := query(ctx, "from"); v != "" {
		if t, err := parseTime(v); err == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, err := parseTime(v); err == nil {
			f.To = &t
		}
	}
	pagination(ctx, &f.Limit, &f.Offset, &f.Desc)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, messageListResponse{Items: items, Total: total})
}

func (h *MessageHandler) GetMessage(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid message id")
		return
	}
	msg, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, msg)
}
