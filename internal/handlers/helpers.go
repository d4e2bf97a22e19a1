package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/internal/services"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps service sentinels onto status codes: missing
// things are 404, state conflicts 409, everything else a plain 400.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(ctx, 404, err.Error())
	case errors.Is(err, services.ErrServiceWindowClosed),
		errors.Is(err, services.ErrTemplateNotApproved),
		errors.Is(err, services.ErrDailyQuotaExhausted),
		errors.Is(err, services.ErrPhoneNumberInactive),
		errors.Is(err, services.ErrConversationClosed),
		errors.Is(err, services.ErrTemplateExists),
		errors.Is(err, services.ErrTemplateNotDraft),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrAlreadyDecided),
		errors.Is(err, services.ErrCampaignNotEditable),
		errors.Is(err, services.ErrCampaignFinished),
		errors.Is(err, services.ErrScheduleInPast),
		errors.Is(err, services.ErrEmptyAudience),
		errors.Is(err, services.ErrWorkspaceMismatch),
		errors.Is(err, repository.ErrInvalidTransition):
		writeError(ctx, 409, err.Error())
	default:
		writeError(ctx, 400, err.Error())
	}
}

// pathInt64 reads a {name} segment captured by the router.
func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt64(ctx *xhttp.RequestCtx, key string) *int64 {
	if v := query(ctx, key); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}

func queryCSV(ctx *xhttp.RequestCtx, key string) []string {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pagination fills limit/offset/order from the query string.
func pagination(ctx *xhttp.RequestCtx, limit, offset *int, desc *bool) {
	if v := query(ctx, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*offset = n
		}
	}
	if desc != nil && strings.EqualFold(query(ctx, "order"), "desc") {
		*desc = true
	}
}

// parseTime accepts RFC3339 or YYYY-MM-DD.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
