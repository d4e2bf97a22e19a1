package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{db}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	entity := toMessageEntity(m)
	if entity.Status == "" {
		entity.Status = string(model.MessageStatusQueued)
	}
	if entity.StatusUpdatedAt.IsZero() {
		entity.StatusUpdatedAt = time.Now().UTC()
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toMessageModel(entity), nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	var entity MessageEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toMessageModel(&entity), nil
}

func (r *MessageRepository) GetByWamid(ctx context.Context, wamid string) (*model.Message, error) {
	var entity MessageEntity
	err := r.Read(ctx).WithContext(ctx).Where("wamid = ?", wamid).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toMessageModel(&entity), nil
}

func (r *MessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageEntity{})

	if f.ConversationID != nil {
		q = q.Where("conversation_id = ?", *f.ConversationID)
	}
	if f.Direction != nil {
		q = q.Where("direction = ?", string(*f.Direction))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toMessageModels(entities), total, nil
}

// MarkSent records a successful synchronous platform call: the assigned
// wamid plus the sent status. Only a queued message can be resolved this way.
func (r *MessageRepository) MarkSent(ctx context.Context, id int64, wamid string) error {
	return r.resolveQueued(ctx, id, map[string]interface{}{
		"status":            string(model.MessageStatusSent),
		"wamid":             wamid,
		"status_updated_at": time.Now().UTC(),
	})
}

// MarkFailed records a synchronous send failure with the provider error.
func (r *MessageRepository) MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error {
	return r.resolveQueued(ctx, id, map[string]interface{}{
		"status":            string(model.MessageStatusFailed),
		"error_code":        errCode,
		"error_message":     errMsg,
		"status_updated_at": time.Now().UTC(),
	})
}

func (r *MessageRepository) resolveQueued(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("id = ? AND status = ?", id, string(model.MessageStatusQueued)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// ApplyStatus advances the monotonic delivery status for the message with
// the given wamid. The allowed source statuses are folded into the WHERE
// clause, so a late or duplicated webhook cannot move the status backwards
// no matter how handlers interleave; it surfaces as ErrStaleStatus and the
// caller discards it.
func (r *MessageRepository) ApplyStatus(ctx context.Context, wamid string, to model.MessageStatus, platformTime *time.Time, errCode, errMsg string) (*model.Message, error) {
	froms := messageStatusesAllowing(to)
	if len(froms) == 0 {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":            string(to),
		"status_updated_at": time.Now().UTC(),
	}
	if platformTime != nil {
		updates["platform_timestamp"] = *platformTime
	}
	if to == model.MessageStatusFailed {
		updates["error_code"] = errCode
		updates["error_message"] = errMsg
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("wamid = ? AND status IN ?", wamid, froms).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		msg, err := r.GetByWamid(ctx, wamid)
		if err != nil {
			return nil, err
		}
		return msg, ErrStaleStatus
	}
	return r.GetByWamid(ctx, wamid)
}

func messageStatusesAllowing(to model.MessageStatus) []string {
	all := []model.MessageStatus{
		model.MessageStatusQueued,
		model.MessageStatusSent,
		model.MessageStatusDelivered,
		model.MessageStatusRead,
		model.MessageStatusFailed,
	}
	var froms []string
	for _, from := range all {
		if from.CanTransition(to) {
			froms = append(froms, string(from))
		}
	}
	return froms
}

// OutboundStats is the rolling aggregate consumed by the compliance monitor.
type OutboundStats struct {
	PhoneNumberID int64
	Total         int64
	Failed        int64
}

// OutboundStatsSince counts outbound messages and failures per phone number
// over the window, joining through conversations.
func (r *MessageRepository) OutboundStatsSince(ctx context.Context, since time.Time) ([]OutboundStats, error) {
	var stats []OutboundStats
	err := r.Read(ctx).WithContext(ctx).
		Table("messages AS m").
		Select(`
            c.phone_number_id                                          AS phone_number_id,
            COUNT(*)                                                   AS total,
            COUNT(*) FILTER (WHERE m.status = 'failed')                AS failed
        `).
		Joins("JOIN conversations AS c ON c.id = m.conversation_id").
		Where("m.direction = ? AND m.created_at >= ?", string(model.DirectionOutbound), since).
		Group("c.phone_number_id").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
