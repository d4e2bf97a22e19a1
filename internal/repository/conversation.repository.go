package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository struct {
	*pg.DB
}

func NewConversationRepository(db *pg.DB) *ConversationRepository {
	return &ConversationRepository{db}
}

// FindOrCreate returns the thread for (phone_number_id, customer_phone),
// creating it on the first inbound message. A unique index backs the
// identity, so concurrent webhook deliveries for a new customer converge on
// one row.
func (r *ConversationRepository) FindOrCreate(ctx context.Context, workspaceID, phoneNumberID int64, customerPhone, customerName string) (*model.Conversation, error) {
	entity := &ConversationEntity{
		WorkspaceID:   workspaceID,
		PhoneNumberID: phoneNumberID,
		CustomerPhone: customerPhone,
		CustomerName:  customerName,
		Status:        string(model.ConversationActive),
	}

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number_id"}, {Name: "customer_phone"}},
			DoNothing: true,
		}).
		Create(entity).Error
	if err != nil {
		return nil, err
	}

	// on conflict the insert is a no-op and the entity keeps a zero id;
	// fetch the surviving row either way
	var existing ConversationEntity
	err = r.Write(ctx).WithContext(ctx).
		Where("phone_number_id = ? AND customer_phone = ?", phoneNumberID, customerPhone).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return toConversationModel(&existing), nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(&entity), nil
}

func (r *ConversationRepository) List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ConversationEntity{})

	if f.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *f.WorkspaceID)
	}
	if f.PhoneNumberID != nil {
		q = q.Where("phone_number_id = ?", *f.PhoneNumberID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.AssignedUserID != nil {
		q = q.Where("assigned_user_id = ?", *f.AssignedUserID)
	}
	if f.AssignedTeamID != nil {
		q = q.Where("assigned_team_id = ?", *f.AssignedTeamID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "updated_at"
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

	var entities []*ConversationEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toConversationModels(entities), total, nil
}

// FindOpen lists conversations that are not resolved, the explicit
// replacement for the old chained query scopes.
func (r *ConversationRepository) FindOpen(ctx context.Context, workspaceID int64) ([]*model.Conversation, error) {
	var entities []*ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("workspace_id = ? AND status != ?", workspaceID, string(model.ConversationResolved)).
		Order("updated_at DESC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toConversationModels(entities), nil
}

// UpdateStatus applies a lifecycle edge. The allowed source states are part
// of the WHERE clause so concurrent transitions serialize on the row.
func (r *ConversationRepository) UpdateStatus(ctx context.Context, id int64, to model.ConversationStatus) error {
	var froms []string
	for _, from := range []model.ConversationStatus{
		model.ConversationActive,
		model.ConversationPending,
		model.ConversationResolved,
	} {
		if from.CanTransition(to) {
			froms = append(froms, string(from))
		}
	}
	if len(froms) == 0 {
		return ErrInvalidTransition
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ? AND status IN ?", id, froms).
		Update("status", string(to))
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

func (r *ConversationRepository) Assign(ctx context.Context, id int64, userID, teamID *int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"assigned_user_id": userID,
			"assigned_team_id": teamID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCustomerMessage refreshes the service window and reopens a resolved
// thread in one statement: last_customer_message_at drives the 24h window,
// the expiry mirror is advanced with it, and the counter increment is atomic
// so concurrent webhook handlers cannot lose updates.
func (r *ConversationRepository) RecordCustomerMessage(ctx context.Context, id int64, at time.Time) error {
	expires := at.Add(model.ServiceWindow)
	result := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_customer_message_at": at,
			"conversation_expires_at":  expires,
			"message_count":            gorm.Expr("message_count + 1"),
			"status":                   string(model.ConversationActive),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementMessageCount bumps the counter for outbound messages without
// touching the service window.
func (r *ConversationRepository) IncrementMessageCount(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Update("message_count", gorm.Expr("message_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
