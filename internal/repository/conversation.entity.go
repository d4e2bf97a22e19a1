package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type ConversationEntity struct {
	ID                    int64              `db:"id"                       gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID           int64              `db:"workspace_id"             gorm:"column:workspace_id;not null;index"`
	PhoneNumberID         int64              `db:"phone_number_id"          gorm:"column:phone_number_id;not null;uniqueIndex:idx_conversations_thread"`
	PhoneNumber           *PhoneNumberEntity `gorm:"foreignKey:PhoneNumberID;references:ID;constraint:OnDelete:CASCADE"`
	CustomerPhone         string             `db:"customer_phone"           gorm:"column:customer_phone;not null;uniqueIndex:idx_conversations_thread"`
	CustomerName          string             `db:"customer_name"            gorm:"column:customer_name"`
	Status                string             `db:"status"                   gorm:"column:status;not null;default:active;index"`
	AssignedUserID        *int64             `db:"assigned_user_id"         gorm:"column:assigned_user_id;index"`
	AssignedTeamID        *int64             `db:"assigned_team_id"         gorm:"column:assigned_team_id;index"`
	LastCustomerMessageAt *time.Time         `db:"last_customer_message_at" gorm:"column:last_customer_message_at"`
	ExpiresAt             *time.Time         `db:"conversation_expires_at"  gorm:"column:conversation_expires_at"`
	MessageCount          int                `db:"message_count"            gorm:"column:message_count;not null;default:0"`
	CreatedAt             time.Time          `db:"created_at"               gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `db:"updated_at"               gorm:"column:updated_at;autoUpdateTime"`
}

func (ConversationEntity) TableName() string { return "conversations" }

func toConversationEntity(m *model.Conversation) *ConversationEntity {
	if m == nil {
		return nil
	}
	return &ConversationEntity{
		ID:                    m.ID,
		WorkspaceID:           m.WorkspaceID,
		PhoneNumberID:         m.PhoneNumberID,
		CustomerPhone:         m.CustomerPhone,
		CustomerName:          m.CustomerName,
		Status:                string(m.Status),
		AssignedUserID:        m.AssignedUserID,
		AssignedTeamID:        m.AssignedTeamID,
		LastCustomerMessageAt: m.LastCustomerMessageAt,
		ExpiresAt:             m.ExpiresAt,
		MessageCount:          m.MessageCount,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toConversationModel(e *ConversationEntity) *model.Conversation {
	if e == nil {
		return nil
	}
	return &model.Conversation{
		ID:                    e.ID,
		WorkspaceID:           e.WorkspaceID,
		PhoneNumberID:         e.PhoneNumberID,
		CustomerPhone:         e.CustomerPhone,
		CustomerName:          e.CustomerName,
		Status:                model.ConversationStatus(e.Status),
		AssignedUserID:        e.AssignedUserID,
		AssignedTeamID:        e.AssignedTeamID,
		LastCustomerMessageAt: e.LastCustomerMessageAt,
		ExpiresAt:             e.ExpiresAt,
		MessageCount:          e.MessageCount,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func toConversationModels(entities []*ConversationEntity) []*model.Conversation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Conversation, len(entities))
	for i, e := range entities {
		models[i] = toConversationModel(e)
	}
	return models
}
