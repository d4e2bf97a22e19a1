package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type MessageEntity struct {
	ID              int64               `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	ConversationID  int64               `db:"conversation_id"    gorm:"column:conversation_id;not null;index"`
	Conversation    *ConversationEntity `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	Direction       string              `db:"direction"          gorm:"column:direction;not null"`
	Type            string              `db:"type"               gorm:"column:type;not null"`
	Status          string              `db:"status"             gorm:"column:status;not null;default:queued;index"`
	Wamid           string              `db:"wamid"              gorm:"column:wamid;index"`
	Body            string              `db:"body"               gorm:"column:body"`
	MediaURL        string              `db:"media_url"          gorm:"column:media_url"`
	TemplateID      *int64              `db:"template_id"        gorm:"column:template_id;index"`
	ErrorCode       string              `db:"error_code"         gorm:"column:error_code"`
	ErrorMessage    string              `db:"error_message"      gorm:"column:error_message"`
	PlatformTime    *time.Time          `db:"platform_timestamp" gorm:"column:platform_timestamp"`
	StatusUpdatedAt time.Time           `db:"status_updated_at"  gorm:"column:status_updated_at"`
	CreatedAt       time.Time           `db:"created_at"         gorm:"column:created_at;autoCreateTime"`
}

func (MessageEntity) TableName() string { return "messages" }

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		Direction:       string(m.Direction),
		Type:            string(m.Type),
		Status:          string(m.Status),
		Wamid:           m.Wamid,
		Body:            m.Body,
		MediaURL:        m.MediaURL,
		TemplateID:      m.TemplateID,
		ErrorCode:       m.ErrorCode,
		ErrorMessage:    m.ErrorMessage,
		PlatformTime:    m.PlatformTime,
		StatusUpdatedAt: m.StatusUpdatedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:              e.ID,
		ConversationID:  e.ConversationID,
		Direction:       model.MessageDirection(e.Direction),
		Type:            model.MessageType(e.Type),
		Status:          model.MessageStatus(e.Status),
		Wamid:           e.Wamid,
		Body:            e.Body,
		MediaURL:        e.MediaURL,
		TemplateID:      e.TemplateID,
		ErrorCode:       e.ErrorCode,
		ErrorMessage:    e.ErrorMessage,
		PlatformTime:    e.PlatformTime,
		StatusUpdatedAt: e.StatusUpdatedAt,
		CreatedAt:       e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
