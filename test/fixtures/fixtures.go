package fixtures

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

var (
	TestAccountVerified = model.BusinessAccount{
		ID:          1,
		WorkspaceID: 1,
		PlatformID:  "waba-1",
		Name:        "Test Business",
		Status:      model.AccountStatusVerified,
		Quality:     model.QualityGreen,
		Tier:        model.Tier1K,
	}

	TestAccountRestricted = model.BusinessAccount{
		ID:          2,
		WorkspaceID: 2,
		PlatformID:  "waba-2",
		Name:        "Restricted Business",
		Status:      model.AccountStatusRestricted,
		Quality:     model.QualityYellow,
		Tier:        model.TierUnverified,
	}
)

func NewTestPhoneNumber(id, accountID int64, dailyLimit int) *model.PhoneNumber {
	return &model.PhoneNumber{
		ID:             id,
		AccountID:      accountID,
		PlatformID:     "pn-1",
		DisplayNumber:  "+15550000001",
		Quality:        model.QualityGreen,
		DailySendLimit: dailyLimit,
		IsActive:       true,
		IsPrimary:      true,
	}
}

func NewTestTemplate(id, workspaceID, phoneNumberID int64, status model.TemplateStatus) *model.Template {
	return &model.Template{
		ID:            id,
		WorkspaceID:   workspaceID,
		PhoneNumberID: phoneNumberID,
		Name:          "order_update",
		Language:      "en_US",
		Category:      model.TemplateCategoryUtility,
		Body:          "Your order {{1}} has shipped.",
		Status:        status,
	}
}

func NewTestOptIn(workspaceID int64, phone string) *model.OptIn {
	return &model.OptIn{
		WorkspaceID: workspaceID,
		PhoneNumber: phone,
		Source:      model.OptInSourceWebsite,
		IsActive:    true,
		OptedInAt:   time.Now().UTC(),
	}
}

func NewTestCampaignCreateRequest(workspaceID, phoneNumberID, templateID int64) model.CampaignCreateRequest {
	return model.CampaignCreateRequest{
		WorkspaceID:   workspaceID,
		PhoneNumberID: phoneNumberID,
		TemplateID:    templateID,
		Name:          "spring_sale",
	}
}

func NewTestSendMessageRequest(conversationID int64, body string) model.SendMessageRequest {
	return model.SendMessageRequest{
		ConversationID: conversationID,
		Type:           model.MessageTypeText,
		Body:           body,
	}
}

var (
	ValidPhoneNumbers = []string{
		"+15551230001",
		"+15551230002",
		"+447700900123",
		"+33612345678",
		"+818012345678",
	}

	InvalidPhoneNumbers = []string{
		"",
		"123",
		"invalid",
		"+",
		"abc123",
	}
)

func MessageFilterByConversation(conversationID int64) model.MessageFilter {
	return model.MessageFilter{
		ConversationID: &conversationID,
		Limit:          50,
		Offset:         0,
		Desc:           false,
	}
}

func MessageFilterByTimeRange(conversationID int64, from, to time.Time) model.MessageFilter {
	return model.MessageFilter{
		ConversationID: &conversationID,
		From:           &from,
		To:             &to,
		Limit:          50,
		Offset:         0,
		Desc:           false,
	}
}
