package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	gateway "github.com/waplatform/messaging-core/internal/gateways"
	"github.com/waplatform/messaging-core/internal/model"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) MarkSent(ctx context.Context, id int64, wamid string) error {
	args := m.Called(ctx, id, wamid)
	return args.Error(0)
}

func (m *MockMessageRepository) MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error {
	args := m.Called(ctx, id, errCode, errMsg)
	return args.Error(0)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepository) UpdateStatus(ctx context.Context, id int64, to model.ConversationStatus) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

func (m *MockConversationRepository) Assign(ctx context.Context, id int64, userID, teamID *int64) error {
	args := m.Called(ctx, id, userID, teamID)
	return args.Error(0)
}

func (m *MockConversationRepository) IncrementMessageCount(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) FindByNaturalKey(ctx context.Context, workspaceID int64, name, language string) (*model.Template, error) {
	args := m.Called(ctx, workspaceID, name, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) List(ctx context.Context, workspaceID int64, statuses []model.TemplateStatus) ([]*model.Template, error) {
	args := m.Called(ctx, workspaceID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) UpdateBody(ctx context.Context, id int64, body string, category model.TemplateCategory) error {
	args := m.Called(ctx, id, body, category)
	return args.Error(0)
}

func (m *MockTemplateRepository) MarkSubmitted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTemplateRepository) ApplyDecision(ctx context.Context, id int64, approved bool, rejectionReason string) error {
	args := m.Called(ctx, id, approved, rejectionReason)
	return args.Error(0)
}

type MockPhoneNumberRepository struct {
	mock.Mock
}

func (m *MockPhoneNumberRepository) GetByID(ctx context.Context, id int64) (*model.PhoneNumber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) ReserveSend(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*model.BusinessAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BusinessAccount), args.Error(1)
}

type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Open(ctx context.Context, accountID int64) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) SendText(ctx context.Context, token, platformPhoneID, to, body string) (string, error) {
	args := m.Called(ctx, token, platformPhoneID, to, body)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) SendTemplate(ctx context.Context, token, platformPhoneID, to, name, language string, components []gateway.TemplateComponent) (string, error) {
	args := m.Called(ctx, token, platformPhoneID, to, name, language, components)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) SubmitTemplate(ctx context.Context, token, platformAccountID, name, language, category, body string) (string, error) {
	args := m.Called(ctx, token, platformAccountID, name, language, category, body)
	return args.String(0), args.Error(1)
}

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Campaign), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepository) Schedule(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCampaignRepository) UpdateStatus(ctx context.Context, id int64, to model.CampaignStatus) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

func (m *MockCampaignRepository) SetTotalRecipients(ctx context.Context, id int64, total int) error {
	args := m.Called(ctx, id, total)
	return args.Error(0)
}

type MockRecipientRepository struct {
	mock.Mock
}

func (m *MockRecipientRepository) BulkInsert(ctx context.Context, recipients []*model.CampaignRecipient) (int64, error) {
	args := m.Called(ctx, recipients)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecipientRepository) CountByCampaign(ctx context.Context, campaignID int64) (int64, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecipientRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int64, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.RecipientStatus]int64), args.Error(1)
}

type MockOptInRepository struct {
	mock.Mock
}

func (m *MockOptInRepository) GetByPhone(ctx context.Context, workspaceID int64, phone string) (*model.OptIn, error) {
	args := m.Called(ctx, workspaceID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OptIn), args.Error(1)
}

func (m *MockOptInRepository) IsActive(ctx context.Context, workspaceID int64, phone string) (bool, error) {
	args := m.Called(ctx, workspaceID, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockOptInRepository) RecordConsent(ctx context.Context, o *model.OptIn) (*model.OptIn, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OptIn), args.Error(1)
}

func (m *MockOptInRepository) Import(ctx context.Context, workspaceID int64, optIns []*model.OptIn) (int64, error) {
	args := m.Called(ctx, workspaceID, optIns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOptInRepository) OptOut(ctx context.Context, workspaceID int64, phone string) error {
	args := m.Called(ctx, workspaceID, phone)
	return args.Error(0)
}

func (m *MockOptInRepository) List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.OptIn), args.Get(1).(int64), args.Error(2)
}

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Create(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	args := m.Called(ctx, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id int64) (*model.AutomationRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) ListEnabled(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	args := m.Called(ctx, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	args := m.Called(ctx, id, enabled)
	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Send(ctx context.Context, p model.SendMessageRequest) (*model.Message, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}
