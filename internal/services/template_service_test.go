package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
)

type templateServiceFixture struct {
	templates    *MockTemplateRepository
	phoneNumbers *MockPhoneNumberRepository
	accounts     *MockAccountRepository
	tokens       *MockTokenSource
	platform     *MockPlatform
	service      *TemplateService
}

func newTemplateServiceFixture(t *testing.T) *templateServiceFixture {
	t.Helper()
	f := &templateServiceFixture{
		templates:    new(MockTemplateRepository),
		phoneNumbers: new(MockPhoneNumberRepository),
		accounts:     new(MockAccountRepository),
		tokens:       new(MockTokenSource),
		platform:     new(MockPlatform),
	}
	f.service = NewTemplateService(f.templates, f.phoneNumbers, f.accounts, f.tokens, f.platform)
	return f
}

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("new template starts as draft", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("FindByNaturalKey", ctx, int64(1), "welcome", "en_US").Return(nil, repository.ErrNotFound)
		f.templates.On("Create", ctx, mock.MatchedBy(func(tmpl *model.Template) bool {
			return tmpl.Name == "welcome" && tmpl.Status == model.TemplateStatus("")
		})).Return(&model.Template{ID: 1, Status: model.TemplateDraft}, nil)

		tmpl, err := f.service.Create(ctx, model.TemplateCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			Name:          "welcome",
			Language:      "en_US",
			Category:      model.TemplateCategoryUtility,
			Body:          "Welcome, {{1}}!",
		})
		require.NoError(t, err)
		assert.Equal(t, model.TemplateDraft, tmpl.Status)
	})

	t.Run("duplicate natural key", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("FindByNaturalKey", ctx, int64(1), "welcome", "en_US").Return(&model.Template{ID: 1}, nil)

		_, err := f.service.Create(ctx, model.TemplateCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			Name:          "welcome",
			Language:      "en_US",
			Body:          "hi",
		})
		assert.ErrorIs(t, err, ErrTemplateExists)
	})
}

func TestTemplateService_Submit(t *testing.T) {
	ctx := context.Background()

	draft := &model.Template{
		ID:            1,
		WorkspaceID:   1,
		PhoneNumberID: 5,
		Name:          "welcome",
		Language:      "en_US",
		Category:      model.TemplateCategoryUtility,
		Body:          "Welcome!",
		Status:        model.TemplateDraft,
	}

	t.Run("submits through the platform", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("GetByID", ctx, int64(1)).Return(draft, nil).Once()
		f.phoneNumbers.On("GetByID", ctx, int64(5)).Return(&model.PhoneNumber{ID: 5, AccountID: 2}, nil)
		f.accounts.On("GetByID", ctx, int64(2)).Return(&model.BusinessAccount{ID: 2, PlatformID: "waba-2"}, nil)
		f.tokens.On("Open", ctx, int64(2)).Return("tok", nil)
		f.templates.On("MarkSubmitted", ctx, int64(1)).Return(nil)
		f.platform.On("SubmitTemplate", ctx, "tok", "waba-2", "welcome", "en_US", "utility", "Welcome!").Return("tpl-remote-1", nil)
		f.templates.On("GetByID", ctx, int64(1)).Return(&model.Template{ID: 1, Status: model.TemplateSubmitted}, nil)

		tmpl, err := f.service.Submit(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.TemplateSubmitted, tmpl.Status)
	})

	t.Run("already submitted", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		submitted := *draft
		submitted.Status = model.TemplateSubmitted
		f.templates.On("GetByID", ctx, int64(1)).Return(&submitted, nil)

		_, err := f.service.Submit(ctx, 1)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		f.platform.AssertNotCalled(t, "SubmitTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("platform failure rolls the row back to rejected", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("GetByID", ctx, int64(1)).Return(draft, nil)
		f.phoneNumbers.On("GetByID", ctx, int64(5)).Return(&model.PhoneNumber{ID: 5, AccountID: 2}, nil)
		f.accounts.On("GetByID", ctx, int64(2)).Return(&model.BusinessAccount{ID: 2, PlatformID: "waba-2"}, nil)
		f.tokens.On("Open", ctx, int64(2)).Return("tok", nil)
		f.templates.On("MarkSubmitted", ctx, int64(1)).Return(nil)
		f.platform.On("SubmitTemplate", ctx, "tok", "waba-2", "welcome", "en_US", "utility", "Welcome!").Return("", errors.New("upstream unavailable"))
		f.templates.On("ApplyDecision", ctx, int64(1), false, mock.AnythingOfType("string")).Return(nil)

		_, err := f.service.Submit(ctx, 1)
		assert.Error(t, err)
		f.templates.AssertCalled(t, "ApplyDecision", ctx, int64(1), false, mock.AnythingOfType("string"))
	})
}

func TestTemplateService_ApplyDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("approval", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("ApplyDecision", ctx, int64(1), true, "").Return(nil)
		f.templates.On("GetByID", ctx, int64(1)).Return(&model.Template{ID: 1, Status: model.TemplateApproved}, nil)

		tmpl, err := f.service.ApplyDecision(ctx, 1, true, "")
		require.NoError(t, err)
		assert.Equal(t, model.TemplateApproved, tmpl.Status)
	})

	t.Run("double decision", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		f.templates.On("ApplyDecision", ctx, int64(1), false, "too promotional").Return(repository.ErrInvalidTransition)

		_, err := f.service.ApplyDecision(ctx, 1, false, "too promotional")
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})
}

func TestTemplateService_UpdateBody(t *testing.T) {
	ctx := context.Background()
	f := newTemplateServiceFixture(t)
	f.templates.On("UpdateBody", ctx, int64(1), "new body", model.TemplateCategoryMarketing).Return(repository.ErrInvalidTransition)

	_, err := f.service.UpdateBody(ctx, 1, "new body", model.TemplateCategoryMarketing)
	assert.ErrorIs(t, err, ErrTemplateNotDraft)
}
