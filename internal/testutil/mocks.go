package testutil

import (
	"context"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInviteService mocks the InviteService
type MockInviteService struct {
	mock.Mock
}

func (m *MockInviteService) Create(ctx context.Context, params services.CreateInviteParams) (*models.Invite, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockInviteService) ListPending(ctx context.Context, shopID string) ([]models.Invite, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invite), args.Error(1)
}

func (m *MockInviteService) Cancel(ctx context.Context, inviteID uuid.UUID, shopID string) error {
	args := m.Called(ctx, inviteID, shopID)
	return args.Error(0)
}

// MockAuditService mocks the AuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditService) Recent(ctx context.Context, shopID string, limit int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, shopID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

// MockProfileLister mocks ProfileService.ListByShop
type MockProfileLister struct {
	mock.Mock
}

func (m *MockProfileLister) ListByShop(ctx context.Context, shopID string) ([]models.Profile, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

// MockInviteMailer mocks EmailService
type MockInviteMailer struct {
	mock.Mock
}

func (m *MockInviteMailer) SendInvite(to, inviterName string, role models.Role, signInURL string) error {
	args := m.Called(to, inviterName, role, signInURL)
	return args.Error(0)
}

// MockSignInFlow mocks identity.Flow
type MockSignInFlow struct {
	mock.Mock
}

func (m *MockSignInFlow) Complete(ctx context.Context, state, code string) (uuid.UUID, *models.Actor, error) {
	args := m.Called(ctx, state, code)
	id, _ := args.Get(0).(uuid.UUID)
	if args.Get(1) == nil {
		return id, nil, args.Error(2)
	}
	return id, args.Get(1).(*models.Actor), args.Error(2)
}
