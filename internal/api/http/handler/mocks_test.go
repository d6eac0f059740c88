package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/dnskeeper/internal/model"
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) Create(ctx context.Context, params model.CreateRecordParams) (model.DNSRecord, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.DNSRecord), args.Error(1)
}

func (m *MockRecordService) List(ctx context.Context, userID string) ([]model.DNSRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.DNSRecord), args.Error(1)
}

func (m *MockRecordService) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockCredentialService struct {
	mock.Mock
}

func (m *MockCredentialService) Create(ctx context.Context, userID, name, token string) (model.ProviderCredential, error) {
	args := m.Called(ctx, userID, name, token)
	return args.Get(0).(model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialService) List(ctx context.Context, userID string) ([]model.ProviderCredential, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) Issue(ctx context.Context, userID, name, recordID string) (model.IssuedAPIKey, error) {
	args := m.Called(ctx, userID, name, recordID)
	return args.Get(0).(model.IssuedAPIKey), args.Error(1)
}

func (m *MockAPIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Sync(ctx context.Context, req model.SyncRequest) (model.SyncOutcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.SyncOutcome), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
