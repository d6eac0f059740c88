package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/vault"
)

// MockRecordStore mocks the RecordStore interface
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Create(ctx context.Context, record model.DNSRecord) (model.DNSRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.DNSRecord), args.Error(1)
}

func (m *MockRecordStore) GetByID(ctx context.Context, userID string, id string) (model.DNSRecord, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.DNSRecord), args.Error(1)
}

func (m *MockRecordStore) GetByUserID(ctx context.Context, userID string) ([]model.DNSRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.DNSRecord), args.Error(1)
}

func (m *MockRecordStore) Delete(ctx context.Context, userID string, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockRecordStore) ApplySync(ctx context.Context, commit model.SyncCommit) error {
	args := m.Called(ctx, commit)
	return args.Error(0)
}

// MockCredentialStore mocks the CredentialStore interface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Create(ctx context.Context, credential model.ProviderCredential) (model.ProviderCredential, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialStore) GetByID(ctx context.Context, userID string, id uuid.UUID) (model.ProviderCredential, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialStore) GetLatest(ctx context.Context, userID string) (model.ProviderCredential, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialStore) GetByUserID(ctx context.Context, userID string) ([]model.ProviderCredential, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockAPIKeyStore mocks the APIKeyStore interface
type MockAPIKeyStore struct {
	mock.Mock
}

func (m *MockAPIKeyStore) Create(ctx context.Context, key model.APIKey) (model.APIKey, error) {
	args := m.Called(ctx, key)
	if fn, ok := args.Get(0).(func(context.Context, model.APIKey) model.APIKey); ok {
		return fn(ctx, key), args.Error(1)
	}
	return args.Get(0).(model.APIKey), args.Error(1)
}

func (m *MockAPIKeyStore) GetByPrefix(ctx context.Context, prefix string) (model.APIKey, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(model.APIKey), args.Error(1)
}

func (m *MockAPIKeyStore) GetByUserID(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *MockAPIKeyStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockDNSProvider mocks the DNSProvider interface
type MockDNSProvider struct {
	mock.Mock
}

func (m *MockDNSProvider) CreateRecord(ctx context.Context, token vault.Secret, zoneID string, record model.ProviderRecord) (string, error) {
	args := m.Called(ctx, token.Reveal(), zoneID, record)
	return args.String(0), args.Error(1)
}

func (m *MockDNSProvider) UpdateRecord(ctx context.Context, token vault.Secret, zoneID, recordID string, record model.ProviderRecord) error {
	args := m.Called(ctx, token.Reveal(), zoneID, recordID, record)
	return args.Error(0)
}

func (m *MockDNSProvider) DeleteRecord(ctx context.Context, token vault.Secret, zoneID, recordID string) error {
	args := m.Called(ctx, token.Reveal(), zoneID, recordID)
	return args.Error(0)
}

// MockKeyVerifier mocks the KeyVerifier interface
type MockKeyVerifier struct {
	mock.Mock
}

func (m *MockKeyVerifier) Verify(ctx context.Context, presented string) (model.APIKey, error) {
	args := m.Called(ctx, presented)
	return args.Get(0).(model.APIKey), args.Error(1)
}

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.NewFromHex(testEncryptionKey)
	require.NoError(t, err)
	return v
}

// sealedCredential returns a stored credential holding token.
func sealedCredential(t *testing.T, v *vault.Vault, userID, token string) model.ProviderCredential {
	t.Helper()
	sealed, err := v.Encrypt([]byte(token))
	require.NoError(t, err)
	return model.ProviderCredential{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "cloudflare",
		Nonce:      sealed.Nonce,
		Ciphertext: sealed.Ciphertext,
		Tag:        sealed.Tag,
	}
}
