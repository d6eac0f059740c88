package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/testutil"
	"github.com/dtroode/dnskeeper/internal/vault"
)

func TestCredentialService_Create(t *testing.T) {
	v := newTestVault(t)

	tests := []struct {
		name      string
		token     string
		mockSetup func(*MockCredentialStore)
		wantErr   bool
		errIs     error
	}{
		{
			name:  "token is sealed before storing",
			token: "cf-token",
			mockSetup: func(store *MockCredentialStore) {
				store.On("Create", mock.Anything, mock.MatchedBy(func(c model.ProviderCredential) bool {
					secret, err := v.Decrypt(vault.Sealed{Nonce: c.Nonce, Ciphertext: c.Ciphertext, Tag: c.Tag})
					return err == nil && secret.Reveal() == "cf-token" &&
						c.UserID == "user-1" && c.Name == "main" && c.ID != uuid.Nil
				})).Return(model.ProviderCredential{ID: uuid.New(), UserID: "user-1", Name: "main"}, nil)
			},
		},
		{
			name:      "empty token",
			token:     "   ",
			mockSetup: func(store *MockCredentialStore) {},
			wantErr:   true,
			errIs:     model.ErrInvalidInput,
		},
		{
			name:  "store failure",
			token: "cf-token",
			mockSetup: func(store *MockCredentialStore) {
				store.On("Create", mock.Anything, mock.Anything).
					Return(model.ProviderCredential{}, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockCredentialStore)
			tt.mockSetup(store)

			s := NewCredential(store, v, testutil.MakeNoopLogger())
			got, err := s.Create(context.Background(), "user-1", "main", tt.token)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, "main", got.Name)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestCredentialService_Unseal(t *testing.T) {
	v := newTestVault(t)
	stored := sealedCredential(t, v, "user-1", "cf-token")

	t.Run("explicit id", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("GetByID", mock.Anything, "user-1", stored.ID).Return(stored, nil)

		s := NewCredential(store, v, testutil.MakeNoopLogger())
		got, secret, err := s.Unseal(context.Background(), "user-1", &stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		assert.Equal(t, "cf-token", secret.Reveal())
		store.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
	})

	t.Run("falls back to newest", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("GetLatest", mock.Anything, "user-1").Return(stored, nil)

		s := NewCredential(store, v, testutil.MakeNoopLogger())
		_, secret, err := s.Unseal(context.Background(), "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "cf-token", secret.Reveal())
	})

	t.Run("no credential", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("GetLatest", mock.Anything, "user-1").Return(model.ProviderCredential{}, model.ErrNotFound)

		s := NewCredential(store, v, testutil.MakeNoopLogger())
		_, _, err := s.Unseal(context.Background(), "user-1", nil)
		assert.ErrorIs(t, err, model.ErrNoCredential)
	})

	t.Run("tampered ciphertext fails closed", func(t *testing.T) {
		tampered := stored
		tampered.Ciphertext = append([]byte(nil), stored.Ciphertext...)
		tampered.Ciphertext[0] ^= 0x01

		store := new(MockCredentialStore)
		store.On("GetLatest", mock.Anything, "user-1").Return(tampered, nil)

		s := NewCredential(store, v, testutil.MakeNoopLogger())
		_, secret, err := s.Unseal(context.Background(), "user-1", nil)
		assert.ErrorIs(t, err, vault.ErrDecryptionFailure)
		assert.True(t, secret.IsZero())
	})
}

func TestCredentialService_ListAndDelete(t *testing.T) {
	v := newTestVault(t)
	id := uuid.New()

	store := new(MockCredentialStore)
	store.On("GetByUserID", mock.Anything, "user-1").
		Return([]model.ProviderCredential{{ID: id, UserID: "user-1"}}, nil)
	store.On("Delete", mock.Anything, "user-1", id).Return(nil).Once()
	store.On("Delete", mock.Anything, "user-1", id).Return(model.ErrNotFound).Once()

	s := NewCredential(store, v, testutil.MakeNoopLogger())

	list, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.NoError(t, s.Delete(context.Background(), "user-1", id))
	assert.ErrorIs(t, s.Delete(context.Background(), "user-1", id), model.ErrNotFound)
	store.AssertExpectations(t)
}
