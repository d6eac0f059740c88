package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/testutil"
)

func TestRecordService_Create(t *testing.T) {
	v := newTestVault(t)
	cred := sealedCredential(t, v, "user-1", "cf-token")

	baseParams := model.CreateRecordParams{
		UserID:  "user-1",
		ZoneID:  "zone1",
		Name:    "home.example.com",
		Content: "1.2.3.4",
	}

	tests := []struct {
		name      string
		params    func() model.CreateRecordParams
		mockSetup func(*MockRecordStore, *MockCredentialStore, *MockDNSProvider)
		wantErr   error
	}{
		{
			name:   "created at provider then stored",
			params: func() model.CreateRecordParams { return baseParams },
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				creds.On("GetLatest", mock.Anything, "user-1").Return(cred, nil)
				provider.On("CreateRecord", mock.Anything, "cf-token", "zone1", model.ProviderRecord{
					Type: "A", Name: "home.example.com", Content: "1.2.3.4", TTL: 1,
				}).Return("cf-rec-1", nil)
				records.On("Create", mock.Anything, mock.MatchedBy(func(r model.DNSRecord) bool {
					return r.ID == "cf-rec-1" && r.CredentialID != nil && *r.CredentialID == cred.ID && r.TTL == 1
				})).Return(model.DNSRecord{ID: "cf-rec-1", UserID: "user-1"}, nil)
			},
		},
		{
			name: "explicit credential",
			params: func() model.CreateRecordParams {
				p := baseParams
				p.CredentialID = &cred.ID
				p.Type = "AAAA"
				p.Content = "2001:DB8:0:0::1"
				p.TTL = 300
				return p
			},
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				creds.On("GetByID", mock.Anything, "user-1", cred.ID).Return(cred, nil)
				provider.On("CreateRecord", mock.Anything, "cf-token", "zone1", model.ProviderRecord{
					Type: "AAAA", Name: "home.example.com", Content: "2001:db8::1", TTL: 300,
				}).Return("cf-rec-2", nil)
				records.On("Create", mock.Anything, mock.Anything).Return(model.DNSRecord{ID: "cf-rec-2"}, nil)
			},
		},
		{
			name: "content does not match type",
			params: func() model.CreateRecordParams {
				p := baseParams
				p.Content = "2001:db8::1"
				return p
			},
			mockSetup: func(*MockRecordStore, *MockCredentialStore, *MockDNSProvider) {},
			wantErr:   model.ErrInvalidInput,
		},
		{
			name: "missing name",
			params: func() model.CreateRecordParams {
				p := baseParams
				p.Name = ""
				return p
			},
			mockSetup: func(*MockRecordStore, *MockCredentialStore, *MockDNSProvider) {},
			wantErr:   model.ErrInvalidInput,
		},
		{
			name:   "no credential",
			params: func() model.CreateRecordParams { return baseParams },
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				creds.On("GetLatest", mock.Anything, "user-1").Return(model.ProviderCredential{}, model.ErrNotFound)
			},
			wantErr: model.ErrNoCredential,
		},
		{
			name:   "provider rejects",
			params: func() model.CreateRecordParams { return baseParams },
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				creds.On("GetLatest", mock.Anything, "user-1").Return(cred, nil)
				provider.On("CreateRecord", mock.Anything, "cf-token", "zone1", mock.Anything).
					Return("", model.ErrProviderRejected)
			},
			wantErr: model.ErrProviderRejected,
		},
		{
			name:   "store failure removes provider record",
			params: func() model.CreateRecordParams { return baseParams },
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				creds.On("GetLatest", mock.Anything, "user-1").Return(cred, nil)
				provider.On("CreateRecord", mock.Anything, "cf-token", "zone1", mock.Anything).Return("cf-rec-1", nil)
				records.On("Create", mock.Anything, mock.Anything).Return(model.DNSRecord{}, model.ErrConflict)
				provider.On("DeleteRecord", mock.Anything, "cf-token", "zone1", "cf-rec-1").Return(nil)
			},
			wantErr: model.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := new(MockRecordStore)
			creds := new(MockCredentialStore)
			provider := new(MockDNSProvider)
			tt.mockSetup(records, creds, provider)

			noop := testutil.MakeNoopLogger()
			s := NewRecord(records, NewCredential(creds, v, noop), provider, noop)
			_, err := s.Create(context.Background(), tt.params())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			records.AssertExpectations(t)
			creds.AssertExpectations(t)
			provider.AssertExpectations(t)
		})
	}
}

func TestRecordService_Delete(t *testing.T) {
	v := newTestVault(t)
	cred := sealedCredential(t, v, "user-1", "cf-token")
	record := model.DNSRecord{ID: "cf-rec-1", UserID: "user-1", ZoneID: "zone1", CredentialID: &cred.ID}

	tests := []struct {
		name      string
		mockSetup func(*MockRecordStore, *MockCredentialStore, *MockDNSProvider)
		wantErr   error
	}{
		{
			name: "deleted at provider and locally",
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				records.On("GetByID", mock.Anything, "user-1", "cf-rec-1").Return(record, nil)
				creds.On("GetByID", mock.Anything, "user-1", cred.ID).Return(cred, nil)
				provider.On("DeleteRecord", mock.Anything, "cf-token", "zone1", "cf-rec-1").Return(nil)
				records.On("Delete", mock.Anything, "user-1", "cf-rec-1").Return(nil)
			},
		},
		{
			name: "already gone at provider",
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				records.On("GetByID", mock.Anything, "user-1", "cf-rec-1").Return(record, nil)
				creds.On("GetByID", mock.Anything, "user-1", cred.ID).Return(cred, nil)
				provider.On("DeleteRecord", mock.Anything, "cf-token", "zone1", "cf-rec-1").
					Return(errors.Join(model.ErrProviderRejected, model.ErrNotFound))
				records.On("Delete", mock.Anything, "user-1", "cf-rec-1").Return(nil)
			},
		},
		{
			name: "provider unreachable keeps local record",
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				records.On("GetByID", mock.Anything, "user-1", "cf-rec-1").Return(record, nil)
				creds.On("GetByID", mock.Anything, "user-1", cred.ID).Return(cred, nil)
				provider.On("DeleteRecord", mock.Anything, "cf-token", "zone1", "cf-rec-1").
					Return(model.ErrProviderUnreachable)
			},
			wantErr: model.ErrProviderUnreachable,
		},
		{
			name: "credential removed",
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				orphan := record
				orphan.CredentialID = nil
				records.On("GetByID", mock.Anything, "user-1", "cf-rec-1").Return(orphan, nil)
				creds.On("GetLatest", mock.Anything, "user-1").Return(model.ProviderCredential{}, model.ErrNotFound)
				records.On("Delete", mock.Anything, "user-1", "cf-rec-1").Return(nil)
			},
		},
		{
			name: "other user's record",
			mockSetup: func(records *MockRecordStore, creds *MockCredentialStore, provider *MockDNSProvider) {
				records.On("GetByID", mock.Anything, "user-1", "cf-rec-1").Return(model.DNSRecord{}, model.ErrNotFound)
			},
			wantErr: model.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := new(MockRecordStore)
			creds := new(MockCredentialStore)
			provider := new(MockDNSProvider)
			tt.mockSetup(records, creds, provider)

			noop := testutil.MakeNoopLogger()
			s := NewRecord(records, NewCredential(creds, v, noop), provider, noop)
			err := s.Delete(context.Background(), "user-1", "cf-rec-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				records.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			records.AssertExpectations(t)
			provider.AssertExpectations(t)
		})
	}
}

func TestRecordService_List(t *testing.T) {
	records := new(MockRecordStore)
	records.On("GetByUserID", mock.Anything, "user-1").
		Return([]model.DNSRecord{{ID: "a"}, {ID: "b"}}, nil)

	noop := testutil.MakeNoopLogger()
	s := NewRecord(records, NewCredential(new(MockCredentialStore), newTestVault(t), noop), new(MockDNSProvider), noop)

	got, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCanonicalAddress(t *testing.T) {
	tests := []struct {
		recordType string
		content    string
		want       string
		ok         bool
	}{
		{"A", "1.2.3.4", "1.2.3.4", true},
		{"A", "2001:db8::1", "", false},
		{"A", "::ffff:1.2.3.4", "", false},
		{"AAAA", "2001:db8::1", "2001:db8::1", true},
		{"AAAA", "2001:DB8:0:0::1", "2001:db8::1", true},
		{"AAAA", "fe80::1%eth0", "", false},
		{"AAAA", "::ffff:1.2.3.4", "", false},
		{"AAAA", "1.2.3.4", "", false},
		{"A", "not-an-ip", "", false},
		{"A", "", "", false},
		{"CNAME", "1.2.3.4", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.recordType+"/"+tt.content, func(t *testing.T) {
			got, err := canonicalAddress(tt.recordType, tt.content)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				assert.ErrorIs(t, err, model.ErrInvalidInput)
			}
		})
	}
}
