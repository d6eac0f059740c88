package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/dnskeeper/internal/ratelimit"
	"github.com/dtroode/dnskeeper/internal/testutil"
)

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (float64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(float64), args.Error(1)
}

func TestRateLimit_Handle(t *testing.T) {
	const key = "dgo_AbCdEfGhIjKl_0123456789abcdefghijABCDEFGHIJKL"

	tests := []struct {
		name          string
		header        string
		mockSetup     func(*MockLimiter)
		wantStatus    int
		wantCalled    bool
		wantRemaining string
	}{
		{
			name:   "under budget",
			header: "Bearer " + key,
			mockSetup: func(l *MockLimiter) {
				l.On("Allow", mock.Anything, "AbCdEfGhIjKl").Return(3.6, nil)
			},
			wantStatus:    http.StatusOK,
			wantCalled:    true,
			wantRemaining: "3",
		},
		{
			name:   "over budget",
			header: "Bearer " + key,
			mockSetup: func(l *MockLimiter) {
				l.On("Allow", mock.Anything, "AbCdEfGhIjKl").Return(0.4, ratelimit.ErrLimitExceeded)
			},
			wantStatus:    http.StatusTooManyRequests,
			wantRemaining: "0",
		},
		{
			name:   "redis unavailable fails open",
			header: "Bearer " + key,
			mockSetup: func(l *MockLimiter) {
				l.On("Allow", mock.Anything, "AbCdEfGhIjKl").Return(0.0, errors.New("dial tcp: refused"))
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "malformed key skips limiter",
			header:     "Bearer nonsense",
			mockSetup:  func(*MockLimiter) {},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := new(MockLimiter)
			tt.mockSetup(limiter)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			r := httptest.NewRequest(http.MethodPut, "/sync", nil)
			r.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			NewRateLimit(limiter, testutil.MakeNoopLogger()).Handle(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantRemaining, rec.Header().Get("RateLimit-Remaining"))
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			limiter.AssertExpectations(t)
		})
	}
}
