package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniReceiptsAPI/internal/notification"
	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/middleware"
)

type fakeSweeper struct {
	expired []string
	err     error
	calls   int
}

func (f *fakeSweeper) SweepExpired(ctx context.Context) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.expired, nil
}

func TestSweepDowngradesExpired(t *testing.T) {
	sweeper := &fakeSweeper{expired: []string{"user-1", "user-2", "user-3"}}
	notifier := &fakeNotifier{}
	handler := NewSweepHandler(sweeper, notifier)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/expire-subscriptions", nil)
	rr := httptest.NewRecorder()
	handler.HandleSweep(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var result subscription.SweepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, int64(3), result.ExpiredFound)
	assert.NotEmpty(t, result.Timestamp)

	// Every downgraded user gets told about it.
	assert.Equal(t, []notification.NotificationType{
		notification.NotificationSubscriptionExpired,
		notification.NotificationSubscriptionExpired,
		notification.NotificationSubscriptionExpired,
	}, notifier.sent)
}

func TestSweepWithNoMatchesSucceeds(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := NewSweepHandler(sweeper, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/expire-subscriptions", nil)
	rr := httptest.NewRecorder()
	handler.HandleSweep(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var result subscription.SweepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, int64(0), result.ExpiredFound)
}

func TestSweepReportsFailure(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	handler := NewSweepHandler(sweeper, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/expire-subscriptions", nil)
	rr := httptest.NewRecorder()
	handler.HandleSweep(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSweepScheduleParses(t *testing.T) {
	_, err := cron.ParseStandard(SweepSchedule)
	assert.NoError(t, err, "daily sweep must be schedulable")
}

func TestSweepRouteRequiresCronSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "cron-secret-123")

	sweeper := &fakeSweeper{expired: []string{"user-1"}}
	handler := NewSweepHandler(sweeper, nil)
	guarded := middleware.CronAuthMiddleware(http.HandlerFunc(handler.HandleSweep))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/expire-subscriptions", nil)
	req.Header.Set("Authorization", "Bearer wrong-secret")
	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, sweeper.calls, "no scan without the shared secret")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cron/expire-subscriptions", nil)
	req.Header.Set("Authorization", "Bearer cron-secret-123")
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, sweeper.calls)
}
