package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cronProtected() (http.Handler, *int) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	return CronAuthMiddleware(next), &calls
}

func TestCronAuthAcceptsSharedSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	handler, calls := cronProtected()

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, *calls)
}

func TestCronAuthRejectsWrongSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	handler, calls := cronProtected()

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, *calls)
}

func TestCronAuthRejectsMissingHeader(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	handler, calls := cronProtected()

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, *calls)
}

func TestCronAuthLocksRouteWithoutServerSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	handler, calls := cronProtected()

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("Authorization", "Bearer ")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, *calls)
}
