package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniReceiptsAPI/internal/types/user"
)

const testClerkSecret = "whsec_test_secret"

type fakeProvisioner struct {
	created  []*user.CreateUserRequest
	deleted  []string
	verified []string
}

func (f *fakeProvisioner) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	f.created = append(f.created, req)
	return &user.User{ID: "usr-db-1", ClerkID: req.ClerkID, Email: req.Email}, nil
}

func (f *fakeProvisioner) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	f.deleted = append(f.deleted, clerkID)
	return nil
}

func (f *fakeProvisioner) UpdateEmailVerification(ctx context.Context, clerkID string, v bool) error {
	f.verified = append(f.verified, clerkID)
	return nil
}

func signClerkBody(secret, svixID, svixTimestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s.%s.%s", svixID, svixTimestamp, string(body))))
	return "v1," + hex.EncodeToString(mac.Sum(nil))
}

func postClerkWebhook(handler *ClerkWebhookHandler, body []byte, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	if sign {
		req.Header.Set("svix-id", "msg_1")
		req.Header.Set("svix-timestamp", "1700000000")
		req.Header.Set("svix-signature", signClerkBody(testClerkSecret, "msg_1", "1700000000", body))
	}
	rr := httptest.NewRecorder()
	handler.HandleClerkWebhook(rr, req)
	return rr
}

func TestClerkWebhookProvisionsNewUser(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{
		"type": "user.created",
		"data": {
			"id": "clerk-abc",
			"username": "ada",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"email_addresses": [
				{"email_address": "ada@example.com", "verification": {"status": "verified"}}
			]
		}
	}`)

	rr := postClerkWebhook(handler, body, true)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, provisioner.created, 1)
	req := provisioner.created[0]
	assert.Equal(t, "clerk-abc", req.ClerkID)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "ada", req.Username)
	assert.Equal(t, "Ada", req.FirstName)
	assert.Equal(t, "Lovelace", req.LastName)

	// Verified primary address gets reflected onto the new record.
	assert.Equal(t, []string{"clerk-abc"}, provisioner.verified)
}

func TestClerkWebhookRejectsInvalidSignature(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{"type": "user.created", "data": {"id": "clerk-abc"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", "1700000000")
	req.Header.Set("svix-signature", "v1,"+hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)))
	rr := httptest.NewRecorder()
	handler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, provisioner.created, "no provisioning on a forged request")
}

func TestClerkWebhookRejectsMissingSignatureHeaders(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{"type": "user.created", "data": {"id": "clerk-abc"}}`)
	rr := postClerkWebhook(handler, body, false)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, provisioner.created)
}

func TestClerkWebhookSignatureCoversBody(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{"type": "user.created", "data": {"id": "clerk-abc"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader([]byte(`{"type": "user.created", "data": {"id": "clerk-evil"}}`)))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", "1700000000")
	req.Header.Set("svix-signature", signClerkBody(testClerkSecret, "msg_1", "1700000000", body))
	rr := httptest.NewRecorder()
	handler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, provisioner.created)
}

func TestClerkWebhookDeletesUser(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{"type": "user.deleted", "data": {"id": "clerk-abc"}}`)
	rr := postClerkWebhook(handler, body, true)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"clerk-abc"}, provisioner.deleted)
	assert.Empty(t, provisioner.created)
}

func TestClerkWebhookAcksUnhandledEvents(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkSecret)

	provisioner := &fakeProvisioner{}
	handler := NewClerkWebhookHandler(provisioner)

	body := []byte(`{"type": "session.created", "data": {"id": "sess-1"}}`)
	rr := postClerkWebhook(handler, body, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, provisioner.created)
	assert.Empty(t, provisioner.deleted)
}
