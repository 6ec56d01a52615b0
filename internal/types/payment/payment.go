package payment

import (
	"encoding/json"
	"time"

	"omniReceiptsAPI/internal/types/subscription"
)

const StatusSuccess = "success"

// Transaction is one row of the append-only payment log. Reference is unique
// at the storage layer and doubles as the webhook idempotency key.
type Transaction struct {
	ID         string            `json:"id" db:"id"`
	Reference  string            `json:"reference" db:"reference"`
	UserID     string            `json:"userId" db:"user_id"`
	Amount     int64             `json:"amount" db:"amount"`
	Currency   string            `json:"currency" db:"currency"`
	PlanType   subscription.Type `json:"planType" db:"plan_type"`
	Status     string            `json:"status" db:"status"`
	RawPayload json.RawMessage   `json:"rawGatewayPayload,omitempty" db:"raw_gateway_payload"`
	VerifiedAt time.Time         `json:"verifiedAt" db:"verified_at"`
}

// WebhookEvent is Paystack's JSON envelope as delivered to the webhook
// endpoint. Amount is in subunits (kobo).
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Metadata  WebhookMetadata `json:"metadata"`
}

type WebhookMetadata struct {
	PlanType string `json:"plan_type"`
	UserID   string `json:"user_id"`
}

type InitializeRequest struct {
	Email    string `json:"email"`
	Amount   int64  `json:"amount"`
	PlanType string `json:"planType"`
}

type InitializeResponse struct {
	Status bool           `json:"status"`
	Data   InitializeData `json:"data"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}
