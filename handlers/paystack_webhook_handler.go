package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"omniReceiptsAPI/internal/billing"
	"omniReceiptsAPI/internal/notification"
	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/middleware"
	"omniReceiptsAPI/services"
)

type BillingStore interface {
	HasSuccessfulTransaction(ctx context.Context, reference string) (bool, error)
	ApplyVerifiedPayment(ctx context.Context, userID, reference string, p plan.Plan, rawPayload json.RawMessage) (*payment.Transaction, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, t notification.NotificationType, title, message string, data map[string]any) error
}

type PaystackWebhookHandler struct {
	paystack      *services.PaystackService
	store         BillingStore
	notifications Notifier
}

func NewPaystackWebhookHandler(paystack *services.PaystackService, store BillingStore, notifications Notifier) *PaystackWebhookHandler {
	return &PaystackWebhookHandler{
		paystack:      paystack,
		store:         store,
		notifications: notifications,
	}
}

// HandlePaystackWebhook processes charge events from the gateway. The
// classification is done by billing.Decide; this handler only verifies the
// signature, feeds the decision and applies its outcome. Responses are plain
// text: the gateway only cares about the status code.
func (h *PaystackWebhookHandler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Unable to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("x-paystack-signature")
	if !h.paystack.VerifySignature(body, signature) {
		log.Printf("Paystack webhook with invalid signature from %s", r.RemoteAddr)
		middleware.RecordWebhookOutcome("unauthorized")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		middleware.RecordWebhookOutcome("malformed")
		http.Error(w, "Unable to parse JSON", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	alreadyProcessed := false
	if event.Event == "charge.success" && event.Data.Reference != "" {
		alreadyProcessed, err = h.store.HasSuccessfulTransaction(ctx, event.Data.Reference)
		if err != nil {
			log.Printf("Paystack webhook: idempotency check failed for %s: %v", event.Data.Reference, err)
			http.Error(w, "Processing error", http.StatusInternalServerError)
			return
		}
	}

	decision := billing.Decide(event, alreadyProcessed)
	middleware.RecordWebhookOutcome(string(decision.Outcome))

	switch decision.Outcome {
	case billing.OutcomeIgnored:
		log.Printf("Paystack webhook: %s", decision.Reason)
		fmt.Fprint(w, "OK")

	case billing.OutcomeDuplicate:
		log.Printf("Paystack webhook: duplicate delivery for %s", decision.Reference)
		fmt.Fprint(w, "OK")

	case billing.OutcomeBadRequest:
		log.Printf("Paystack webhook rejected: %s", decision.Reason)
		http.Error(w, "Invalid event", http.StatusBadRequest)

	case billing.OutcomeAmountMismatch:
		// Possible tampering or a mismatched plan; worth flagging for fraud
		// review, but no state changes.
		log.Printf("Paystack webhook amount mismatch: %s (reference %s)", decision.Reason, event.Data.Reference)
		http.Error(w, "Amount mismatch", http.StatusBadRequest)

	case billing.OutcomeApply:
		h.apply(ctx, w, decision, body)
	}
}

func (h *PaystackWebhookHandler) apply(ctx context.Context, w http.ResponseWriter, decision billing.Decision, rawPayload []byte) {
	txn, err := h.store.ApplyVerifiedPayment(ctx, decision.UserID, decision.Reference, decision.Plan, rawPayload)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateReference) {
			// A concurrent delivery committed first. Same as the read-detected
			// duplicate: acknowledge and move on.
			middleware.RecordWebhookOutcome("duplicate")
			fmt.Fprint(w, "OK")
			return
		}
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			log.Printf("Paystack webhook: payment %s for unknown user %s", decision.Reference, decision.UserID)
			http.Error(w, "Unknown user", http.StatusBadRequest)
			return
		}

		// The payment succeeded externally but was not credited. A 5xx makes
		// the gateway retry; the counter is the operator alert.
		log.Printf("ALERT: verified payment %s for user %s failed to persist: %v", decision.Reference, decision.UserID, err)
		middleware.RecordPaymentCommitFailure()
		http.Error(w, "Processing error", http.StatusInternalServerError)
		return
	}

	log.Printf("Subscription %s activated for user %s (reference %s)", decision.Plan.Type, decision.UserID, txn.Reference)

	if h.notifications != nil {
		if err := h.notifications.Notify(ctx, decision.UserID, notification.NotificationSubscriptionActivated,
			"Subscription active",
			fmt.Sprintf("Your %s plan is now active.", decision.Plan.Type),
			map[string]any{"reference": txn.Reference, "planType": string(decision.Plan.Type)},
		); err != nil {
			log.Printf("Paystack webhook: notification failed for user %s: %v", decision.UserID, err)
		}
	}

	fmt.Fprint(w, "OK")
}
