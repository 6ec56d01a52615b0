package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/internal/types/user"
	"omniReceiptsAPI/middleware"
	"omniReceiptsAPI/services"
)

type UserGetter interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
}

type PaymentHandler struct {
	paystack    *services.PaystackService
	userService UserGetter
}

func NewPaymentHandler(paystack *services.PaystackService, userService UserGetter) *PaymentHandler {
	return &PaymentHandler{
		paystack:    paystack,
		userService: userService,
	}
}

// InitializePayment creates a gateway checkout and returns the hosted URL.
// Nothing is persisted here: the transaction only becomes durable once the
// webhook confirms it, so an abandoned checkout leaves no half-committed
// state behind.
func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req payment.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Amount <= 0 || req.PlanType == "" {
		respondWithError(w, http.StatusBadRequest, "email, amount and planType are required")
		return
	}

	planType := subscription.Type(req.PlanType)
	p, ok := plan.Lookup(planType)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown plan type")
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusUnauthorized, "Unknown user")
			return
		}
		log.Printf("InitializePayment: user lookup failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Payment processing error, please contact support")
		return
	}

	// The client-sent amount is informational only for the checkout page. The
	// gateway is told the catalog price, and the webhook re-validates against
	// the catalog before crediting anything.
	reference := services.GenerateReference()
	metadata := payment.WebhookMetadata{
		PlanType: string(p.Type),
		UserID:   u.ID,
	}

	authorizationURL, err := h.paystack.InitializeTransaction(ctx, req.Email, p.AmountSubunits(), reference, metadata)
	if err != nil {
		log.Printf("InitializePayment: gateway rejected transaction for user %s: %v", u.ID, err)
		respondWithError(w, http.StatusBadGateway, "Payment processing error, please contact support")
		return
	}

	respondWithJSON(w, http.StatusOK, payment.InitializeResponse{
		Status: true,
		Data: payment.InitializeData{
			AuthorizationURL: authorizationURL,
			Reference:        reference,
		},
	})
}
