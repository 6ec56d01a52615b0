package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/middleware"
	"omniReceiptsAPI/services"
)

type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error)
	Downgrade(ctx context.Context, userID string) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]*payment.Transaction, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionStore
	userService   UserGetter
}

func NewSubscriptionHandler(subscriptions SubscriptionStore, userService UserGetter) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		userService:   userService,
	}
}

func (h *SubscriptionHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, plan.All())
}

func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.resolveSubscription(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Downgrade(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.resolveSubscription(w, r)
	if !ok {
		return
	}

	if err := h.subscriptions.Downgrade(r.Context(), sub.UserID); err != nil {
		log.Printf("Downgrade failed for user %s: %v", sub.UserID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not downgrade subscription")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Subscription downgraded to free"})
}

func (h *SubscriptionHandler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUserID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txns, err := h.subscriptions.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Payment history lookup failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load payment history")
		return
	}

	if txns == nil {
		txns = []*payment.Transaction{}
	}
	respondWithJSON(w, http.StatusOK, txns)
}

func (h *SubscriptionHandler) resolveUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}

	u, err := h.userService.GetUserByClerkID(r.Context(), clerkID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return "", false
		}
		log.Printf("User lookup failed for clerk ID %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load user")
		return "", false
	}

	return u.ID, true
}

func (h *SubscriptionHandler) resolveSubscription(w http.ResponseWriter, r *http.Request) (*subscription.Subscription, bool) {
	userID, ok := h.resolveUserID(w, r)
	if !ok {
		return nil, false
	}

	sub, err := h.subscriptions.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			respondWithError(w, http.StatusNotFound, "Subscription not found")
			return nil, false
		}
		log.Printf("Subscription lookup failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load subscription")
		return nil, false
	}

	return sub, true
}
