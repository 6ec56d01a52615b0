package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/internal/types/user"
	"omniReceiptsAPI/middleware"
	"omniReceiptsAPI/services"
)

type UserHandler struct {
	userService   *services.UserService
	subscriptions SubscriptionStore
}

func NewUserHandler(userService *services.UserService, subscriptions SubscriptionStore) *UserHandler {
	return &UserHandler{
		userService:   userService,
		subscriptions: subscriptions,
	}
}

type profileResponse struct {
	User         *user.User                 `json:"user"`
	Subscription *subscription.Subscription `json:"subscription"`
}

// GetProfile returns the user together with their subscription record, so a
// completed upgrade shows up in the profile without a separate call.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	u, err := h.userService.GetUserByClerkID(r.Context(), clerkID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Profile lookup failed for clerk ID %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load profile")
		return
	}

	sub, err := h.subscriptions.GetByUserID(r.Context(), u.ID)
	if err != nil {
		log.Printf("Subscription lookup failed for user %s: %v", u.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profileResponse{User: u, Subscription: sub})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.UpdateProfile(r.Context(), clerkID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Profile update failed for clerk ID %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}
