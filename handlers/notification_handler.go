package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"omniReceiptsAPI/internal/notification"
	"omniReceiptsAPI/middleware"
	"omniReceiptsAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	userService         UserGetter
}

func NewNotificationHandler(notificationService *services.NotificationService, userService UserGetter) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		userService:         userService,
	}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUserID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.notificationService.ListForUser(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Notification list failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not load notifications")
		return
	}

	if items == nil {
		items = []*notification.Notification{}
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUserID(w, r)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.notificationService.RegisterDevice(r.Context(), userID, req.Token, req.Platform); err != nil {
		log.Printf("Device registration failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not register device")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NotificationHandler) resolveUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
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
