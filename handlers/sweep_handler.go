package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"omniReceiptsAPI/internal/notification"
	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/middleware"
)

// SweepSchedule is the cron expression for the daily expiry sweep,
// midnight server time.
const SweepSchedule = "0 0 * * *"

type ExpirySweeper interface {
	SweepExpired(ctx context.Context) ([]string, error)
}

type SweepHandler struct {
	subscriptions ExpirySweeper
	notifications Notifier
}

func NewSweepHandler(subscriptions ExpirySweeper, notifications Notifier) *SweepHandler {
	return &SweepHandler{
		subscriptions: subscriptions,
		notifications: notifications,
	}
}

// HandleSweep downgrades all lapsed subscriptions. The route is guarded by
// CronAuthMiddleware; zero matches is a normal outcome, not an error.
func (h *SweepHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	result := h.Run(r.Context())

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	respondWithJSON(w, status, result)
}

// Run is shared between the HTTP route and the in-process cron schedule.
func (h *SweepHandler) Run(ctx context.Context) subscription.SweepResult {
	start := time.Now()

	userIDs, err := h.subscriptions.SweepExpired(ctx)
	if err != nil {
		log.Printf("Expiry sweep failed: %v", err)
		return subscription.SweepResult{
			Success:    false,
			Timestamp:  start.UTC().Format(time.RFC3339),
			DurationMs: time.Since(start).Milliseconds(),
			Message:    "sweep failed",
		}
	}

	middleware.RecordSweptSubscriptions(int64(len(userIDs)))

	if h.notifications != nil {
		for _, userID := range userIDs {
			if err := h.notifications.Notify(ctx, userID, notification.NotificationSubscriptionExpired,
				"Subscription expired",
				"Your paid plan has expired and your account is back on the free tier.",
				nil,
			); err != nil {
				log.Printf("Expiry sweep: notification failed for user %s: %v", userID, err)
			}
		}
	}

	result := subscription.SweepResult{
		Success:      true,
		Timestamp:    start.UTC().Format(time.RFC3339),
		DurationMs:   time.Since(start).Milliseconds(),
		ExpiredFound: int64(len(userIDs)),
		Message:      fmt.Sprintf("downgraded %d expired subscriptions", len(userIDs)),
	}

	log.Printf("Expiry sweep done: %d downgraded in %dms", result.ExpiredFound, result.DurationMs)
	return result
}
