package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/internal/types/subscription"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDuplicateReference   = errors.New("payment reference already recorded")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

const pgUniqueViolation = "23505"

type SubscriptionService struct {
	db *pgxpool.Pool
}

func NewSubscriptionService(db *pgxpool.Pool) *SubscriptionService {
	return &SubscriptionService{db: db}
}

func (s *SubscriptionService) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	query := `
	SELECT user_id, subscription_type, subscription_expires, payment_verified, last_payment_reference, last_payment_date, created_at, updated_at
	FROM subscriptions
	WHERE user_id = $1
	`

	sub := &subscription.Subscription{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&sub.UserID, &sub.Type, &sub.Expires, &sub.PaymentVerified,
		&sub.LastPaymentReference, &sub.LastPaymentDate, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) HasSuccessfulTransaction(ctx context.Context, reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_transactions WHERE reference = $1 AND status = $2)`

	if err := s.db.QueryRow(ctx, query, reference, payment.StatusSuccess).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}

	return exists, nil
}

// ApplyVerifiedPayment records the transaction and promotes the subscription
// as one unit. The transaction log insert goes first: if it fails, no access
// is granted without a paper trail. A unique violation on reference means a
// concurrent delivery already won; callers treat that as a duplicate, not an
// error.
func (s *SubscriptionService) ApplyVerifiedPayment(ctx context.Context, userID, reference string, p plan.Plan, rawPayload json.RawMessage) (*payment.Transaction, error) {
	now := time.Now()

	txn := &payment.Transaction{
		ID:         uuid.New().String(),
		Reference:  reference,
		UserID:     userID,
		Amount:     p.AmountSubunits(),
		Currency:   p.Currency,
		PlanType:   p.Type,
		Status:     payment.StatusSuccess,
		RawPayload: rawPayload,
		VerifiedAt: now,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
	INSERT INTO payment_transactions (id, reference, user_id, amount, currency, plan_type, status, raw_gateway_payload, verified_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if _, err := tx.Exec(ctx, insertQuery,
		txn.ID, txn.Reference, txn.UserID, txn.Amount, txn.Currency,
		txn.PlanType, txn.Status, txn.RawPayload, txn.VerifiedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("failed to record payment transaction: %w", err)
	}

	expires := now.AddDate(0, 0, p.DurationDays)

	updateQuery := `
	UPDATE subscriptions
	SET subscription_type = $1, subscription_expires = $2, payment_verified = true,
	    last_payment_reference = $3, last_payment_date = $4, updated_at = $4
	WHERE user_id = $5
	`

	tag, err := tx.Exec(ctx, updateQuery, p.Type, expires, reference, now, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSubscriptionNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return txn, nil
}

// SweepExpired downgrades every lapsed paid subscription in a single
// conditional UPDATE and returns the affected user IDs. The expiry condition
// is re-checked at write time, so a concurrent webhook upgrade that pushed
// the expiry forward is left alone.
func (s *SubscriptionService) SweepExpired(ctx context.Context) ([]string, error) {
	query := `
	UPDATE subscriptions
	SET subscription_type = $1, subscription_expires = NULL, payment_verified = false, updated_at = $2
	WHERE subscription_type <> $1 AND subscription_expires < $2
	RETURNING user_id
	`

	rows, err := s.db.Query(ctx, query, subscription.TypeFree, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired subscriptions: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan swept user: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	return userIDs, rows.Err()
}

// Downgrade is the explicit self-serve path back to the free tier.
func (s *SubscriptionService) Downgrade(ctx context.Context, userID string) error {
	query := `
	UPDATE subscriptions
	SET subscription_type = $1, subscription_expires = NULL, payment_verified = false, updated_at = $2
	WHERE user_id = $3
	`

	tag, err := s.db.Exec(ctx, query, subscription.TypeFree, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to downgrade subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}

	log.Printf("Subscription downgraded for user %s", userID)
	return nil
}

func (s *SubscriptionService) ListTransactions(ctx context.Context, userID string, limit int) ([]*payment.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT id, reference, user_id, amount, currency, plan_type, status, verified_at
	FROM payment_transactions
	WHERE user_id = $1
	ORDER BY verified_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*payment.Transaction
	for rows.Next() {
		t := &payment.Transaction{}
		if err := rows.Scan(&t.ID, &t.Reference, &t.UserID, &t.Amount, &t.Currency, &t.PlanType, &t.Status, &t.VerifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}

	return txns, rows.Err()
}
