package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omniReceiptsAPI/internal/types/subscription"
	"omniReceiptsAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// CreateUser inserts the user row and its default free subscription in one
// transaction. Every user carries a subscription record from signup on.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:        uuid.New().String(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Currency:  "NGN",
		Locale:    "en-NG",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, currency, locale, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := tx.Exec(ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName,
		u.Currency, u.Locale, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	subQuery := `
	INSERT INTO subscriptions (user_id, subscription_type, subscription_expires, payment_verified, created_at, updated_at)
	VALUES ($1, $2, NULL, false, $3, $3)
	`

	if _, err := tx.Exec(ctx, subQuery, u.ID, subscription.TypeFree, u.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create default subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, business_name, currency, locale, email_verified, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.BusinessName, &u.Currency, &u.Locale, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET username = COALESCE(NULLIF($1, ''), username),
	    first_name = COALESCE(NULLIF($2, ''), first_name),
	    last_name = COALESCE(NULLIF($3, ''), last_name),
	    business_name = COALESCE(NULLIF($4, ''), business_name),
	    currency = COALESCE(NULLIF($5, ''), currency),
	    locale = COALESCE(NULLIF($6, ''), locale),
	    updated_at = $7
	WHERE clerk_id = $8
	`

	tag, err := s.db.Exec(ctx, query,
		req.Username, req.FirstName, req.LastName, req.BusinessName,
		req.Currency, req.Locale, time.Now(), clerkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByClerkID(ctx, clerkID)
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	query := `UPDATE users SET email_verified = $1, updated_at = $2 WHERE clerk_id = $3`

	if _, err := s.db.Exec(ctx, query, verified, time.Now(), clerkID); err != nil {
		return fmt.Errorf("failed to update email verification: %w", err)
	}

	return nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
