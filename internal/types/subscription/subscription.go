package subscription

import "time"

type Type string

const (
	TypeFree    Type = "free"
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
)

func (t Type) Valid() bool {
	switch t {
	case TypeFree, TypeMonthly, TypeYearly:
		return true
	}
	return false
}

// Subscription is the single durable billing record per user. Free-tier rows
// carry a nil Expires; paid rows always carry a concrete expiry date.
type Subscription struct {
	UserID               string     `json:"userId" db:"user_id"`
	Type                 Type       `json:"subscriptionType" db:"subscription_type"`
	Expires              *time.Time `json:"subscriptionExpires" db:"subscription_expires"`
	PaymentVerified      bool       `json:"paymentVerified" db:"payment_verified"`
	LastPaymentReference *string    `json:"lastPaymentReference" db:"last_payment_reference"`
	LastPaymentDate      *time.Time `json:"lastPaymentDate" db:"last_payment_date"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
}

func (s *Subscription) Active(now time.Time) bool {
	if s.Type == TypeFree {
		return false
	}
	return s.Expires != nil && s.Expires.After(now)
}

type SweepResult struct {
	Success      bool   `json:"success"`
	Timestamp    string `json:"timestamp"`
	DurationMs   int64  `json:"duration_ms"`
	ExpiredFound int64  `json:"expired_subscriptions_found"`
	Message      string `json:"message"`
}
