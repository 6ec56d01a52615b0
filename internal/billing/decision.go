// Package billing holds the webhook decision core: everything between
// signature verification and the database commit is a pure function here, so
// the charge-crediting rules can be tested without a live gateway or database.
package billing

import (
	"fmt"

	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/internal/types/subscription"
)

type Outcome string

const (
	// OutcomeIgnored and OutcomeDuplicate are acknowledged with 2xx and must
	// not mutate state; gateway retries make both routine.
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"

	OutcomeBadRequest     Outcome = "bad_request"
	OutcomeAmountMismatch Outcome = "amount_mismatch"
	OutcomeApply          Outcome = "apply"
)

type Decision struct {
	Outcome   Outcome
	Reason    string
	UserID    string
	Reference string
	Plan      plan.Plan
}

// Decide classifies a signature-verified gateway event. alreadyProcessed says
// whether a success transaction with this reference is already on record; the
// storage layer's unique constraint on reference remains the final arbiter
// under concurrent deliveries.
func Decide(event payment.WebhookEvent, alreadyProcessed bool) Decision {
	if event.Event != "charge.success" {
		return Decision{Outcome: OutcomeIgnored, Reason: fmt.Sprintf("event %q not handled", event.Event)}
	}

	d := event.Data
	if d.Reference == "" || d.Amount <= 0 || d.Metadata.PlanType == "" || d.Metadata.UserID == "" {
		return Decision{Outcome: OutcomeBadRequest, Reason: "missing reference, amount or metadata"}
	}
	if d.Status != payment.StatusSuccess {
		return Decision{Outcome: OutcomeBadRequest, Reason: fmt.Sprintf("charge status %q is not success", d.Status)}
	}

	planType := subscription.Type(d.Metadata.PlanType)
	p, ok := plan.Lookup(planType)
	if !ok {
		return Decision{Outcome: OutcomeBadRequest, Reason: fmt.Sprintf("unknown plan type %q", d.Metadata.PlanType)}
	}

	// Never trust the amount the client claimed at initialization; the paid
	// amount must equal the catalog price for the plan in the metadata.
	if d.Amount != p.AmountSubunits() {
		return Decision{
			Outcome: OutcomeAmountMismatch,
			Reason:  fmt.Sprintf("paid %d subunits, plan %s costs %d", d.Amount, p.Type, p.AmountSubunits()),
		}
	}

	if alreadyProcessed {
		return Decision{Outcome: OutcomeDuplicate, Reason: "reference already processed", Reference: d.Reference}
	}

	return Decision{
		Outcome:   OutcomeApply,
		UserID:    d.Metadata.UserID,
		Reference: d.Reference,
		Plan:      p,
	}
}
