package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniReceiptsAPI/internal/types/payment"
	"omniReceiptsAPI/internal/types/plan"
	"omniReceiptsAPI/internal/types/subscription"
)

func successEvent(planType string, amount int64) payment.WebhookEvent {
	return payment.WebhookEvent{
		Event: "charge.success",
		Data: payment.WebhookData{
			Reference: "OR-1700000000-abc123def456",
			Amount:    amount,
			Currency:  "NGN",
			Status:    "success",
			Metadata: payment.WebhookMetadata{
				PlanType: planType,
				UserID:   "user-1",
			},
		},
	}
}

func TestDecideAppliesMatchingCharge(t *testing.T) {
	monthly, ok := plan.Lookup(subscription.TypeMonthly)
	require.True(t, ok)

	d := Decide(successEvent("monthly", monthly.AmountSubunits()), false)

	assert.Equal(t, OutcomeApply, d.Outcome)
	assert.Equal(t, "user-1", d.UserID)
	assert.Equal(t, "OR-1700000000-abc123def456", d.Reference)
	assert.Equal(t, subscription.TypeMonthly, d.Plan.Type)
	assert.Equal(t, 30, d.Plan.DurationDays)
}

func TestDecideIgnoresOtherEvents(t *testing.T) {
	event := successEvent("monthly", 200000)
	event.Event = "charge.failed"

	d := Decide(event, false)

	assert.Equal(t, OutcomeIgnored, d.Outcome)
}

func TestDecideRejectsMissingMetadata(t *testing.T) {
	event := successEvent("monthly", 200000)
	event.Data.Metadata.UserID = ""

	d := Decide(event, false)

	assert.Equal(t, OutcomeBadRequest, d.Outcome)
}

func TestDecideRejectsMissingReference(t *testing.T) {
	event := successEvent("monthly", 200000)
	event.Data.Reference = ""

	d := Decide(event, false)

	assert.Equal(t, OutcomeBadRequest, d.Outcome)
}

func TestDecideRejectsNonSuccessStatus(t *testing.T) {
	event := successEvent("monthly", 200000)
	event.Data.Status = "abandoned"

	d := Decide(event, false)

	assert.Equal(t, OutcomeBadRequest, d.Outcome)
}

func TestDecideRejectsUnknownPlan(t *testing.T) {
	d := Decide(successEvent("platinum", 200000), false)

	assert.Equal(t, OutcomeBadRequest, d.Outcome)
}

func TestDecideRejectsAmountMismatch(t *testing.T) {
	// Monthly price paid against a yearly plan claim must not credit yearly.
	monthly, _ := plan.Lookup(subscription.TypeMonthly)

	d := Decide(successEvent("yearly", monthly.AmountSubunits()), false)

	assert.Equal(t, OutcomeAmountMismatch, d.Outcome)
}

func TestDecideShortCircuitsDuplicates(t *testing.T) {
	monthly, _ := plan.Lookup(subscription.TypeMonthly)

	d := Decide(successEvent("monthly", monthly.AmountSubunits()), true)

	assert.Equal(t, OutcomeDuplicate, d.Outcome)
	assert.Equal(t, "OR-1700000000-abc123def456", d.Reference)
}

func TestFreeTierHasNoCatalogEntry(t *testing.T) {
	_, ok := plan.Lookup(subscription.TypeFree)
	assert.False(t, ok)
}
