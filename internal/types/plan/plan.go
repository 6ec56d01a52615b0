package plan

import "omniReceiptsAPI/internal/types/subscription"

// Plan is static catalog data: the canonical price (in base currency units)
// and duration for a paid tier. Paid amounts coming back from the gateway are
// in subunits (kobo), so AmountSubunits is what webhook validation compares.
type Plan struct {
	Type         subscription.Type `json:"planType"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	DurationDays int               `json:"durationDays"`
}

func (p Plan) AmountSubunits() int64 {
	return p.Amount * 100
}

var catalog = map[subscription.Type]Plan{
	subscription.TypeMonthly: {Type: subscription.TypeMonthly, Amount: 2000, Currency: "NGN", DurationDays: 30},
	subscription.TypeYearly:  {Type: subscription.TypeYearly, Amount: 20000, Currency: "NGN", DurationDays: 365},
}

// Lookup returns the catalog entry for a paid tier. The free tier has no
// catalog entry on purpose: nothing is ever paid for it.
func Lookup(t subscription.Type) (Plan, bool) {
	p, ok := catalog[t]
	return p, ok
}

func All() []Plan {
	return []Plan{
		catalog[subscription.TypeMonthly],
		catalog[subscription.TypeYearly],
	}
}
