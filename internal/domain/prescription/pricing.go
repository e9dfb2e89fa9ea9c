package prescription

import "github.com/shopspring/decimal"

// Pricing holds the defaults applied when a prescription has no fee or tax
// rate of its own at payment time.
type Pricing struct {
	ConsultationFee decimal.Decimal
	PPNRate         decimal.Decimal
}

// DefaultPricing is 50000 consultation fee and 11% PPN.
var DefaultPricing = Pricing{
	ConsultationFee: decimal.NewFromInt(50000),
	PPNRate:         decimal.RequireFromString("0.11"),
}

// Totals is the payment breakdown of a prescription.
type Totals struct {
	MedicinesSubtotal decimal.Decimal
	ConsultationFee   decimal.Decimal
	PPNRate           decimal.Decimal
	Subtotal          decimal.Decimal
	PPNAmount         decimal.Decimal
	Total             decimal.Decimal
}

// MedicinesSubtotal sums price times quantity over items.
func MedicinesSubtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// ComputeTotals prices items. A fee or rate already recorded on the
// prescription wins over the Pricing default, including a recorded zero.
// PPN is rounded to two decimals.
func ComputeTotals(items []Item, fee, rate decimal.NullDecimal, p Pricing) Totals {
	t := Totals{
		MedicinesSubtotal: MedicinesSubtotal(items),
		ConsultationFee:   p.ConsultationFee,
		PPNRate:           p.PPNRate,
	}
	if fee.Valid {
		t.ConsultationFee = fee.Decimal
	}
	if rate.Valid {
		t.PPNRate = rate.Decimal
	}
	t.Subtotal = t.MedicinesSubtotal.Add(t.ConsultationFee)
	t.PPNAmount = t.Subtotal.Mul(t.PPNRate).Round(2)
	t.Total = t.Subtotal.Add(t.PPNAmount)
	return t
}
