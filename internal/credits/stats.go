package credits

import (
	"time"

	"github.com/shopspring/decimal"
)

// computeTotalValue is quantity × price. The product is exact in decimal and
// converted back without rounding.
func computeTotalValue(quantity, price float64) float64 {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(price)).
		InexactFloat64()
}

// ComputeStats aggregates records in a single pass. Issued credits count as
// available.
func ComputeStats(records []CreditRecord, now time.Time) PortfolioStats {
	total := decimal.Zero
	available := decimal.Zero
	retired := decimal.Zero
	value := decimal.Zero

	for _, r := range records {
		qty := decimal.NewFromFloat(r.Quantity)
		total = total.Add(qty)
		value = value.Add(decimal.NewFromFloat(r.TotalValue))

		switch r.Status {
		case StatusAvailable, StatusIssued:
			available = available.Add(qty)
		case StatusRetired:
			retired = retired.Add(qty)
		}
	}

	return PortfolioStats{
		TotalCredits:     total.InexactFloat64(),
		AvailableCredits: available.InexactFloat64(),
		RetiredCredits:   retired.InexactFloat64(),
		TotalValue:       value.InexactFloat64(),
		RecordCount:      len(records),
		ComputedAt:       now,
	}
}
