package reservation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricingStrategy turns a rate and a time range into reservation amounts.
type PricingStrategy interface {
	Quote(params PricingParams) (Quote, error)
}

// PricingParams holds the inputs for a quote.
type PricingParams struct {
	HourlyRate decimal.Decimal
	Start      time.Time
	End        time.Time
}

// Quote is the priced outcome of a reservation.
type Quote struct {
	Total       decimal.Decimal
	PlatformFee decimal.Decimal
}

// StandardPricingStrategy bills the hourly rate pro rata by the minute and takes
// a fixed percentage of the total as the platform fee.
type StandardPricingStrategy struct {
	feePercent decimal.Decimal
}

// NewStandardPricingStrategy creates a StandardPricingStrategy with the given fee percentage.
func NewStandardPricingStrategy(feePercent decimal.Decimal) *StandardPricingStrategy {
	return &StandardPricingStrategy{feePercent: feePercent}
}

// Quote computes total = rate × hours and fee = total × feePercent / 100, both rounded to cents.
func (s *StandardPricingStrategy) Quote(params PricingParams) (Quote, error) {
	if params.HourlyRate.IsNegative() {
		return Quote{}, fmt.Errorf("hourly rate cannot be negative")
	}
	if !params.End.After(params.Start) {
		return Quote{}, fmt.Errorf("end must be after start")
	}

	minutes := decimal.NewFromInt(int64(params.End.Sub(params.Start) / time.Minute))
	hours := minutes.Div(decimal.NewFromInt(60))
	total := params.HourlyRate.Mul(hours).Round(2)
	fee := total.Mul(s.feePercent).Div(decimal.NewFromInt(100)).Round(2)

	return Quote{Total: total, PlatformFee: fee}, nil
}
