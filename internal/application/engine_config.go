package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// EngineConfig holds the admission and lifecycle tunables.
type EngineConfig struct {
	AdmissionGrace     time.Duration
	MaxDuration        time.Duration
	CheckInEarlyWindow time.Duration
	DwellCeiling       time.Duration
	NoShowGrace        time.Duration
	LockWait           time.Duration
	SweepBatchSize     int
	PlatformFeePercent decimal.Decimal
	Currency           string
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AdmissionGrace:     60 * time.Second,
		MaxDuration:        7 * 24 * time.Hour,
		CheckInEarlyWindow: 15 * time.Minute,
		DwellCeiling:       time.Hour,
		NoShowGrace:        30 * time.Minute,
		LockWait:           3 * time.Second,
		SweepBatchSize:     500,
		PlatformFeePercent: decimal.NewFromInt(10),
		Currency:           domain.CurrencyMYR,
	}
}
