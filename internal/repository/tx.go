package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// PostgreSQL error codes the repositories translate.
const (
	pgLockNotAvailable   = "55P03"
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

type txKey struct{}

// TxManager runs work inside one GORM transaction carried by the context.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise. Nested calls reuse the outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction in ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps PostgreSQL errors the domain understands and wraps the rest.
func translate(err error, op string) error {
	switch pgCode(err) {
	case pgExclusionViolation:
		return domain.NewSlotTakenError("this time slot was just taken, choose another time")
	case pgLockNotAvailable:
		return domain.NewLockTimeoutError("", err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
