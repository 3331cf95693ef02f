// Package payments executes refunds against the payment provider.
package payments

import (
	"context"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// refundAPI is the slice of the Razorpay payment resource used for refunds.
type refundAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayCollaborator refunds captured Razorpay payments.
type RazorpayCollaborator struct {
	api    refundAPI
	logger *zap.Logger
}

// NewRazorpayCollaborator creates a collaborator backed by the Razorpay SDK.
func NewRazorpayCollaborator(keyID, keySecret string, logger *zap.Logger) *RazorpayCollaborator {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayCollaborator{api: client.Payment, logger: logger}
}

// ExecuteRefund refunds amount against paymentRef and returns the Razorpay refund ID.
// idempotencyKey travels as the refund receipt so retries of one request are recognisable.
func (c *RazorpayCollaborator) ExecuteRefund(ctx context.Context, paymentRef string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	minor, err := toMinorUnits(amount)
	if err != nil {
		return "", err
	}

	data := map[string]interface{}{
		"speed":   "normal",
		"receipt": idempotencyKey,
		"notes": map[string]interface{}{
			"refund_request_id": idempotencyKey,
			"currency":          currency,
		},
	}
	resp, err := c.api.Refund(paymentRef, minor, data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund failed: %w", err)
	}

	refundID, ok := resp["id"].(string)
	if !ok || refundID == "" {
		return "", fmt.Errorf("razorpay refund response has no id")
	}
	c.logger.Info("refund executed",
		zap.String("payment_ref", paymentRef),
		zap.String("refund_id", refundID),
		zap.Int("amount_minor", minor),
	)
	return refundID, nil
}

// toMinorUnits converts a two-decimal amount to sen.
func toMinorUnits(amount decimal.Decimal) (int, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("refund amount must be positive, got %s", amount.String())
	}
	return int(amount.Shift(2).Round(0).IntPart()), nil
}
