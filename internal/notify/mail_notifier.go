package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/parkwise/service-reservation/internal/events/schema"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

var refundRequestedTemplate = template.Must(template.New("refund_requested").Parse(`<p>A refund request is waiting for review.</p>
<ul>
  <li>Refund request: {{.refund_request_id}}</li>
  <li>Reservation: {{.reservation_id}}</li>
  <li>Amount: {{.amount}} {{.currency}}</li>
  <li>Reason: {{.reason}}</li>
</ul>`))

// OpsMailNotifier emails the operations mailbox when a refund request enters the review queue.
// Every other event type is ignored.
type OpsMailNotifier struct {
	sender mailSender
	from   string
	to     string
	logger *zap.Logger
}

// NewOpsMailNotifier creates a notifier that sends through the given SMTP server.
func NewOpsMailNotifier(cfg SMTPConfig, opsAddress string, logger *zap.Logger) *OpsMailNotifier {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &OpsMailNotifier{
		sender: dialer,
		from:   cfg.From,
		to:     opsAddress,
		logger: logger,
	}
}

// Notify sends one mail per refund.requested event. userID is the requesting seeker.
func (n *OpsMailNotifier) Notify(_ context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error {
	if eventType != schema.RefundRequested {
		return nil
	}

	var body bytes.Buffer
	if err := refundRequestedTemplate.Execute(&body, payload); err != nil {
		return fmt.Errorf("failed to render refund mail: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", n.to)
	msg.SetHeader("Subject", fmt.Sprintf("Refund request %v needs review", payload["refund_request_id"]))
	msg.SetBody("text/html", body.String())

	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send refund mail: %w", err)
	}
	n.logger.Info("refund review mail sent",
		zap.String("to", n.to),
		zap.String("seeker_id", userID.String()),
	)
	return nil
}
