package gateway

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// WebhookEventType identifies the family of a gateway notification.
type WebhookEventType string

const (
	WebhookEventTransaction WebhookEventType = "transaction"
	WebhookEventSchedule    WebhookEventType = "schedule"
)

// Webhook transaction event names emitted by the gateway.
const (
	WebhookTransactionApproved = "transaction.approved"
	WebhookTransactionDeclined = "transaction.declined"
	WebhookTransactionRefunded = "transaction.refunded"
	WebhookScheduleFinished    = "schedule.finished"
	WebhookScheduleFailed      = "schedule.failed"
)

// WebhookEnvelope is the outer shape of every inbound gateway notification.
// The data block carries gateway-side amounts in major units; ParseWebhook
// converts them to minor units along with the rest of the payload.
type WebhookEnvelope struct {
	ID        string           `json:"id"`
	Type      WebhookEventType `json:"type"`
	Event     string           `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      WebhookData      `json:"data"`
}

// WebhookData is the event payload. Transaction events always carry a
// transaction; schedule_id and custom_fields are present when the gateway
// knows them (scheduled runs carry schedule_id, one-off charges carry the
// custom fields given at charge time).
type WebhookData struct {
	Transaction  *WebhookTransaction `json:"transaction,omitempty"`
	ScheduleID   string              `json:"schedule_id,omitempty"`
	CustomFields map[string]string   `json:"custom_fields,omitempty"`
}

type WebhookTransaction struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// ParseWebhook decodes a raw webhook body into its envelope.
func ParseWebhook(payload []byte) (*WebhookEnvelope, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	if envelope.ID == "" || envelope.Event == "" {
		return nil, ierr.NewError("webhook payload missing id or event").
			WithHint("Every gateway notification must carry an id and an event name").
			Mark(ierr.ErrValidation)
	}
	return &envelope, nil
}

// TransactionAmount returns the event's transaction amount in minor units,
// or zero when the event carries no transaction.
func (e *WebhookEnvelope) TransactionAmount() types.Money {
	if e.Data.Transaction == nil {
		return 0
	}
	return types.MoneyFromMajorUnits(e.Data.Transaction.Amount)
}
