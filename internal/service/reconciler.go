package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/samber/lo"
	"github.com/subcycle/subcycle/internal/cache"
	"github.com/subcycle/subcycle/internal/domain/order"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/types"
)

// CustomFieldOrderLines is the transaction custom field carrying the
// comma-joined order line ids of a schedule-less charge.
const CustomFieldOrderLines = "order_line_ids"

// WebhookReconciler turns raw gateway notifications into domain events. It
// is the only component that reads webhook payloads; everything downstream
// sees TransactionReceivedEvent.
type WebhookReconciler interface {
	// VerifySignature checks the HMAC-SHA256 hex signature over the exact
	// raw request body. Must run before any parsing.
	VerifySignature(rawBody []byte, signature string) error

	// ResolveOrderLines maps a webhook event to local order lines, first by
	// schedule id membership in correlation tokens, then by the line-id
	// custom field. An unmatched event resolves to an empty slice.
	ResolveOrderLines(ctx context.Context, envelope *gateway.WebhookEnvelope) ([]*order.Line, error)

	// Reconcile processes one raw webhook delivery: parse, filter, resolve,
	// and emit exactly one TransactionReceivedEvent per (event, line) pair
	// across all deliveries of the same event.
	Reconcile(ctx context.Context, payload []byte) error
}

type webhookReconciler struct {
	ServiceParams
}

// NewWebhookReconciler creates a new webhook reconciler.
func NewWebhookReconciler(params ServiceParams) WebhookReconciler {
	return &webhookReconciler{
		ServiceParams: params,
	}
}

func (r *webhookReconciler) VerifySignature(rawBody []byte, signature string) error {
	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Gateway notifications must be signed").
			Mark(ierr.ErrPermissionDenied)
	}

	mac := hmac.New(sha256.New, []byte(r.Config.Gateway.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("webhook signature mismatch").
			WithHint("The webhook signature does not match the payload").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

func (r *webhookReconciler) ResolveOrderLines(ctx context.Context, envelope *gateway.WebhookEnvelope) ([]*order.Line, error) {
	if envelope.Data.ScheduleID != "" {
		line, err := r.OrderRepo.FindLineByScheduleID(ctx, envelope.Data.ScheduleID)
		if err == nil {
			return []*order.Line{line}, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	if raw, ok := envelope.Data.CustomFields[CustomFieldOrderLines]; ok && raw != "" {
		ids := lo.Filter(strings.Split(raw, ","), func(id string, _ int) bool {
			return strings.TrimSpace(id) != ""
		})
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		return r.OrderRepo.FindLinesByIDs(ctx, ids)
	}

	return nil, nil
}

func (r *webhookReconciler) Reconcile(ctx context.Context, payload []byte) error {
	envelope, err := gateway.ParseWebhook(payload)
	if err != nil {
		return err
	}

	// Schedule lifecycle and other administrative notifications carry no
	// transaction to settle; they are observed, not reconciled.
	if envelope.Type != gateway.WebhookEventTransaction || envelope.Data.Transaction == nil {
		r.Logger.Debugw("skipping non-transaction webhook",
			"event_id", envelope.ID,
			"event", envelope.Event,
			"type", envelope.Type,
		)
		return nil
	}

	lines, err := r.ResolveOrderLines(ctx, envelope)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		// Other systems charge through the same gateway account; their
		// transactions legitimately reach this endpoint.
		r.Logger.Infow("webhook matched no local order lines",
			"event_id", envelope.ID,
			"event", envelope.Event,
			"schedule_id", envelope.Data.ScheduleID,
			"transaction_id", envelope.Data.Transaction.ID,
		)
		return nil
	}

	for _, line := range lines {
		if err := r.reconcileLine(ctx, envelope, payload, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *webhookReconciler) reconcileLine(ctx context.Context, envelope *gateway.WebhookEnvelope, payload []byte, line *order.Line) error {
	dedupKey := cache.GenerateKey(cache.PrefixProcessedEvent, envelope.ID, line.ID)
	if !r.Cache.Add(ctx, dedupKey, struct{}{}, r.Config.Webhook.DedupTTL) {
		r.Logger.Infow("webhook already processed for line, skipping",
			"event_id", envelope.ID,
			"order_line_id", line.ID,
		)
		return nil
	}

	ord, err := r.OrderRepo.Get(ctx, line.OrderID)
	if err != nil {
		r.Cache.Delete(ctx, dedupKey)
		return err
	}
	cust, err := r.CustomerRepo.Get(ctx, ord.CustomerID)
	if err != nil {
		r.Cache.Delete(ctx, dedupKey)
		return err
	}

	event := &types.TransactionReceivedEvent{
		EventID:       envelope.ID,
		Status:        envelope.Data.Transaction.Status,
		TransactionID: envelope.Data.Transaction.ID,
		ScheduleID:    envelope.Data.ScheduleID,
		OrderID:       ord.ID,
		OrderCode:     ord.Code,
		OrderLineID:   line.ID,
		CustomerID:    cust.ID,
		CustomerName:  cust.FullName(),
		CustomerEmail: cust.Email,
		RawPayload:    payload,
		ReceivedAt:    envelope.Timestamp,
	}

	if err := r.Publisher.PublishTransactionReceived(ctx, event); err != nil {
		// Release the dedup claim so a redelivery can try again.
		r.Cache.Delete(ctx, dedupKey)
		return err
	}

	r.Logger.Infow("reconciled gateway transaction",
		"event_id", envelope.ID,
		"event", envelope.Event,
		"transaction_id", envelope.Data.Transaction.ID,
		"order_id", ord.ID,
		"order_line_id", line.ID,
	)
	return nil
}
