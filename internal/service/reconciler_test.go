package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/subcycle/subcycle/internal/domain/customer"
	"github.com/subcycle/subcycle/internal/domain/order"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/testutil"
	"github.com/subcycle/subcycle/internal/types"
)

type ReconcilerTestSuite struct {
	testutil.BaseServiceTestSuite
	reconciler WebhookReconciler
}

func TestReconciler(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.reconciler = NewWebhookReconciler(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		OrderRepo:    stores.OrderRepo,
		CustomerRepo: stores.CustomerRepo,
		CatalogRepo:  stores.CatalogRepo,
		Gateway:      s.GetGateway(),
		Publisher:    s.GetPublisher(),
		Cache:        s.GetCache(),
	})
}

func (s *ReconcilerTestSuite) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.GetConfig().Gateway.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ReconcilerTestSuite) seedOrderWithSchedule(scheduleID string) *order.Order {
	s.GetStores().CustomerRepo.Seed(&customer.Customer{
		ID:        "cust_1",
		FirstName: "Ada",
		LastName:  "Lind",
		Email:     "ada@example.com",
	})
	ord := &order.Order{
		ID:         "ord_1",
		Code:       "A-1001",
		CustomerID: "cust_1",
		Lines: []*order.Line{
			{ID: "line_1", VariantID: "var_sub", Quantity: 1, ScheduleIDs: []string{scheduleID}},
		},
	}
	s.GetStores().OrderRepo.Seed(ord)
	return ord
}

func transactionPayload(eventID, scheduleID string, customFields map[string]string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"id":        eventID,
		"type":      gateway.WebhookEventTransaction,
		"event":     gateway.WebhookTransactionApproved,
		"timestamp": time.Date(2024, time.November, 20, 12, 0, 0, 0, time.UTC),
		"data": map[string]any{
			"transaction": map[string]any{
				"id":     "txn_1",
				"status": "approved",
				"amount": "40.00",
			},
			"schedule_id":   scheduleID,
			"custom_fields": customFields,
		},
	})
	return payload
}

func (s *ReconcilerTestSuite) TestVerifySignature() {
	body := []byte(`{"id":"evt_1","event":"transaction.approved"}`)

	s.NoError(s.reconciler.VerifySignature(body, s.sign(body)))
}

func (s *ReconcilerTestSuite) TestVerifySignature_Mutated() {
	body := []byte(`{"id":"evt_1","event":"transaction.approved"}`)
	sig := []byte(s.sign(body))

	// Flip one hex character
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	err := s.reconciler.VerifySignature(body, string(sig))
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ReconcilerTestSuite) TestVerifySignature_Missing() {
	err := s.reconciler.VerifySignature([]byte(`{}`), "")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ReconcilerTestSuite) TestResolveOrderLines_ByScheduleID() {
	s.seedOrderWithSchedule("sched_123")

	lines, err := s.reconciler.ResolveOrderLines(s.GetContext(), &gateway.WebhookEnvelope{
		Data: gateway.WebhookData{ScheduleID: "sched_123"},
	})
	s.NoError(err)
	s.Require().Len(lines, 1)
	s.Equal("line_1", lines[0].ID)
}

func (s *ReconcilerTestSuite) TestResolveOrderLines_ExactMembershipOnly() {
	// "sched_12" is a prefix of the stored token "sched_123"; a substring
	// match would wrongly claim this event.
	s.seedOrderWithSchedule("sched_123")

	lines, err := s.reconciler.ResolveOrderLines(s.GetContext(), &gateway.WebhookEnvelope{
		Data: gateway.WebhookData{ScheduleID: "sched_12"},
	})
	s.NoError(err)
	s.Empty(lines)
}

func (s *ReconcilerTestSuite) TestResolveOrderLines_ByCustomField() {
	s.GetStores().CustomerRepo.Seed(&customer.Customer{ID: "cust_1", Email: "ada@example.com"})
	s.GetStores().OrderRepo.Seed(&order.Order{
		ID:         "ord_1",
		CustomerID: "cust_1",
		Lines: []*order.Line{
			{ID: "line_1", VariantID: "var_a", Quantity: 1},
			{ID: "line_2", VariantID: "var_b", Quantity: 1},
			{ID: "line_3", VariantID: "var_c", Quantity: 1},
		},
	})

	lines, err := s.reconciler.ResolveOrderLines(s.GetContext(), &gateway.WebhookEnvelope{
		Data: gateway.WebhookData{
			CustomFields: map[string]string{
				CustomFieldOrderLines: "line_1, line_3",
			},
		},
	})
	s.NoError(err)
	s.Require().Len(lines, 2)
	s.Equal("line_1", lines[0].ID)
	s.Equal("line_3", lines[1].ID)
}

func (s *ReconcilerTestSuite) TestResolveOrderLines_Unmatched() {
	lines, err := s.reconciler.ResolveOrderLines(s.GetContext(), &gateway.WebhookEnvelope{
		Data: gateway.WebhookData{ScheduleID: "sched_unknown"},
	})
	s.NoError(err)
	s.Empty(lines)
}

func (s *ReconcilerTestSuite) TestReconcile_EmitsTransactionEvent() {
	s.seedOrderWithSchedule("sched_123")
	payload := transactionPayload("evt_1", "sched_123", nil)

	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))

	events := s.GetPublisher().TransactionEvents()
	s.Require().Len(events, 1)

	event := events[0]
	s.Equal("evt_1", event.EventID)
	s.Equal("approved", event.Status)
	s.Equal("txn_1", event.TransactionID)
	s.Equal("sched_123", event.ScheduleID)
	s.Equal("ord_1", event.OrderID)
	s.Equal("A-1001", event.OrderCode)
	s.Equal("line_1", event.OrderLineID)
	s.Equal("cust_1", event.CustomerID)
	s.Equal("Ada Lind", event.CustomerName)
	s.Equal("ada@example.com", event.CustomerEmail)
	s.Equal(payload, []byte(event.RawPayload))
}

func (s *ReconcilerTestSuite) TestReconcile_RedeliveryIsDeduplicated() {
	s.seedOrderWithSchedule("sched_123")
	payload := transactionPayload("evt_1", "sched_123", nil)

	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))
	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))

	s.Len(s.GetPublisher().TransactionEvents(), 1)
}

func (s *ReconcilerTestSuite) TestReconcile_DistinctEventsBothEmit() {
	// A decline webhook after an approval carries a new event id and must
	// not be swallowed by the dedup of the first event.
	s.seedOrderWithSchedule("sched_123")

	s.NoError(s.reconciler.Reconcile(s.GetContext(), transactionPayload("evt_1", "sched_123", nil)))
	s.NoError(s.reconciler.Reconcile(s.GetContext(), transactionPayload("evt_2", "sched_123", nil)))

	s.Len(s.GetPublisher().TransactionEvents(), 2)
}

func (s *ReconcilerTestSuite) TestReconcile_PublishFailureReleasesDedup() {
	s.seedOrderWithSchedule("sched_123")
	payload := transactionPayload("evt_1", "sched_123", nil)

	s.GetPublisher().FailNext = ierr.NewError("broker down").Mark(ierr.ErrSystem)
	s.Error(s.reconciler.Reconcile(s.GetContext(), payload))
	s.Empty(s.GetPublisher().TransactionEvents())

	// The redelivery must get through once the publisher recovers
	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))
	s.Len(s.GetPublisher().TransactionEvents(), 1)
}

func (s *ReconcilerTestSuite) TestReconcile_UnmatchedEmitsNothing() {
	payload := transactionPayload("evt_1", "sched_unknown", nil)

	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))
	s.Empty(s.GetPublisher().TransactionEvents())
}

func (s *ReconcilerTestSuite) TestReconcile_CustomFieldFallback() {
	s.GetStores().CustomerRepo.Seed(&customer.Customer{ID: "cust_1", Email: "ada@example.com"})
	s.GetStores().OrderRepo.Seed(&order.Order{
		ID:         "ord_1",
		CustomerID: "cust_1",
		Lines: []*order.Line{
			{ID: "line_1", VariantID: "var_a", Quantity: 1},
			{ID: "line_2", VariantID: "var_b", Quantity: 1},
		},
	})
	payload := transactionPayload("evt_1", "", map[string]string{
		CustomFieldOrderLines: "line_1,line_2",
	})

	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))
	s.Len(s.GetPublisher().TransactionEvents(), 2)
}

func (s *ReconcilerTestSuite) TestReconcile_ScheduleLifecycleSkipped() {
	s.seedOrderWithSchedule("sched_123")
	payload, _ := json.Marshal(map[string]any{
		"id":        "evt_1",
		"type":      gateway.WebhookEventSchedule,
		"event":     gateway.WebhookScheduleFinished,
		"timestamp": time.Date(2024, time.November, 20, 12, 0, 0, 0, time.UTC),
		"data": map[string]any{
			"schedule_id": "sched_123",
		},
	})

	s.NoError(s.reconciler.Reconcile(s.GetContext(), payload))
	s.Empty(s.GetPublisher().TransactionEvents())
}

func (s *ReconcilerTestSuite) TestReconcile_InvalidPayload() {
	err := s.reconciler.Reconcile(s.GetContext(), []byte("not json"))
	s.Error(err)
	s.True(ierr.IsValidation(err))

	err = s.reconciler.Reconcile(s.GetContext(), []byte(`{"event":"transaction.approved"}`))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ReconcilerTestSuite) TestReconcile_AmountConversion() {
	envelope, err := gateway.ParseWebhook(transactionPayload("evt_1", "sched_123", nil))
	s.NoError(err)
	s.Equal(types.Money(4000), envelope.TransactionAmount())
}
