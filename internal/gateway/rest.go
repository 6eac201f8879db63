package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subcycle/subcycle/internal/config"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/httpclient"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/types"
)

// restClient is the REST rendition of the gateway Client. All amounts are
// converted minor->major on the way out and major->minor on the way in,
// exactly here; dates cross the wire as yyyy-mm-dd strings.
type restClient struct {
	client  httpclient.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// NewRESTClient builds a gateway client from the configured base URL and key.
func NewRESTClient(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) Client {
	return &restClient{
		client:  client,
		baseURL: strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		apiKey:  cfg.Gateway.APIKey,
		logger:  logger,
	}
}

// wire forms: amounts are major-unit decimals, dates are yyyy-mm-dd strings.

type wireSchedule struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	PaymentMethodID string          `json:"payment_method_id"`
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	Frequency       string          `json:"frequency"`
	Status          string          `json:"status"`
	NextRunDate     string          `json:"next_run_date,omitempty"`
	PrevRunDate     string          `json:"prev_run_date,omitempty"`
	NumLeft         int             `json:"num_left"`
	Active          bool            `json:"active"`
}

type wireScheduleInput struct {
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	Frequency       string          `json:"frequency"`
	PaymentMethodID string          `json:"payment_method_id"`
	NextRunDate     string          `json:"next_run_date,omitempty"`
	NumLeft         int             `json:"num_left,omitempty"`
	Active          bool            `json:"active"`
}

type wireScheduleUpdate struct {
	Title           *string          `json:"title,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Frequency       *string          `json:"frequency,omitempty"`
	PaymentMethodID *string          `json:"payment_method_id,omitempty"`
	NextRunDate     *string          `json:"next_run_date,omitempty"`
	NumLeft         *int             `json:"num_left,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

type wireTransaction struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Amount       decimal.Decimal   `json:"amount"`
	ScheduleID   string            `json:"schedule_id,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type wireChargeInput struct {
	PaymentMethodID string            `json:"payment_method_id"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     string            `json:"description,omitempty"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
}

type wireRefundInput struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

type wireRefundResult struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
}

func (c *restClient) FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	var out []Customer
	path := "/customers?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) UpdateCustomer(ctx context.Context, id string, input CustomerInput) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPatch, "/customers/"+url.PathEscape(id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	var out []PaymentMethod
	path := "/customers/" + url.PathEscape(customerID) + "/payment-methods"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreatePaymentMethod(ctx context.Context, customerID string, input PaymentMethodInput) (*PaymentMethod, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var out PaymentMethod
	path := "/customers/" + url.PathEscape(customerID) + "/payment-methods"
	if err := c.do(ctx, http.MethodPost, path, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) UpdatePaymentMethod(ctx context.Context, id string, input PaymentMethodInput) (*PaymentMethod, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var out PaymentMethod
	if err := c.do(ctx, http.MethodPatch, "/payment-methods/"+url.PathEscape(id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) DeletePaymentMethod(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/payment-methods/"+url.PathEscape(id), nil, nil)
}

func (c *restClient) CreateSchedule(ctx context.Context, customerID string, input ScheduleInput) (*Schedule, error) {
	wireInput := wireScheduleInput{
		Title:           input.Title,
		Amount:          input.Amount.ToMajorUnits(),
		Frequency:       input.Frequency.String(),
		PaymentMethodID: input.PaymentMethodID,
		NumLeft:         input.NumLeft,
		Active:          input.Active,
	}
	if input.NextRunDate != nil {
		wireInput.NextRunDate = input.NextRunDate.Format(types.GatewayDateFormat)
	}

	var out wireSchedule
	path := "/customers/" + url.PathEscape(customerID) + "/recurring-schedules"
	if err := c.do(ctx, http.MethodPost, path, wireInput, &out); err != nil {
		return nil, err
	}
	return scheduleFromWire(out)
}

func (c *restClient) UpdateSchedule(ctx context.Context, id string, input ScheduleUpdateInput) (*Schedule, error) {
	wireInput := wireScheduleUpdate{
		Title:           input.Title,
		PaymentMethodID: input.PaymentMethodID,
		NumLeft:         input.NumLeft,
		Active:          input.Active,
	}
	if input.Amount != nil {
		major := input.Amount.ToMajorUnits()
		wireInput.Amount = &major
	}
	if input.Frequency != nil {
		freq := input.Frequency.String()
		wireInput.Frequency = &freq
	}
	if input.NextRunDate != nil {
		date := input.NextRunDate.Format(types.GatewayDateFormat)
		wireInput.NextRunDate = &date
	}

	var out wireSchedule
	if err := c.do(ctx, http.MethodPatch, "/recurring-schedules/"+url.PathEscape(id), wireInput, &out); err != nil {
		return nil, err
	}
	return scheduleFromWire(out)
}

func (c *restClient) ListSchedules(ctx context.Context, ids []string) ([]Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []wireSchedule
	path := "/recurring-schedules?ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	schedules := make([]Schedule, 0, len(out))
	for _, w := range out {
		s, err := scheduleFromWire(w)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, nil
}

func (c *restClient) ListScheduleTransactions(ctx context.Context, scheduleID string) ([]Transaction, error) {
	var out []wireTransaction
	path := "/recurring-schedules/" + url.PathEscape(scheduleID) + "/transactions"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	txns := make([]Transaction, 0, len(out))
	for _, w := range out {
		txns = append(txns, transactionFromWire(w))
	}
	return txns, nil
}

func (c *restClient) CreateCharge(ctx context.Context, input ChargeInput) (*Transaction, error) {
	wireInput := wireChargeInput{
		PaymentMethodID: input.PaymentMethodID,
		Amount:          input.Amount.ToMajorUnits(),
		Description:     input.Description,
		CustomFields:    input.CustomFields,
	}
	var out wireTransaction
	if err := c.do(ctx, http.MethodPost, "/charges", wireInput, &out); err != nil {
		return nil, err
	}
	txn := transactionFromWire(out)
	return &txn, nil
}

func (c *restClient) Refund(ctx context.Context, transactionID string, amount *types.Money, reason string) (*RefundResult, error) {
	wireInput := wireRefundInput{Reason: reason}
	if amount != nil {
		major := amount.ToMajorUnits()
		wireInput.Amount = &major
	}
	var out wireRefundResult
	path := "/transactions/" + url.PathEscape(transactionID) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, wireInput, &out); err != nil {
		return nil, err
	}
	return &RefundResult{
		TransactionID: out.TransactionID,
		Status:        out.Status,
		Amount:        types.MoneyFromMajorUnits(out.Amount),
	}, nil
}

func (c *restClient) do(ctx context.Context, method, path string, body any, out any) error {
	req := &httpclient.Request{
		Method: method,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Accept":        "application/json",
		},
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode the gateway request").
				Mark(ierr.ErrSystem)
		}
		req.Body = payload
	}

	resp, err := c.client.Send(ctx, req)
	if err != nil {
		return c.classify(err, method, path)
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("The gateway returned an unexpected response shape").
				Mark(ierr.ErrHTTPClient)
		}
	}
	return nil
}

// classify maps gateway HTTP failures onto the local error taxonomy: 404 is
// not-found, other 4xx are non-retryable validation failures, everything
// else stays a transient http client error for the retry layer.
func (c *restClient) classify(err error, method, path string) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return err
	}

	c.logger.Warnw("gateway request failed",
		"method", method,
		"path", path,
		"status_code", httpErr.StatusCode,
	)

	// 404 and other 4xx get fresh errors instead of wrapping the transport
	// error: the wrapped error carries the http client code, which would
	// make non-retryable rejections match ErrHTTPClient and get retried.
	switch {
	case httpErr.StatusCode == http.StatusNotFound:
		return ierr.NewError("gateway resource not found").
			WithHint("The gateway resource does not exist").
			WithReportableDetails(map[string]any{
				"method": method,
				"path":   path,
			}).
			Mark(ierr.ErrNotFound)
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return ierr.NewError("gateway rejected the request").
			WithHintf("The gateway rejected the request: %s", string(httpErr.Response)).
			WithReportableDetails(map[string]any{
				"method":      method,
				"path":        path,
				"status_code": httpErr.StatusCode,
			}).
			Mark(ierr.ErrValidation)
	default:
		return ierr.WithError(err).
			WithHint("The gateway is temporarily unavailable").
			Mark(ierr.ErrHTTPClient)
	}
}

func scheduleFromWire(w wireSchedule) (*Schedule, error) {
	s := &Schedule{
		ID:              w.ID,
		CustomerID:      w.CustomerID,
		PaymentMethodID: w.PaymentMethodID,
		Title:           w.Title,
		Amount:          types.MoneyFromMajorUnits(w.Amount),
		Frequency:       types.ScheduleFrequency(w.Frequency),
		Status:          types.ScheduleStatus(w.Status),
		NumLeft:         w.NumLeft,
		Active:          w.Active,
	}

	if w.NextRunDate != "" {
		next, err := time.Parse(types.GatewayDateFormat, w.NextRunDate)
		if err != nil {
			return nil, invalidWireDate("next_run_date", w.NextRunDate)
		}
		s.NextRunDate = &next
	}
	if w.PrevRunDate != "" {
		prev, err := time.Parse(types.GatewayDateFormat, w.PrevRunDate)
		if err != nil {
			return nil, invalidWireDate("prev_run_date", w.PrevRunDate)
		}
		s.PreviousRunDate = &prev
	}
	return s, nil
}

func transactionFromWire(w wireTransaction) Transaction {
	return Transaction{
		ID:           w.ID,
		Status:       w.Status,
		Amount:       types.MoneyFromMajorUnits(w.Amount),
		ScheduleID:   w.ScheduleID,
		CustomFields: w.CustomFields,
		CreatedAt:    w.CreatedAt,
	}
}

func invalidWireDate(field, value string) error {
	return ierr.NewError(fmt.Sprintf("invalid %s in gateway response", field)).
		WithHintf("Expected a yyyy-mm-dd date, got '%s'", value).
		Mark(ierr.ErrHTTPClient)
}
