package gateway

import (
	"time"

	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// Customer is the gateway-side customer resource.
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Active    bool   `json:"active"`
}

// CustomerInput creates or updates a gateway customer.
type CustomerInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PaymentMethodType discriminates the payment method union.
type PaymentMethodType string

const (
	PaymentMethodCard      PaymentMethodType = "card"
	PaymentMethodBankDebit PaymentMethodType = "bank_debit"
)

// PaymentMethod is a stored payment instrument at the gateway. Card fields
// are populated for card methods, MaskedAccount for bank debits.
type PaymentMethod struct {
	ID          string            `json:"id"`
	CustomerID  string            `json:"customer_id"`
	Type        PaymentMethodType `json:"type"`
	Last4       string            `json:"last4,omitempty"`
	ExpiryMonth int               `json:"expiry_month,omitempty"`
	ExpiryYear  int               `json:"expiry_year,omitempty"`

	// MaskedAccount is the bank account number with all but the trailing
	// digits replaced, e.g. "******4321"
	MaskedAccount string `json:"masked_account,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
}

// CardInput holds the details to tokenize a card at the gateway.
type CardInput struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	HolderName  string `json:"holder_name"`
}

// Last4 returns the trailing four digits used for method matching.
func (c CardInput) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// BankDebitInput holds the details to register a bank-debit mandate.
type BankDebitInput struct {
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	AccountType   string `json:"account_type"`
	HolderName    string `json:"holder_name"`
}

// MaskedAccount applies the gateway's masking to the account number so a
// new input can be compared against stored methods.
func (b BankDebitInput) MaskedAccount() string {
	if len(b.AccountNumber) <= 4 {
		return b.AccountNumber
	}
	masked := make([]byte, len(b.AccountNumber))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(masked)-4:], b.AccountNumber[len(b.AccountNumber)-4:])
	return string(masked)
}

// PaymentMethodInput is a tagged union: exactly one of Card or BankDebit is
// set, selected by Type.
type PaymentMethodInput struct {
	Type      PaymentMethodType `json:"type"`
	Card      *CardInput        `json:"card,omitempty"`
	BankDebit *BankDebitInput   `json:"bank_debit,omitempty"`
}

func (p PaymentMethodInput) Validate() error {
	switch p.Type {
	case PaymentMethodCard:
		if p.Card == nil || p.BankDebit != nil {
			return ierr.NewError("card payment method input requires card details only").
				WithHint("Provide card details for a card payment method").
				Mark(ierr.ErrValidation)
		}
	case PaymentMethodBankDebit:
		if p.BankDebit == nil || p.Card != nil {
			return ierr.NewError("bank debit payment method input requires bank details only").
				WithHint("Provide bank account details for a bank-debit payment method").
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewError("unknown payment method type").
			WithHintf("Payment method type '%s' is not supported", p.Type).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Schedule mirrors the gateway's recurring schedule resource. The gateway
// owns its lifecycle; this system only creates, reads and patches it.
type Schedule struct {
	ID              string                  `json:"id"`
	CustomerID      string                  `json:"customer_id"`
	PaymentMethodID string                  `json:"payment_method_id"`
	Title           string                  `json:"title"`
	Amount          types.Money             `json:"amount"`
	Frequency       types.ScheduleFrequency `json:"frequency"`
	Status          types.ScheduleStatus    `json:"status"`
	NextRunDate     *time.Time              `json:"next_run_date,omitempty"`
	PreviousRunDate *time.Time              `json:"previous_run_date,omitempty"`

	// NumLeft is the number of charges remaining, 0 for open-ended
	NumLeft int  `json:"num_left"`
	Active  bool `json:"active"`
}

// ScheduleInput creates a recurring schedule. A nil NextRunDate tells the
// gateway to run the first charge immediately: gateways reject next-run
// dates that are not strictly in the future.
type ScheduleInput struct {
	Title           string                  `json:"title"`
	Amount          types.Money             `json:"amount"`
	Frequency       types.ScheduleFrequency `json:"frequency"`
	PaymentMethodID string                  `json:"payment_method_id"`
	NextRunDate     *time.Time              `json:"next_run_date,omitempty"`
	NumLeft         int                     `json:"num_left,omitempty"`
	Active          bool                    `json:"active"`
}

// ScheduleUpdateInput patches an existing schedule. Nil fields are left
// untouched.
type ScheduleUpdateInput struct {
	Title           *string                  `json:"title,omitempty"`
	Amount          *types.Money             `json:"amount,omitempty"`
	Frequency       *types.ScheduleFrequency `json:"frequency,omitempty"`
	PaymentMethodID *string                  `json:"payment_method_id,omitempty"`
	NextRunDate     *time.Time               `json:"next_run_date,omitempty"`
	NumLeft         *int                     `json:"num_left,omitempty"`
	Active          *bool                    `json:"active,omitempty"`
}

// Transaction is a single gateway charge, recurring or one-time.
type Transaction struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Amount       types.Money       `json:"amount"`
	ScheduleID   string            `json:"schedule_id,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ChargeInput issues a one-time charge against a stored payment method.
// CustomFields travel with the transaction and come back on its webhooks;
// the correlation token for schedule-less charges rides here.
type ChargeInput struct {
	PaymentMethodID string            `json:"payment_method_id"`
	Amount          types.Money       `json:"amount"`
	Description     string            `json:"description,omitempty"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
}

// RefundResult reports the outcome of a refund request.
type RefundResult struct {
	TransactionID string      `json:"transaction_id"`
	Status        string      `json:"status"`
	Amount        types.Money `json:"amount"`
}
