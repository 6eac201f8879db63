package dto

import (
	"time"

	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/types"
	"github.com/subcycle/subcycle/internal/validator"
)

// UpdateScheduleRequest patches a recurring schedule. Absent fields are
// left untouched. Amount is in minor units.
type UpdateScheduleRequest struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Amount          *int64  `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Frequency       *string `json:"frequency,omitempty"`
	PaymentMethodID *string `json:"payment_method_id,omitempty"`
	NextRunDate     *string `json:"next_run_date,omitempty"`
	NumLeft         *int    `json:"num_left,omitempty" validate:"omitempty,gte=0"`
	Active          *bool   `json:"active,omitempty"`
}

func (r *UpdateScheduleRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Frequency != nil {
		if err := types.ScheduleFrequency(*r.Frequency).Validate(); err != nil {
			return err
		}
	}
	if r.NextRunDate != nil {
		if _, err := time.Parse(types.GatewayDateFormat, *r.NextRunDate); err != nil {
			return ierr.WithError(err).
				WithHintf("next_run_date must be a yyyy-mm-dd date, got '%s'", *r.NextRunDate).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ToScheduleUpdateInput converts the request to the gateway patch form.
func (r *UpdateScheduleRequest) ToScheduleUpdateInput() gateway.ScheduleUpdateInput {
	input := gateway.ScheduleUpdateInput{
		Title:           r.Title,
		PaymentMethodID: r.PaymentMethodID,
		NumLeft:         r.NumLeft,
		Active:          r.Active,
	}
	if r.Amount != nil {
		amount := types.Money(*r.Amount)
		input.Amount = &amount
	}
	if r.Frequency != nil {
		freq := types.ScheduleFrequency(*r.Frequency)
		input.Frequency = &freq
	}
	if r.NextRunDate != nil {
		date, _ := time.Parse(types.GatewayDateFormat, *r.NextRunDate)
		input.NextRunDate = &date
	}
	return input
}

// ScheduleResponse is the API form of a gateway schedule.
type ScheduleResponse struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Amount          types.Money `json:"amount"`
	Frequency       string      `json:"frequency"`
	Status          string      `json:"status"`
	NextRunDate     string      `json:"next_run_date,omitempty"`
	PreviousRunDate string      `json:"previous_run_date,omitempty"`
	NumLeft         int         `json:"num_left"`
	Active          bool        `json:"active"`
}

// NewScheduleResponse converts a gateway schedule to its response form.
func NewScheduleResponse(s *gateway.Schedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:        s.ID,
		Title:     s.Title,
		Amount:    s.Amount,
		Frequency: s.Frequency.String(),
		Status:    s.Status.String(),
		NumLeft:   s.NumLeft,
		Active:    s.Active,
	}
	if s.NextRunDate != nil {
		resp.NextRunDate = s.NextRunDate.Format(types.GatewayDateFormat)
	}
	if s.PreviousRunDate != nil {
		resp.PreviousRunDate = s.PreviousRunDate.Format(types.GatewayDateFormat)
	}
	return resp
}
