/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the internal domain model from the external API contract.

WIRE FORMATS:
  - Money travels as decimal strings ("300.00"), never as binary floats.
  - Dates travel as "2006-01-02" in the business's fixed zone.
  - Weekdays travel as lowercase names ("monday").

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:

	Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/store/sqlite"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Balance       string `json:"balance"`
	FreeWeeks     int    `json:"free_weeks"`
	WeekPrice     string `json:"week_price"`
	PayDayChanged bool   `json:"payday_changed"`
}

// CreateCustomerRequest is the request to create a customer.
type CreateCustomerRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Balance   string `json:"balance,omitempty"`
	FreeWeeks int    `json:"free_weeks,omitempty"`
	WeekPrice string `json:"week_price"`
}

func toCustomerDTO(c sqlite.CustomerRecord) CustomerDTO {
	return CustomerDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Balance:       c.Balance.String(),
		FreeWeeks:     c.FreeWeeks,
		WeekPrice:     c.WeekPrice.String(),
		PayDayChanged: c.PayDayChanged,
	}
}

// =============================================================================
// RENTALS
// =============================================================================

// RentalDTO represents a rental in API responses.
type RentalDTO struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customer_id"`
	DueDate          string `json:"due_date"`
	PayDay           string `json:"payday"`
	ConsecutiveWeeks int    `json:"consecutive_weeks"`
	Version          int    `json:"version"`
}

// CreateRentalRequest is the request to create a rental.
type CreateRentalRequest struct {
	ID               string `json:"id,omitempty"`
	CustomerID       string `json:"customer_id"`
	DueDate          string `json:"due_date"`
	ConsecutiveWeeks int    `json:"consecutive_weeks,omitempty"`
}

func toRentalDTO(r sqlite.RentalRecord) RentalDTO {
	return RentalDTO{
		ID:               string(r.ID),
		CustomerID:       string(r.CustomerID),
		DueDate:          r.DueDate.String(),
		PayDay:           weekdayName(r.DueDate.Weekday()),
		ConsecutiveWeeks: r.ConsecutiveWeeks,
		Version:          r.Version,
	}
}

// =============================================================================
// BILLING OPERATIONS
// =============================================================================

// ExtendRentRequest is the operator input to the extend-rent flow.
type ExtendRentRequest struct {
	Weeks               int    `json:"weeks"`
	UseFreeWeeks        bool   `json:"use_free_weeks"`
	ChargeLateFee       bool   `json:"charge_late_fee"`
	LateFeeDaysOverride int    `json:"late_fee_days,omitempty"`
	AsOf                string `json:"as_of,omitempty"` // defaults to today

	// When false the handler returns the computed result without
	// persisting anything (a quote for the confirmation dialog).
	Commit bool `json:"commit"`
}

// ChangePaydayRequest is the operator input to the change-payday flow.
type ChangePaydayRequest struct {
	TargetWeekday string `json:"target_weekday"`
	Commit        bool   `json:"commit"`
}

// BillingResultDTO is the wire form of a billing.BillingResult.
type BillingResultDTO struct {
	WeeksCharged          int    `json:"weeks_charged"`
	FreeWeekConsumed      bool   `json:"free_week_consumed"`
	DaysLate              int    `json:"days_late"`
	MaxChargeableDays     int    `json:"max_chargeable_days"`
	LateFeeDaysCharged    int    `json:"late_fee_days_charged"`
	LateFeeCharged        string `json:"late_fee_charged"`
	AddedDays             int    `json:"added_days"`
	TotalDue              string `json:"total_due"`
	NewBalance            string `json:"new_balance"`
	AmountCustomerMustPay string `json:"amount_customer_must_pay"`
	CustomerHasBalance    bool   `json:"customer_has_balance"`
	NewDueDate            string `json:"new_due_date"`
	Committed             bool   `json:"committed"`
}

func toBillingResultDTO(r billing.BillingResult, committed bool) BillingResultDTO {
	return BillingResultDTO{
		WeeksCharged:          r.WeeksCharged,
		FreeWeekConsumed:      r.FreeWeekConsumed,
		DaysLate:              r.DaysLate,
		MaxChargeableDays:     r.MaxChargeableDays,
		LateFeeDaysCharged:    r.LateFeeDaysCharged,
		LateFeeCharged:        r.LateFeeCharged.String(),
		AddedDays:             r.AddedDays,
		TotalDue:              r.TotalDue.String(),
		NewBalance:            r.NewBalance.String(),
		AmountCustomerMustPay: r.AmountCustomerMustPay.String(),
		CustomerHasBalance:    r.CustomerHasBalance,
		NewDueDate:            r.NewDueDate.String(),
		Committed:             committed,
	}
}

// =============================================================================
// PAYMENTS AND LEDGER
// =============================================================================

// PaymentRequest records money collected from a customer.
type PaymentRequest struct {
	Amount         string `json:"amount"`
	Reason         string `json:"reason,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// EntryDTO represents one ledger entry.
type EntryDTO struct {
	ID          string `json:"id"`
	RentalID    string `json:"rental_id,omitempty"`
	CustomerID  string `json:"customer_id"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	EffectiveAt string `json:"effective_at"`
	Reason      string `json:"reason,omitempty"`
}

func toEntryDTO(e billing.Entry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		RentalID:    string(e.RentalID),
		CustomerID:  string(e.CustomerID),
		Amount:      e.Amount.String(),
		Type:        string(e.Type),
		EffectiveAt: e.EffectiveAt.String(),
		Reason:      e.Reason,
	}
}

// OverdueRowDTO is one row of the latest overdue scan.
type OverdueRowDTO struct {
	RentalID   string `json:"rental_id"`
	CustomerID string `json:"customer_id"`
	DueDate    string `json:"due_date"`
	DaysLate   int    `json:"days_late"`
	RunAt      string `json:"run_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
