/*
handlers.go - HTTP API handlers for the rental billing system

PURPOSE:

	Exposes the billing engine via REST API. Handles HTTP request/response,
	JSON serialization, and delegates to the billing engines and the store.

ENDPOINTS:

	Customers:
	  GET    /api/customers                     List all customers
	  POST   /api/customers                     Create customer
	  GET    /api/customers/{id}                Get customer details
	  GET    /api/customers/{id}/transactions   Ledger history
	  POST   /api/customers/{id}/payments       Record a payment

	Rentals:
	  GET    /api/rentals                       List all rentals
	  POST   /api/rentals                       Create rental
	  GET    /api/rentals/{id}                  Get rental details
	  POST   /api/rentals/{id}/extend           Quote or commit an extension
	  POST   /api/rentals/{id}/payday           Quote or commit a payday shift

	Reports:
	  GET    /api/reports/overdue               Latest overdue scan

QUOTE vs COMMIT:

	The extend and payday endpoints serve the confirmation dialogs: with
	"commit": false they return the computed BillingResult and persist
	nothing; with "commit": true they apply the result atomically. A commit
	is refused while the result still requires an uncollected payment - the
	operator records the payment first, then retries the commit against a
	fresh snapshot.

ERROR HANDLING:

	Errors are returned as JSON with appropriate HTTP status:
	- 400: Validation errors, invalid input
	- 402: Commit blocked until a payment is collected
	- 404: Rental or customer not found
	- 409: Conflict (stale snapshot, idempotency)
	- 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Policy billing.PricingPolicy

	// now is swappable for tests; defaults to billing.Today.
	now func() billing.Date
}

// NewHandler creates a new handler with the given store and pricing policy.
func NewHandler(store *sqlite.Store, policy billing.PricingPolicy) *Handler {
	return &Handler{
		Store:  store,
		Policy: policy,
		now:    billing.Today,
	}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	weekPrice, err := billing.ParseMoney(req.WeekPrice)
	if err != nil || !weekPrice.IsPositive() {
		writeError(w, http.StatusBadRequest, "week_price must be a positive amount", err)
		return
	}

	balance := billing.ZeroMoney()
	if req.Balance != "" {
		if balance, err = billing.ParseMoney(req.Balance); err != nil {
			writeError(w, http.StatusBadRequest, "invalid balance", err)
			return
		}
	}
	if req.FreeWeeks < 0 {
		writeError(w, http.StatusBadRequest, "free_weeks must not be negative", nil)
		return
	}

	record := sqlite.CustomerRecord{
		ID:        billing.CustomerID(req.ID),
		Name:      req.Name,
		Balance:   balance,
		FreeWeeks: req.FreeWeeks,
		WeekPrice: weekPrice,
	}
	if record.ID == "" {
		record.ID = billing.CustomerID(uuid.NewString())
	}

	if err := h.Store.SaveCustomer(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(record))
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))
	customer, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeBillingError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*customer))
}

// GetCustomerTransactions returns the customer's ledger history.
func (h *Handler) GetCustomerTransactions(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))
	entries, err := h.Store.Load(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment credits a collected payment onto the customer's balance.
// This is the side channel that resolves an extension shortfall.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := billing.ParseMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive amount", err)
		return
	}

	entry := billing.Entry{
		ID:             billing.EntryID(uuid.NewString()),
		CustomerID:     id,
		Amount:         amount,
		Type:           billing.EntryPayment,
		EffectiveAt:    h.now(),
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      h.now(),
	}
	if err := h.Store.RecordPayment(r.Context(), entry); err != nil {
		writeBillingError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// =============================================================================
// RENTAL HANDLERS
// =============================================================================

// ListRentals returns all rentals.
func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.Store.ListRentals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rentals", err)
		return
	}

	dtos := make([]RentalDTO, len(rentals))
	for i, rec := range rentals {
		dtos[i] = toRentalDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRental creates a rental.
func (h *Handler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req CreateRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dueDate, err := billing.ParseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD", err)
		return
	}
	if _, err := h.Store.GetCustomer(r.Context(), billing.CustomerID(req.CustomerID)); err != nil {
		writeBillingError(w, "Failed to resolve customer", err)
		return
	}

	record := sqlite.RentalRecord{
		ID:               billing.RentalID(req.ID),
		CustomerID:       billing.CustomerID(req.CustomerID),
		DueDate:          dueDate,
		ConsecutiveWeeks: req.ConsecutiveWeeks,
	}
	if record.ID == "" {
		record.ID = billing.RentalID(uuid.NewString())
	}

	if err := h.Store.SaveRental(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rental", err)
		return
	}
	record.Version = 1
	writeJSON(w, http.StatusCreated, toRentalDTO(record))
}

// GetRental returns a single rental.
func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	id := billing.RentalID(chi.URLParam(r, "id"))
	rental, err := h.Store.GetRental(r.Context(), id)
	if err != nil {
		writeBillingError(w, "Failed to get rental", err)
		return
	}
	writeJSON(w, http.StatusOK, toRentalDTO(*rental))
}

// =============================================================================
// BILLING OPERATIONS
// =============================================================================

// ExtendRent quotes or commits a rent extension.
// POST /api/rentals/{id}/extend
func (h *Handler) ExtendRent(w http.ResponseWriter, r *http.Request) {
	id := billing.RentalID(chi.URLParam(r, "id"))

	var req ExtendRentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asOf := h.now()
	if req.AsOf != "" {
		var err error
		if asOf, err = billing.ParseDate(req.AsOf); err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD", err)
			return
		}
	}

	// Fresh snapshot immediately before computing.
	snap, err := h.Store.LoadSnapshot(r.Context(), id)
	if err != nil {
		writeBillingError(w, "Failed to load rental", err)
		return
	}

	engine := billing.RentExtensionEngine{Policy: h.Policy}
	result, err := engine.Extend(snap, billing.ExtensionRequest{
		SelectedWeeks:       req.Weeks,
		UseFreeWeeks:        req.UseFreeWeeks,
		ChargeLateFee:       req.ChargeLateFee,
		LateFeeDaysOverride: req.LateFeeDaysOverride,
	}, asOf)
	if err != nil {
		writeBillingError(w, "Extension rejected", err)
		return
	}

	if !req.Commit {
		writeJSON(w, http.StatusOK, toBillingResultDTO(result, false))
		return
	}

	// The commit gate: a shortfall must be paid through the payment side
	// channel first, which changes the balance and the next snapshot.
	if result.RequiresPayment() {
		writeError(w, http.StatusPaymentRequired,
			fmt.Sprintf("customer must pay %s before committing", result.AmountCustomerMustPay), nil)
		return
	}

	entries := h.stampEntries(result.Entries(snap.ID, snap.Customer, asOf), "extend", snap)
	if err := h.Store.ApplyResult(r.Context(), snap, result, entries); err != nil {
		writeBillingError(w, "Failed to commit extension", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingResultDTO(result, true))
}

// ChangePayday quotes or commits a payday weekday shift.
// POST /api/rentals/{id}/payday
func (h *Handler) ChangePayday(w http.ResponseWriter, r *http.Request) {
	id := billing.RentalID(chi.URLParam(r, "id"))

	var req ChangePaydayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	target, err := billing.ParseWeekday(req.TargetWeekday)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown target_weekday", err)
		return
	}

	snap, err := h.Store.LoadSnapshot(r.Context(), id)
	if err != nil {
		writeBillingError(w, "Failed to load rental", err)
		return
	}

	engine := billing.PaydayShiftEngine{Policy: h.Policy}
	result, err := engine.Shift(snap, billing.PaydayShiftRequest{TargetWeekday: target})
	if err != nil {
		writeBillingError(w, "Payday change rejected", err)
		return
	}

	if !req.Commit {
		writeJSON(w, http.StatusOK, toBillingResultDTO(result, false))
		return
	}

	entries := h.stampEntries(result.Entries(snap.ID, snap.Customer, h.now()), "payday", snap)
	if err := h.Store.ApplyResult(r.Context(), snap, result, entries); err != nil {
		writeBillingError(w, "Failed to commit payday change", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingResultDTO(result, true))
}

// stampEntries fills IDs and idempotency keys on freshly expanded
// entries. The key is derived from the snapshot's due date so a retry of
// the same operation dedupes, while the next operation (new due date)
// gets fresh keys.
func (h *Handler) stampEntries(entries []billing.Entry, op string, snap billing.RentalSnapshot) []billing.Entry {
	for i := range entries {
		entries[i].ID = billing.EntryID(uuid.NewString())
		entries[i].IdempotencyKey = fmt.Sprintf("%s:%s:%s:%s", op, snap.ID, snap.DueDate, entries[i].Type)
	}
	return entries
}

// =============================================================================
// REPORTS
// =============================================================================

// GetOverdueReport returns the rows of the latest overdue scan.
func (h *Handler) GetOverdueReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListOverdueRows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load overdue report", err)
		return
	}

	dtos := make([]OverdueRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = OverdueRowDTO{
			RentalID:   string(row.RentalID),
			CustomerID: string(row.CustomerID),
			DueDate:    row.DueDate.String(),
			DaysLate:   row.DaysLate,
			RunAt:      row.RunAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeBillingError maps billing error values onto HTTP statuses.
func writeBillingError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsRetryable(err), errors.Is(err, billing.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func weekdayName(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	}
	return "unknown"
}
