/*
scheduler.go - Scheduled overdue scan

PURPOSE:

	Once a day, walks every rental and records which are past their due
	date and by how many full days. The scan is READ-ONLY with respect to
	billing: it never charges anyone, it only feeds the overdue report the
	collections staff works from each morning. Charges happen when an
	operator extends the rental, using the same days-late arithmetic.

DESIGN:
  - robfig/cron drives the schedule (default: daily at 06:00)
  - Each run gets one run_at timestamp so the report endpoint can show
    the latest scan as a unit
  - Run() is exported for manual triggering and tests

SEE ALSO:
  - handlers.go: GetOverdueReport endpoint
  - billing/latefee.go: the same days-late computation used for charging
*/
package api

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/store/sqlite"
)

// OverdueScanner records a daily snapshot of overdue rentals.
type OverdueScanner struct {
	Store *sqlite.Store

	// Cron expression for the scan. Defaults to "0 6 * * *".
	Schedule string

	cron *cron.Cron
	now  func() billing.Date
}

// NewOverdueScanner creates a scanner with the default schedule.
func NewOverdueScanner(store *sqlite.Store) *OverdueScanner {
	return &OverdueScanner{
		Store:    store,
		Schedule: "0 6 * * *",
		now:      billing.Today,
	}
}

// Start begins the scheduled scans.
func (s *OverdueScanner) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Schedule, func() {
		if err := s.Run(context.Background()); err != nil {
			log.Printf("[OverdueScan] run failed: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[OverdueScan] scheduled: %s", s.Schedule)
	return nil
}

// Stop stops the scheduler, waiting for a running scan to finish.
func (s *OverdueScanner) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run performs one scan.
func (s *OverdueScanner) Run(ctx context.Context) error {
	rentals, err := s.Store.ListRentals(ctx)
	if err != nil {
		return err
	}

	today := s.now()
	runAt := time.Now().UTC()

	var rows []sqlite.OverdueRow
	for _, r := range rentals {
		daysLate := billing.DaysBetween(r.DueDate, today)
		if daysLate <= 0 {
			continue
		}
		rows = append(rows, sqlite.OverdueRow{
			ID:         uuid.NewString(),
			RunAt:      runAt,
			RentalID:   r.ID,
			CustomerID: r.CustomerID,
			DueDate:    r.DueDate,
			DaysLate:   daysLate,
		})
	}

	if len(rows) == 0 {
		log.Printf("[OverdueScan] nothing overdue among %d rentals", len(rentals))
		return nil
	}
	if err := s.Store.SaveOverdueRows(ctx, rows); err != nil {
		return err
	}
	log.Printf("[OverdueScan] recorded %d overdue rentals", len(rows))
	return nil
}
