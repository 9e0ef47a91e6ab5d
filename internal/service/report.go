package service

import (
	"context"
	"errors"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// ErrInvalidRange is returned when a report's from date is after its to date.
var ErrInvalidRange = errors.New("report range starts after it ends")

// ReportService serves read-only commission and payment reports.
type ReportService struct {
	reports repository.ReportRepository
}

// NewReportService creates a new ReportService.
func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

func checkRange(f repository.ReportFilter) error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return ErrInvalidRange
	}
	return nil
}

// CommissionSummary sums shares, paid and due per role over the tenant's
// non-cancelled trips.
func (s *ReportService) CommissionSummary(ctx context.Context, filter repository.ReportFilter) (*domain.CommissionSummary, error) {
	if err := checkRange(filter); err != nil {
		return nil, err
	}
	return s.reports.CommissionSummary(ctx, filter)
}

// PaymentSummary counts and sums payments by method and status.
func (s *ReportService) PaymentSummary(ctx context.Context, filter repository.ReportFilter) ([]domain.PaymentSummaryRow, error) {
	if err := checkRange(filter); err != nil {
		return nil, err
	}
	return s.reports.PaymentSummary(ctx, filter)
}

// DayRange returns the [start of from, end of to] range in UTC for date-only inputs.
func DayRange(from, to time.Time) (time.Time, time.Time) {
	if !to.IsZero() {
		to = to.Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() {
		from = from.Truncate(24 * time.Hour)
	}
	return from, to
}
