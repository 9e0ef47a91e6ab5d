package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// ReportRepository aggregates persisted trips and payments read-only.
type ReportRepository interface {
	CommissionSummary(ctx context.Context, filter ReportFilter) (*domain.CommissionSummary, error)
	PaymentSummary(ctx context.Context, filter ReportFilter) ([]domain.PaymentSummaryRow, error)
}
