package domain

import "github.com/shopspring/decimal"

// RoleCommission is one role's aggregated commission.
type RoleCommission struct {
	Role  CommissionRole
	Total decimal.Decimal
	Paid  decimal.Decimal
	Due   decimal.Decimal
}

// CommissionSummary aggregates shares and role ledgers over many trips.
type CommissionSummary struct {
	TripCount   int
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Roles       []RoleCommission
}

// NewCommissionSummary builds a summary from summed shares and role ledgers.
func NewCommissionSummary(tripCount int, total, paid decimal.Decimal, shares, rolePaid Shares) CommissionSummary {
	s := CommissionSummary{TripCount: tripCount, TotalAmount: total, PaidAmount: paid}
	due := shares.Sub(rolePaid)
	for _, role := range CommissionRoles {
		s.Roles = append(s.Roles, RoleCommission{
			Role:  role,
			Total: shares.Of(role),
			Paid:  rolePaid.Of(role),
			Due:   due.Of(role),
		})
	}
	return s
}

// SummarizeCommissions aggregates non-cancelled trips in memory.
func SummarizeCommissions(trips []*Trip) CommissionSummary {
	var (
		count         int
		total, paid   decimal.Decimal
		shares, roles Shares
	)
	for _, t := range trips {
		if t.Status == TripStatusCancelled {
			continue
		}
		count++
		total = total.Add(t.TotalAmount)
		paid = paid.Add(t.PaidAmount)
		shares = shares.Add(t.Shares)
		roles = roles.Add(t.RolePaid)
	}
	return NewCommissionSummary(count, total, paid, shares, roles)
}

// PaymentSummaryRow aggregates payments sharing a method and status.
type PaymentSummaryRow struct {
	Method PaymentMethod
	Status PaymentStatus
	Count  int
	Amount decimal.Decimal
}
