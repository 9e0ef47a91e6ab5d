package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRole identifies who receives a share of a trip's total.
type CommissionRole string

const (
	RoleDriver     CommissionRole = "DRIVER"
	RoleDispatcher CommissionRole = "DISPATCHER"
	RoleAdmin      CommissionRole = "ADMIN"
	RoleSuperAdmin CommissionRole = "SUPER_ADMIN"
)

// CommissionRoles lists the roles in computation order.
var CommissionRoles = []CommissionRole{RoleDriver, RoleDispatcher, RoleAdmin, RoleSuperAdmin}

// IsValid reports whether the role is one of the four commission roles.
func (r CommissionRole) IsValid() bool {
	switch r {
	case RoleDriver, RoleDispatcher, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Policy is a versioned set of commission percentages for a tenant.
// Percentages are fractions: 0.75 means 75%.
type Policy struct {
	TenantID      string
	Version       int
	DriverPct     decimal.Decimal
	DispatcherPct decimal.Decimal
	AdminPct      decimal.Decimal
	SuperAdminPct decimal.Decimal
	// RemainderRole absorbs the rounding residual. Empty means the role
	// with the largest percentage.
	RemainderRole CommissionRole
	CreatedAt     time.Time
}

// PolicyFromPercent builds a policy from whole-number percentages (75, 20, 2, 3).
func PolicyFromPercent(driver, dispatcher, admin, superAdmin decimal.Decimal) Policy {
	return Policy{
		DriverPct:     driver.Div(hundred),
		DispatcherPct: dispatcher.Div(hundred),
		AdminPct:      admin.Div(hundred),
		SuperAdminPct: superAdmin.Div(hundred),
	}
}

// NewPolicy builds a tenant policy from fractional percentages and validates it.
func NewPolicy(tenantID string, driver, dispatcher, admin, superAdmin decimal.Decimal, remainder CommissionRole) (Policy, error) {
	p := Policy{
		TenantID:      tenantID,
		DriverPct:     driver,
		DispatcherPct: dispatcher,
		AdminPct:      admin,
		SuperAdminPct: superAdmin,
		RemainderRole: remainder,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Pct returns the percentage assigned to a role.
func (p Policy) Pct(role CommissionRole) decimal.Decimal {
	switch role {
	case RoleDriver:
		return p.DriverPct
	case RoleDispatcher:
		return p.DispatcherPct
	case RoleAdmin:
		return p.AdminPct
	case RoleSuperAdmin:
		return p.SuperAdminPct
	}
	return decimal.Zero
}

// Validate checks that the four percentages are non-negative and sum to exactly 1.
func (p Policy) Validate() error {
	sum := decimal.Zero
	for _, role := range CommissionRoles {
		pct := p.Pct(role)
		if pct.IsNegative() {
			return &PolicyError{Reason: fmt.Sprintf("%s percentage %s is negative", role, pct)}
		}
		if pct.GreaterThan(one) {
			return &PolicyError{Reason: fmt.Sprintf("%s percentage %s exceeds 100%%", role, pct)}
		}
		sum = sum.Add(pct)
	}
	if !sum.Equal(one) {
		return &PolicyError{Reason: fmt.Sprintf("percentages sum to %s, want 1", sum)}
	}
	if p.RemainderRole != "" && !p.RemainderRole.IsValid() {
		return &PolicyError{Reason: fmt.Sprintf("unknown remainder role %q", p.RemainderRole)}
	}
	return nil
}

// Remainder returns the role absorbing rounding residuals.
func (p Policy) Remainder() CommissionRole {
	if p.RemainderRole != "" {
		return p.RemainderRole
	}
	largest := RoleDriver
	for _, role := range CommissionRoles[1:] {
		if p.Pct(role).GreaterThan(p.Pct(largest)) {
			largest = role
		}
	}
	return largest
}

// Shares holds the four commission amounts of a trip.
type Shares struct {
	Driver     decimal.Decimal
	Dispatcher decimal.Decimal
	Admin      decimal.Decimal
	SuperAdmin decimal.Decimal
}

// Of returns the amount for a role.
func (s Shares) Of(role CommissionRole) decimal.Decimal {
	switch role {
	case RoleDriver:
		return s.Driver
	case RoleDispatcher:
		return s.Dispatcher
	case RoleAdmin:
		return s.Admin
	case RoleSuperAdmin:
		return s.SuperAdmin
	}
	return decimal.Zero
}

func (s *Shares) set(role CommissionRole, v decimal.Decimal) {
	switch role {
	case RoleDriver:
		s.Driver = v
	case RoleDispatcher:
		s.Dispatcher = v
	case RoleAdmin:
		s.Admin = v
	case RoleSuperAdmin:
		s.SuperAdmin = v
	}
}

// Sum adds the four shares.
func (s Shares) Sum() decimal.Decimal {
	return s.Driver.Add(s.Dispatcher).Add(s.Admin).Add(s.SuperAdmin)
}

// Add returns the per-role sum s + o.
func (s Shares) Add(o Shares) Shares {
	return Shares{
		Driver:     s.Driver.Add(o.Driver),
		Dispatcher: s.Dispatcher.Add(o.Dispatcher),
		Admin:      s.Admin.Add(o.Admin),
		SuperAdmin: s.SuperAdmin.Add(o.SuperAdmin),
	}
}

// Sub returns the per-role difference s - o.
func (s Shares) Sub(o Shares) Shares {
	return Shares{
		Driver:     s.Driver.Sub(o.Driver),
		Dispatcher: s.Dispatcher.Sub(o.Dispatcher),
		Admin:      s.Admin.Sub(o.Admin),
		SuperAdmin: s.SuperAdmin.Sub(o.SuperAdmin),
	}
}

// ComputeShares partitions total into the four policy shares. Each share is
// rounded half away from zero to two places and the remainder role absorbs
// the residual, so the shares always sum to total.
func ComputeShares(total decimal.Decimal, policy Policy) (Shares, error) {
	if err := policy.Validate(); err != nil {
		return Shares{}, err
	}
	if total.IsNegative() || !total.Equal(total.Round(2)) {
		return Shares{}, fmt.Errorf("%w: %s", ErrInvalidAmount, total)
	}

	var shares Shares
	for _, role := range CommissionRoles {
		shares.set(role, total.Mul(policy.Pct(role)).Round(2))
	}

	holder := policy.Remainder()
	residual := total.Sub(shares.Sum())
	shares.set(holder, shares.Of(holder).Add(residual))

	if shares.Of(holder).IsNegative() {
		// Only reachable for amounts of a few minor units.
		return largestRemainder(total, policy), nil
	}

	return shares, nil
}

// AllocatePaid splits a cumulative paid amount across the roles. It is the
// same split as ComputeShares, so the allocation of the full total equals
// the trip's shares.
func AllocatePaid(paid decimal.Decimal, policy Policy) (Shares, error) {
	return ComputeShares(paid, policy)
}

// largestRemainder floors every share to whole minor units and hands the
// leftover units to the roles with the largest fractional parts.
func largestRemainder(total decimal.Decimal, policy Policy) Shares {
	units := total.Shift(2)
	var shares Shares
	allotted := decimal.Zero
	fractions := make(map[CommissionRole]decimal.Decimal, len(CommissionRoles))
	for _, role := range CommissionRoles {
		exact := units.Mul(policy.Pct(role))
		floor := exact.Floor()
		fractions[role] = exact.Sub(floor)
		shares.set(role, floor)
		allotted = allotted.Add(floor)
	}

	left := units.Sub(allotted).IntPart()
	for ; left > 0; left-- {
		best := CommissionRoles[0]
		for _, role := range CommissionRoles[1:] {
			if fractions[role].GreaterThan(fractions[best]) {
				best = role
			}
		}
		shares.set(best, shares.Of(best).Add(one))
		fractions[best] = decimal.NewFromInt(-1)
	}

	for _, role := range CommissionRoles {
		shares.set(role, shares.Of(role).Shift(-2))
	}
	return shares
}
