/*
Package payroll provides the compensation and work-record aggregation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  per-day work records (sales, penalties, shop assignment) and deriving
  period compensation from them via position-keyed rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: A tracked worker with a position and optional rate overrides
  - WorkDayEntry: One canonical record per (employee, date)
  - CompensationBreakdown: Derived pay figures for a date range
  - Actor: Audit attribution for mutations

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs and positions
  3. Auditability: Every mutation carries who/when attribution
  4. Determinism: Breakdown is always recomputed from the ledger,
     never cached across mutations

SEE ALSO:
  - ledger.go: Work-record ledger operations
  - rules.go: Position rule set and rate resolution
  - calculator.go: Breakdown computation
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// Position is the closed set of roles an employee can hold in the company.
// Compensation defaults are keyed by Position.
type Position string

const (
	PositionSeller  Position = "seller"
	PositionAdmin   Position = "admin"
	PositionManager Position = "manager"
	PositionCourier Position = "courier"
)

// Valid reports whether p is one of the known positions.
func (p Position) Valid() bool {
	switch p {
	case PositionSeller, PositionAdmin, PositionManager, PositionCourier:
		return true
	}
	return false
}

// Positions lists the closed position set, in a stable order.
func Positions() []Position {
	return []Position{PositionSeller, PositionAdmin, PositionManager, PositionCourier}
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a tracked worker. BaseRate and SalesPercentage are optional
// per-employee overrides; when nil the position default from the rule set
// applies (see rules.go).
type Employee struct {
	ID       EmployeeID
	Name     string
	Position Position

	// Overrides. nil = use the position default.
	BaseRate        *decimal.Decimal
	SalesPercentage *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// WORK DAY ENTRY - One canonical record per (employee, date)
// =============================================================================

// WorkDayEntry records one worked day. Sales and Penalties are non-negative;
// Shop and Notes are optional. Version supports optimistic concurrency:
// edits carry the version they were read at, and a stale edit loses.
type WorkDayEntry struct {
	EmployeeID EmployeeID
	Date       Date
	Shop       string
	Sales      decimal.Decimal
	Penalties  decimal.Decimal
	Notes      string

	Version int

	// Audit fields
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// EntryPatch is a partial update for EditEntry. nil fields are left unchanged.
type EntryPatch struct {
	Shop      *string
	Sales     *decimal.Decimal
	Penalties *decimal.Decimal
	Notes     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Shop == nil && p.Sales == nil && p.Penalties == nil && p.Notes == nil
}

// Actor attributes a mutation to the authenticated principal that made it.
// The ledger trusts the access gate to have authorized the call already;
// the actor is recorded for audit, not checked again.
type Actor struct {
	ID   string
	Role string
}

// =============================================================================
// COMPENSATION BREAKDOWN - Derived, never persisted
// =============================================================================

// CompensationBreakdown is the derived pay figures for one employee over a
// date range. GrossPay is the only rounded figure: intermediate sums stay
// exact and rounding happens once, half-up, to the smallest currency unit.
// Negative GrossPay (penalties exceeding earnings) is returned as-is;
// clamping is the caller's presentation decision.
type CompensationBreakdown struct {
	EmployeeID EmployeeID
	Range      DateRange

	WorkedDays      int
	BaseRate        decimal.Decimal
	SalesPercentage decimal.Decimal

	TotalSales     decimal.Decimal
	TotalPenalties decimal.Decimal
	SalesEarnings  decimal.Decimal
	PeriodBaseRate decimal.Decimal
	GrossPay       decimal.Decimal
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalPtr is a convenience for building overrides and patches.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
