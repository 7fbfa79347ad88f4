/*
calculator.go - Period compensation computation

PURPOSE:
  Turns a ledger slice plus a resolved rate into a compensation breakdown.
  This is the central calculation that answers "what does this employee
  earn for this period?"

KEY INSIGHT:
  workedDays is the count of DISTINCT dates with an entry, not calendar
  days in the range. Absence is not implicitly zero-pay - a day with no
  entry simply was not worked and contributes nothing in either direction.

FORMULA:
  salesEarnings  = totalSales × salesPercentage
  periodBaseRate = baseRate × workedDays
  grossPay       = periodBaseRate + salesEarnings − totalPenalties

ROUNDING:
  Percentage values are exact fractions and intermediate sums are never
  rounded. Rounding to currency precision happens exactly once, on the
  final grossPay, half-up to two decimal places. This avoids compounding
  rounding error across per-entry sums.

EDGE CASES:
  - Empty entry set: all totals zero, grossPay = 0, not an error
  - Negative grossPay (penalties exceed earnings): returned as-is;
    clamping to zero is a presentation decision owned by the caller

SEE ALSO:
  - rules.go: Rate resolution
  - ledger.go: Entry listing
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the smallest currency unit: two decimal places.
const currencyPlaces = 2

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator derives compensation breakdowns from the ledger and rule set.
// It holds no state and never caches across ledger mutations: every
// computation re-reads the entries and the rules.
type Calculator struct {
	Employees EmployeeStore
	Ledger    *WorkLedger
	Resolver  *RateResolver
}

func NewCalculator(employees EmployeeStore, ledger *WorkLedger, resolver *RateResolver) *Calculator {
	return &Calculator{Employees: employees, Ledger: ledger, Resolver: resolver}
}

// ComputeBreakdown computes the compensation breakdown for one employee
// over an inclusive date range.
func (c *Calculator) ComputeBreakdown(ctx context.Context, employeeID EmployeeID, rng DateRange) (CompensationBreakdown, error) {
	if err := rng.Validate(); err != nil {
		return CompensationBreakdown{}, err
	}

	emp, err := c.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return CompensationBreakdown{}, err
	}

	rate, err := c.Resolver.ResolveRate(ctx, emp)
	if err != nil {
		return CompensationBreakdown{}, err
	}

	entries, err := c.Ledger.ListEntries(ctx, employeeID, rng)
	if err != nil {
		return CompensationBreakdown{}, err
	}

	return Summarize(employeeID, rng, rate, entries), nil
}

// =============================================================================
// PURE AGGREGATION
// =============================================================================

// Summarize is the pure core of the calculator: entries + rate in,
// breakdown out. Exposed so tests and batch jobs can aggregate without a
// store.
func Summarize(employeeID EmployeeID, rng DateRange, rate ResolvedRate, entries []WorkDayEntry) CompensationBreakdown {
	var (
		totalSales     = decimal.Zero
		totalPenalties = decimal.Zero
	)
	seenDates := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		totalSales = totalSales.Add(e.Sales)
		totalPenalties = totalPenalties.Add(e.Penalties)
		seenDates[e.Date.String()] = struct{}{}
	}

	workedDays := len(seenDates)
	salesEarnings := totalSales.Mul(rate.SalesPercentage)
	periodBaseRate := rate.BaseRate.Mul(decimal.NewFromInt(int64(workedDays)))
	gross := periodBaseRate.Add(salesEarnings).Sub(totalPenalties)

	return CompensationBreakdown{
		EmployeeID:      employeeID,
		Range:           rng,
		WorkedDays:      workedDays,
		BaseRate:        rate.BaseRate,
		SalesPercentage: rate.SalesPercentage,
		TotalSales:      totalSales,
		TotalPenalties:  totalPenalties,
		SalesEarnings:   salesEarnings,
		PeriodBaseRate:  periodBaseRate,
		GrossPay:        roundHalfUp(gross, currencyPlaces),
	}
}

// roundHalfUp rounds to the given number of decimal places, halves away
// from zero. decimal.Round implements exactly that.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
