/*
rules.go - Position rule set and rate resolution

PURPOSE:
  Maps each position to its compensation defaults {baseRate,
  salesPercentage} and resolves the effective rate for an employee:
  per-employee overrides win, then the position default, and a position
  with no default is a configuration bug surfaced as MissingRuleError -
  never a silent zero.

INVARIANTS:
  - salesPercentage is a fraction in [0, 1], never a percentage-as-100
  - baseRate is non-negative
  Both are checked on rule-set construction and on every save.

SEE ALSO:
  - calculator.go: Consumes ResolvedRate
  - factory/rules.go: JSON rule definitions
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPENSATION RULE - Defaults for one position
// =============================================================================

// CompensationRule holds the compensation defaults for one position.
type CompensationRule struct {
	Position        Position
	BaseRate        decimal.Decimal
	SalesPercentage decimal.Decimal
}

// Validate checks the rule invariants.
func (r CompensationRule) Validate() error {
	if !r.Position.Valid() {
		return &ValidationError{Field: "position", Message: "unknown position " + string(r.Position)}
	}
	if r.BaseRate.IsNegative() {
		return &RuleBoundsError{Position: r.Position, Field: "baseRate", Value: r.BaseRate}
	}
	if r.SalesPercentage.IsNegative() || r.SalesPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return &RuleBoundsError{Position: r.Position, Field: "salesPercentage", Value: r.SalesPercentage}
	}
	return nil
}

// RuleSet maps positions to their defaults. Not every position needs an
// entry, but resolving a rate for an unconfigured position fails loudly.
type RuleSet map[Position]CompensationRule

// Validate checks every rule in the set.
func (rs RuleSet) Validate() error {
	for pos, rule := range rs {
		if pos != rule.Position {
			return &ValidationError{Field: "position", Message: "rule keyed under wrong position"}
		}
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// RESOLVED RATE - Effective values for one employee
// =============================================================================

// ResolvedRate is the effective {baseRate, salesPercentage} for an employee
// after applying override precedence. Resolution is pure: resolving twice
// without an intervening rule change yields identical values.
type ResolvedRate struct {
	BaseRate        decimal.Decimal
	SalesPercentage decimal.Decimal
}

// Resolve computes the effective rate for an employee. Employee overrides
// take precedence field by field; missing fields fall back to the position
// default. With no default and an incomplete override, MissingRuleError.
func (rs RuleSet) Resolve(emp Employee) (ResolvedRate, error) {
	rule, hasDefault := rs[emp.Position]

	if emp.BaseRate != nil && emp.SalesPercentage != nil {
		return ResolvedRate{BaseRate: *emp.BaseRate, SalesPercentage: *emp.SalesPercentage}, nil
	}
	if !hasDefault {
		return ResolvedRate{}, &MissingRuleError{Position: emp.Position}
	}

	resolved := ResolvedRate{BaseRate: rule.BaseRate, SalesPercentage: rule.SalesPercentage}
	if emp.BaseRate != nil {
		resolved.BaseRate = *emp.BaseRate
	}
	if emp.SalesPercentage != nil {
		resolved.SalesPercentage = *emp.SalesPercentage
	}
	return resolved, nil
}

// =============================================================================
// RATE RESOLVER - Rule set lookup bound to a store
// =============================================================================

// RateResolver loads the rule set from its store on every resolution, so
// rule changes take effect without restarts and nothing is cached across
// ledger mutations.
type RateResolver struct {
	Rules RuleStore
}

func NewRateResolver(rules RuleStore) *RateResolver {
	return &RateResolver{Rules: rules}
}

func (rr *RateResolver) ResolveRate(ctx context.Context, emp Employee) (ResolvedRate, error) {
	rs, err := rr.Rules.LoadRuleSet(ctx)
	if err != nil {
		return ResolvedRate{}, err
	}
	return rs.Resolve(emp)
}
