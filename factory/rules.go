/*
Package factory provides JSON to Go rule-set conversion.

PURPOSE:
  Converts JSON rule definitions into payroll.RuleSet values. This
  enables compensation configuration without code changes - an
  administrator can define position rates in JSON, store them in the
  database, and the factory creates the proper Go structs.

JSON SCHEMA:
  {
    "rules": [
      {"position": "seller",  "base_rate": "500",  "sales_percentage": "0.1"},
      {"position": "courier", "base_rate": "400",  "sales_percentage": "0"}
    ]
  }

  base_rate and sales_percentage are strings to keep decimal values exact
  through JSON; sales_percentage is a fraction in [0,1].

USAGE:
  rules, err := factory.ParseRuleSet(jsonString)
  // or start from the built-in defaults:
  rules, _ := factory.ParseRuleSet(factory.DefaultRuleSetJSON)

SEE ALSO:
  - payroll/rules.go: RuleSet type and invariants
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is the JSON representation of a rule set.
type RuleSetJSON struct {
	Rules []RuleJSON `json:"rules"`
}

type RuleJSON struct {
	Position        string `json:"position"`
	BaseRate        string `json:"base_rate"`
	SalesPercentage string `json:"sales_percentage"`
}

// DefaultRuleSetJSON covers every position with plausible starter rates.
// Used by the -seed flag and as a template for administrators.
const DefaultRuleSetJSON = `{
  "rules": [
    {"position": "seller",  "base_rate": "500", "sales_percentage": "0.1"},
    {"position": "admin",   "base_rate": "700", "sales_percentage": "0"},
    {"position": "manager", "base_rate": "800", "sales_percentage": "0.05"},
    {"position": "courier", "base_rate": "450", "sales_percentage": "0"}
  ]
}`

// =============================================================================
// PARSING
// =============================================================================

// ParseRuleSet converts a JSON document into a validated RuleSet.
func ParseRuleSet(raw string) (payroll.RuleSet, error) {
	var doc RuleSetJSON
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid rule set JSON: %w", err)
	}
	return FromJSON(doc)
}

// FromJSON converts the decoded schema into a validated RuleSet.
func FromJSON(doc RuleSetJSON) (payroll.RuleSet, error) {
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rule set has no rules")
	}

	rules := make(payroll.RuleSet, len(doc.Rules))
	for _, r := range doc.Rules {
		pos := payroll.Position(r.Position)
		if _, dup := rules[pos]; dup {
			return nil, fmt.Errorf("duplicate rule for position %q", r.Position)
		}
		baseRate, err := decimal.NewFromString(r.BaseRate)
		if err != nil {
			return nil, fmt.Errorf("position %q: invalid base_rate %q: %w", r.Position, r.BaseRate, err)
		}
		salesPct, err := decimal.NewFromString(r.SalesPercentage)
		if err != nil {
			return nil, fmt.Errorf("position %q: invalid sales_percentage %q: %w", r.Position, r.SalesPercentage, err)
		}
		rules[pos] = payroll.CompensationRule{
			Position:        pos,
			BaseRate:        baseRate,
			SalesPercentage: salesPct,
		}
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ToJSON renders a rule set back into its JSON schema, in stable
// position order.
func ToJSON(rules payroll.RuleSet) RuleSetJSON {
	var doc RuleSetJSON
	for _, pos := range payroll.Positions() {
		rule, ok := rules[pos]
		if !ok {
			continue
		}
		doc.Rules = append(doc.Rules, RuleJSON{
			Position:        string(rule.Position),
			BaseRate:        rule.BaseRate.String(),
			SalesPercentage: rule.SalesPercentage.String(),
		})
	}
	return doc
}
