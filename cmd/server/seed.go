/*
seed.go - Demo data loading

PURPOSE:
  Populates a fresh database with a small roster, the default rule set,
  and a week of work entries, so the API is explorable immediately.
  Runs through the access gate under a synthetic admin principal, the
  same path real callers take.
*/
package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

func seedDemo(ctx context.Context, gate *access.Gate, logger *zap.Logger) error {
	admin := access.Principal{ID: "seed", Role: access.RoleAdmin}

	rules, err := factory.ParseRuleSet(factory.DefaultRuleSetJSON)
	if err != nil {
		return err
	}
	if err := gate.ReplaceRuleSet(ctx, admin, rules); err != nil {
		return err
	}

	employees := []payroll.Employee{
		{ID: "emp-001", Name: "Alice Novak", Position: payroll.PositionSeller},
		{ID: "emp-002", Name: "Boris Ivanov", Position: payroll.PositionSeller,
			SalesPercentage: payroll.DecimalPtr(payroll.MustDecimal("0.15"))},
		{ID: "emp-003", Name: "Clara Osei", Position: payroll.PositionManager},
		{ID: "emp-004", Name: "Denis Petrov", Position: payroll.PositionCourier},
	}
	for _, emp := range employees {
		err := gate.CreateEmployee(ctx, admin, emp)
		if err != nil && !errors.Is(err, payroll.ErrValidation) {
			return err
		}
	}

	// A week of entries for the sellers.
	start := payroll.Today().AddDays(-7)
	sales := []string{"1200", "0", "980", "1500", "0", "2100", "760"}
	for i, s := range sales {
		entry := payroll.WorkDayEntry{
			Date:  start.AddDays(i),
			Shop:  "shop-central",
			Sales: payroll.MustDecimal(s),
		}
		if i == 2 {
			entry.Penalties = payroll.MustDecimal("50")
			entry.Notes = "late opening"
		}
		if _, err := gate.AppendEntry(ctx, admin, "emp-001", entry); err != nil &&
			!errors.Is(err, payroll.ErrDuplicateDate) {
			return err
		}
	}

	logger.Info("demo data seeded",
		zap.Int("employees", len(employees)),
		zap.Int("entries", len(sales)),
	)
	return nil
}
