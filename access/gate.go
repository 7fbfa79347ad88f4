/*
gate.go - Authorization enforcement in front of the engine

PURPOSE:
  Wraps every entry point of the ledger, the calculator, and employee /
  rule administration. The authorization check is a hard precondition:
  on denial, no ledger or calculator code executes and no partial side
  effects can leak from an unauthorized call.

  The transport layer talks ONLY to this type. Nothing below it checks
  permissions again.

SEE ALSO:
  - authorize.go: The decision function applied here
  - payroll/ledger.go, payroll/calculator.go: The guarded collaborators
*/
package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

var one = decimal.NewFromInt(1)

// =============================================================================
// GATE
// =============================================================================

// Gate is the authorized facade over the payroll engine.
type Gate struct {
	Ledger     *payroll.WorkLedger
	Calculator *payroll.Calculator
	Employees  payroll.EmployeeStore
	Rules      payroll.RuleStore
	Audit      payroll.AuditLog

	now func() time.Time
}

func NewGate(ledger *payroll.WorkLedger, calc *payroll.Calculator, employees payroll.EmployeeStore, rules payroll.RuleStore, audit payroll.AuditLog) *Gate {
	return &Gate{
		Ledger:     ledger,
		Calculator: calc,
		Employees:  employees,
		Rules:      rules,
		Audit:      audit,
		now:        time.Now,
	}
}

// check is the single choke point: every public method calls it first.
func (g *Gate) check(p Principal, op Operation, target payroll.EmployeeID) error {
	d := Authorize(p, op, target)
	if d.Allowed {
		return nil
	}
	return &DeniedError{Principal: p.ID, Operation: op, Target: target, Reason: d.Reason}
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

func (g *Gate) AppendEntry(ctx context.Context, p Principal, employeeID payroll.EmployeeID, entry payroll.WorkDayEntry) (payroll.WorkDayEntry, error) {
	if err := g.check(p, OpAppendEntry, employeeID); err != nil {
		return payroll.WorkDayEntry{}, err
	}
	return g.Ledger.AppendEntry(ctx, p.Actor(), employeeID, entry)
}

func (g *Gate) EditEntry(ctx context.Context, p Principal, employeeID payroll.EmployeeID, date payroll.Date, patch payroll.EntryPatch) (payroll.WorkDayEntry, error) {
	if err := g.check(p, OpEditEntry, employeeID); err != nil {
		return payroll.WorkDayEntry{}, err
	}
	return g.Ledger.EditEntry(ctx, p.Actor(), employeeID, date, patch)
}

func (g *Gate) ListEntries(ctx context.Context, p Principal, employeeID payroll.EmployeeID, rng payroll.DateRange) ([]payroll.WorkDayEntry, error) {
	if err := g.check(p, OpListEntries, employeeID); err != nil {
		return nil, err
	}
	return g.Ledger.ListEntries(ctx, employeeID, rng)
}

// =============================================================================
// COMPENSATION
// =============================================================================

func (g *Gate) ComputeBreakdown(ctx context.Context, p Principal, employeeID payroll.EmployeeID, rng payroll.DateRange) (payroll.CompensationBreakdown, error) {
	if err := g.check(p, OpComputePay, employeeID); err != nil {
		return payroll.CompensationBreakdown{}, err
	}
	return g.Calculator.ComputeBreakdown(ctx, employeeID, rng)
}

// =============================================================================
// EMPLOYEE ADMINISTRATION
// =============================================================================

func (g *Gate) CreateEmployee(ctx context.Context, p Principal, emp payroll.Employee) error {
	if err := g.check(p, OpCreateEmployee, emp.ID); err != nil {
		return err
	}
	if err := validateEmployee(emp); err != nil {
		return err
	}
	if _, err := g.Employees.GetEmployee(ctx, emp.ID); err == nil {
		return &payroll.ValidationError{Field: "id", Message: "employee already exists"}
	} else if !payroll.IsNotFound(err) {
		return err
	}
	now := g.now().UTC()
	emp.CreatedAt = now
	emp.UpdatedAt = now
	if err := g.Employees.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	g.recordAudit(ctx, p, payroll.AuditEmployeeCreated, emp.ID, map[string]any{
		"name":     emp.Name,
		"position": string(emp.Position),
	})
	return nil
}

func (g *Gate) GetEmployee(ctx context.Context, p Principal, id payroll.EmployeeID) (payroll.Employee, error) {
	if err := g.check(p, OpReadEmployee, id); err != nil {
		return payroll.Employee{}, err
	}
	return g.Employees.GetEmployee(ctx, id)
}

// ListEmployees is admin/manager-scoped: there is no meaningful "own"
// subset of the roster for an employee principal.
func (g *Gate) ListEmployees(ctx context.Context, p Principal) ([]payroll.Employee, error) {
	if err := g.check(p, OpListEmployees, ""); err != nil {
		return nil, err
	}
	return g.Employees.ListEmployees(ctx)
}

// UpdateEmployee applies explicit field updates: name, position, and the
// per-employee rate overrides.
func (g *Gate) UpdateEmployee(ctx context.Context, p Principal, emp payroll.Employee) error {
	if err := g.check(p, OpUpdateEmployee, emp.ID); err != nil {
		return err
	}
	if err := validateEmployee(emp); err != nil {
		return err
	}
	existing, err := g.Employees.GetEmployee(ctx, emp.ID)
	if err != nil {
		return err
	}
	emp.CreatedAt = existing.CreatedAt
	emp.UpdatedAt = g.now().UTC()
	if err := g.Employees.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	g.recordAudit(ctx, p, payroll.AuditEmployeeUpdated, emp.ID, map[string]any{
		"name":     emp.Name,
		"position": string(emp.Position),
	})
	return nil
}

// DeleteEmployee is explicit and audited; nothing in the engine deletes
// employees as a side effect of anything else.
func (g *Gate) DeleteEmployee(ctx context.Context, p Principal, id payroll.EmployeeID) error {
	if err := g.check(p, OpDeleteEmployee, id); err != nil {
		return err
	}
	if err := g.Employees.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	g.recordAudit(ctx, p, payroll.AuditEmployeeDeleted, id, nil)
	return nil
}

// =============================================================================
// RULE ADMINISTRATION
// =============================================================================

func (g *Gate) GetRuleSet(ctx context.Context, p Principal) (payroll.RuleSet, error) {
	if err := g.check(p, OpReadRules, ""); err != nil {
		return nil, err
	}
	return g.Rules.LoadRuleSet(ctx)
}

func (g *Gate) ReplaceRuleSet(ctx context.Context, p Principal, rules payroll.RuleSet) error {
	if err := g.check(p, OpUpdateRules, ""); err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return err
	}
	if err := g.Rules.SaveRuleSet(ctx, rules); err != nil {
		return err
	}
	positions := make([]string, 0, len(rules))
	for pos := range rules {
		positions = append(positions, string(pos))
	}
	g.recordAudit(ctx, p, payroll.AuditRulesReplaced, "", map[string]any{"positions": positions})
	return nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (g *Gate) QueryAudit(ctx context.Context, p Principal, filter payroll.AuditFilter) ([]payroll.AuditEntry, error) {
	if err := g.check(p, OpReadAudit, ""); err != nil {
		return nil, err
	}
	return g.Audit.QueryAudit(ctx, filter)
}

func (g *Gate) recordAudit(ctx context.Context, p Principal, action payroll.AuditAction, employeeID payroll.EmployeeID, payload map[string]any) {
	if g.Audit == nil {
		return
	}
	_ = g.Audit.AppendAudit(ctx, payroll.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  g.now().UTC(),
		ActorID:    p.ID,
		ActorRole:  string(p.Role),
		Action:     action,
		EmployeeID: employeeID,
		Payload:    payload,
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateEmployee(emp payroll.Employee) error {
	if emp.ID == "" {
		return &payroll.ValidationError{Field: "id", Message: "required"}
	}
	if emp.Name == "" {
		return &payroll.ValidationError{Field: "name", Message: "required"}
	}
	if !emp.Position.Valid() {
		return &payroll.ValidationError{Field: "position", Message: "unknown position " + string(emp.Position)}
	}
	if emp.BaseRate != nil && emp.BaseRate.IsNegative() {
		return &payroll.ValidationError{Field: "baseRate", Message: "must be non-negative"}
	}
	if emp.SalesPercentage != nil {
		if emp.SalesPercentage.IsNegative() || emp.SalesPercentage.GreaterThan(one) {
			return &payroll.ValidationError{Field: "salesPercentage", Message: "must be in [0,1]"}
		}
	}
	return nil
}
