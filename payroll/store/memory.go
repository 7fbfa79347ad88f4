// Package store provides in-memory implementations of the payroll
// persistence interfaces, used for testing and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[payroll.EmployeeID]payroll.Employee
	entries   map[entryKey]payroll.WorkDayEntry
	rules     payroll.RuleSet
	audit     []payroll.AuditEntry
}

type entryKey struct {
	EmployeeID payroll.EmployeeID
	Date       string // canonical "2006-01-02" form
}

var _ payroll.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[payroll.EmployeeID]payroll.Employee),
		entries:   make(map[entryKey]payroll.WorkDayEntry),
		rules:     make(payroll.RuleSet),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return payroll.Employee{}, &payroll.NotFoundError{Kind: "employee", EmployeeID: id}
	}
	return emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteEmployee removes the employee and their work entries, matching
// the sqlite store's FK cascade. Audit rows are retained.
func (m *Memory) DeleteEmployee(_ context.Context, id payroll.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return &payroll.NotFoundError{Kind: "employee", EmployeeID: id}
	}
	delete(m.employees, id)
	for k := range m.entries {
		if k.EmployeeID == id {
			delete(m.entries, k)
		}
	}
	return nil
}

// =============================================================================
// ENTRIES - Optimistic versioning mirrors the SQLite store exactly
// =============================================================================

func (m *Memory) SaveEntry(_ context.Context, entry payroll.WorkDayEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := entryKey{EmployeeID: entry.EmployeeID, Date: entry.Date.String()}
	existing, exists := m.entries[k]

	if entry.Version == 0 {
		if exists {
			return &payroll.DuplicateDateError{EmployeeID: entry.EmployeeID, Date: entry.Date}
		}
		entry.Version = 1
		m.entries[k] = entry
		return nil
	}

	if !exists {
		return &payroll.NotFoundError{Kind: "entry", EmployeeID: entry.EmployeeID, Date: entry.Date}
	}
	if existing.Version != entry.Version {
		return &payroll.ConflictError{
			EmployeeID: entry.EmployeeID,
			Date:       entry.Date,
			Expected:   entry.Version,
			Actual:     existing.Version,
		}
	}
	entry.Version++
	m.entries[k] = entry
	return nil
}

func (m *Memory) GetEntry(_ context.Context, employeeID payroll.EmployeeID, date payroll.Date) (payroll.WorkDayEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[entryKey{EmployeeID: employeeID, Date: date.String()}]
	if !ok {
		return payroll.WorkDayEntry{}, &payroll.NotFoundError{Kind: "entry", EmployeeID: employeeID, Date: date}
	}
	return entry, nil
}

func (m *Memory) LoadEntries(_ context.Context, employeeID payroll.EmployeeID, rng payroll.DateRange) ([]payroll.WorkDayEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.WorkDayEntry
	for k, entry := range m.entries {
		if k.EmployeeID != employeeID {
			continue
		}
		if rng.Contains(entry.Date) {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// RULES
// =============================================================================

func (m *Memory) LoadRuleSet(_ context.Context) (payroll.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(payroll.RuleSet, len(m.rules))
	for pos, rule := range m.rules {
		out[pos] = rule
	}
	return out, nil
}

func (m *Memory) SaveRuleSet(_ context.Context, rules payroll.RuleSet) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make(payroll.RuleSet, len(rules))
	for pos, rule := range rules {
		m.rules[pos] = rule
	}
	return nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry payroll.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter payroll.AuditFilter) ([]payroll.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.AuditEntry
	for _, e := range m.audit {
		if filter.EmployeeID != nil && e.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func containsAction(actions []payroll.AuditAction, a payroll.AuditAction) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
