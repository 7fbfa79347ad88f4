/*
store.go - Persistence interfaces for employees, entries, rules, and audit

PURPOSE:
  Defines the contract between the engine and the database. The engine
  never assumes cross-entity transactions: every operation here is atomic
  at the single-entity level only, and the ledger layers its own
  per-employee serialization on top.

KEY INTERFACES:
  EmployeeStore: Employee records
  EntryStore:    Work-day entries with optimistic versioning
  RuleStore:     Position rule set
  AuditLog:      Append-only who-did-what record

OPTIMISTIC VERSIONING:
  SaveEntry carries the version the caller read (0 for inserts). An
  implementation must fail with ConflictError when the stored version
  differs - two concurrent writers for the same (employee, date) must
  never both apply.

ERROR CONTRACT:
  Implementations return the typed errors from errors.go: NotFoundError,
  ConflictError, and StorageError for driver-level failures. Masking a
  storage failure as anything else breaks the caller's retry logic.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - payroll/store: In-memory for testing/dev

SEE ALSO:
  - ledger.go: Higher-level operations using these interfaces
  - store/sqlite/sqlite.go: Concrete implementation
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	// SaveEmployee inserts or updates an employee record.
	SaveEmployee(ctx context.Context, emp Employee) error

	// GetEmployee returns the employee or NotFoundError.
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)

	// ListEmployees returns all employees ordered by ID.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// DeleteEmployee removes an employee and their work entries. An
	// explicit, audited operation; audit rows are retained. Returns
	// NotFoundError if the employee doesn't exist.
	DeleteEmployee(ctx context.Context, id EmployeeID) error
}

// =============================================================================
// ENTRY STORE - Work-day entries with optimistic versioning
// =============================================================================

type EntryStore interface {
	// SaveEntry inserts (entry.Version == 0) or updates an entry.
	// On update, fails with ConflictError if the stored version differs
	// from entry.Version; on success the stored version is incremented.
	// Insert fails with DuplicateDateError if the (employee, date) row
	// already exists.
	SaveEntry(ctx context.Context, entry WorkDayEntry) error

	// GetEntry returns the canonical entry for (employee, date),
	// or NotFoundError.
	GetEntry(ctx context.Context, employeeID EmployeeID, date Date) (WorkDayEntry, error)

	// LoadEntries returns entries in [from, to] inclusive, ordered by date.
	LoadEntries(ctx context.Context, employeeID EmployeeID, rng DateRange) ([]WorkDayEntry, error)
}

// =============================================================================
// RULE STORE
// =============================================================================

type RuleStore interface {
	// LoadRuleSet returns the full position rule table.
	LoadRuleSet(ctx context.Context) (RuleSet, error)

	// SaveRuleSet replaces the position rule table.
	SaveRuleSet(ctx context.Context, rules RuleSet) error
}

// =============================================================================
// AUDIT LOG - Separate from the ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when. Append-only.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string
	ActorRole  string
	Action     AuditAction
	EmployeeID EmployeeID
	Date       Date           // zero when the action isn't day-scoped
	Payload    map[string]any // action-specific data
}

type AuditAction string

const (
	AuditEntryAppended   AuditAction = "entry_appended"
	AuditEntryEdited     AuditAction = "entry_edited"
	AuditEntryMerged     AuditAction = "entry_merged"
	AuditEmployeeCreated AuditAction = "employee_created"
	AuditEmployeeUpdated AuditAction = "employee_updated"
	AuditEmployeeDeleted AuditAction = "employee_deleted"
	AuditRulesReplaced   AuditAction = "rules_replaced"
)

type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EmployeeID *EmployeeID
	ActorID    *string
	Actions    []AuditAction
	From       *time.Time
	To         *time.Time
}

// Store bundles everything the engine needs from persistence. Concrete
// stores implement all of it; the engine's constructors accept the narrow
// interfaces so tests can fake one concern at a time.
type Store interface {
	EmployeeStore
	EntryStore
	RuleStore
	AuditLog
}
