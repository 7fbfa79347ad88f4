/*
ledger.go - Per-employee work-record ledger

PURPOSE:
  The WorkLedger is the source of truth for per-day work records. It owns
  the canonical-record invariant: at most one entry per (employee, date).
  Same-day collisions are never silently overwritten - the configured
  merge policy either rejects them or explicitly accumulates them.

CRITICAL INVARIANTS:
  1. One canonical entry per (employee, date)
  2. Sales and penalties are non-negative
  3. Dates never lie in the future beyond the configured grace window
  4. Every mutation is attributed (actor, timestamp) in the audit log
  5. Two concurrent writes to the same (employee, date) never both apply;
     the loser fails with ConflictError

CONCURRENCY:
  Appends for the same employee are serialized through an in-process
  keyed lock table (check-then-insert and merge accumulation need the
  atomicity); different employees proceed in parallel with no shared
  mutable state. Edits rely on the store's optimistic version check
  instead, which also covers multi-process deployments.

MERGE POLICY:
  MergeReject (default): appending to an occupied day fails with
  DuplicateDateError. The caller decides whether to edit instead.

  MergeAccumulate: sales and penalties are summed, notes concatenated.
  Must be chosen explicitly in configuration; it changes the meaning of
  "append" from insert to upsert-by-sum.

AUTHORIZATION:
  The ledger trusts the access gate (access/gate.go) to have authorized
  the call. The actor is recorded, not re-checked.

SEE ALSO:
  - store.go: Persistence interfaces
  - calculator.go: Aggregates ledger slices into breakdowns
  - access/gate.go: The authorization wrapper in front of this type
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MERGE POLICY
// =============================================================================

// MergePolicy decides what happens when an append targets a day that
// already has a canonical record.
type MergePolicy string

const (
	// MergeReject fails the append with DuplicateDateError.
	MergeReject MergePolicy = "reject"

	// MergeAccumulate sums sales/penalties and concatenates notes.
	MergeAccumulate MergePolicy = "accumulate"
)

func (p MergePolicy) Valid() bool { return p == MergeReject || p == MergeAccumulate }

// =============================================================================
// WORK LEDGER
// =============================================================================

// LedgerConfig carries the explicit policy choices the ledger refuses to
// default silently.
type LedgerConfig struct {
	// MergePolicy for same-day appends. Default MergeReject.
	MergePolicy MergePolicy

	// GraceDays is how many days into the future an entry date may lie.
	// 0 means today is the latest permitted date.
	GraceDays int

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// WorkLedger maintains the per-employee work-day entries. Construct with
// NewWorkLedger; the zero value is not usable.
type WorkLedger struct {
	employees EmployeeStore
	entries   EntryStore
	audit     AuditLog
	cfg       LedgerConfig

	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

// NewWorkLedger wires a ledger to its persistence collaborators. The store
// handle is injected here; its lifecycle belongs to the process bootstrap.
func NewWorkLedger(employees EmployeeStore, entries EntryStore, audit AuditLog, cfg LedgerConfig) *WorkLedger {
	if cfg.MergePolicy == "" {
		cfg.MergePolicy = MergeReject
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WorkLedger{
		employees: employees,
		entries:   entries,
		audit:     audit,
		cfg:       cfg,
		locks:     make(map[EmployeeID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing writes for one employee.
func (l *WorkLedger) lockFor(id EmployeeID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[id] = lk
	}
	return lk
}

// =============================================================================
// APPEND
// =============================================================================

// AppendEntry validates and inserts a work-day entry. On a same-day
// collision the configured merge policy applies. The actor is recorded in
// the audit log on success.
func (l *WorkLedger) AppendEntry(ctx context.Context, actor Actor, employeeID EmployeeID, entry WorkDayEntry) (WorkDayEntry, error) {
	entry.EmployeeID = employeeID
	if err := l.validateEntry(entry); err != nil {
		return WorkDayEntry{}, err
	}
	if _, err := l.employees.GetEmployee(ctx, employeeID); err != nil {
		return WorkDayEntry{}, err
	}

	lk := l.lockFor(employeeID)
	lk.Lock()
	defer lk.Unlock()

	now := l.cfg.Now().UTC()
	existing, err := l.entries.GetEntry(ctx, employeeID, entry.Date)
	switch {
	case err == nil:
		if l.cfg.MergePolicy == MergeReject {
			return WorkDayEntry{}, &DuplicateDateError{EmployeeID: employeeID, Date: entry.Date}
		}
		merged := mergeEntries(existing, entry)
		merged.UpdatedBy = actor.ID
		merged.UpdatedAt = now
		if err := l.entries.SaveEntry(ctx, merged); err != nil {
			return WorkDayEntry{}, err
		}
		l.recordAudit(ctx, actor, AuditEntryMerged, employeeID, entry.Date, map[string]any{
			"sales":     entry.Sales.String(),
			"penalties": entry.Penalties.String(),
		})
		merged.Version++
		return merged, nil

	case IsNotFound(err):
		entry.Version = 0
		entry.CreatedBy = actor.ID
		entry.CreatedAt = now
		entry.UpdatedBy = actor.ID
		entry.UpdatedAt = now
		if err := l.entries.SaveEntry(ctx, entry); err != nil {
			return WorkDayEntry{}, err
		}
		l.recordAudit(ctx, actor, AuditEntryAppended, employeeID, entry.Date, map[string]any{
			"sales":     entry.Sales.String(),
			"penalties": entry.Penalties.String(),
			"shop":      entry.Shop,
		})
		entry.Version = 1
		return entry, nil

	default:
		return WorkDayEntry{}, err
	}
}

// =============================================================================
// EDIT
// =============================================================================

// EditEntry applies a partial patch to an existing entry. Fails with
// NotFoundError if no entry exists for that date, and with ConflictError
// if a concurrent edit won the version race.
//
// Unlike AppendEntry, edits take no keyed lock: the entry is saved with
// the version it was read at, and the store's optimistic check ensures
// that of two racing edits exactly one applies and the loser fails with
// ConflictError instead of silently overwriting.
func (l *WorkLedger) EditEntry(ctx context.Context, actor Actor, employeeID EmployeeID, date Date, patch EntryPatch) (WorkDayEntry, error) {
	if err := validatePatch(patch); err != nil {
		return WorkDayEntry{}, err
	}

	entry, err := l.entries.GetEntry(ctx, employeeID, date)
	if err != nil {
		return WorkDayEntry{}, err
	}

	applyPatch(&entry, patch)
	entry.UpdatedBy = actor.ID
	entry.UpdatedAt = l.cfg.Now().UTC()

	if err := l.entries.SaveEntry(ctx, entry); err != nil {
		return WorkDayEntry{}, err
	}
	l.recordAudit(ctx, actor, AuditEntryEdited, employeeID, date, patchPayload(patch))
	entry.Version++
	return entry, nil
}

// =============================================================================
// LIST
// =============================================================================

// ListEntries returns the entries in [from, to] inclusive, ordered by date.
// An empty range or an empty ledger yields an empty slice, not an error.
func (l *WorkLedger) ListEntries(ctx context.Context, employeeID EmployeeID, rng DateRange) ([]WorkDayEntry, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return l.entries.LoadEntries(ctx, employeeID, rng)
}

// =============================================================================
// VALIDATION
// =============================================================================

func (l *WorkLedger) validateEntry(entry WorkDayEntry) error {
	if entry.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "required"}
	}
	latest := DateOf(l.cfg.Now().UTC()).AddDays(l.cfg.GraceDays)
	if entry.Date.After(latest) {
		return &ValidationError{Field: "date", Message: "in the future beyond grace window"}
	}
	if entry.Sales.IsNegative() {
		return &ValidationError{Field: "sales", Message: "must be non-negative"}
	}
	if entry.Penalties.IsNegative() {
		return &ValidationError{Field: "penalties", Message: "must be non-negative"}
	}
	return nil
}

func validatePatch(patch EntryPatch) error {
	if patch.IsEmpty() {
		return &ValidationError{Field: "patch", Message: "no fields to update"}
	}
	if patch.Sales != nil && patch.Sales.IsNegative() {
		return &ValidationError{Field: "sales", Message: "must be non-negative"}
	}
	if patch.Penalties != nil && patch.Penalties.IsNegative() {
		return &ValidationError{Field: "penalties", Message: "must be non-negative"}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mergeEntries(existing, incoming WorkDayEntry) WorkDayEntry {
	merged := existing
	merged.Sales = existing.Sales.Add(incoming.Sales)
	merged.Penalties = existing.Penalties.Add(incoming.Penalties)
	if incoming.Notes != "" {
		if merged.Notes != "" {
			merged.Notes += "; "
		}
		merged.Notes += incoming.Notes
	}
	if incoming.Shop != "" {
		merged.Shop = incoming.Shop
	}
	return merged
}

func applyPatch(entry *WorkDayEntry, patch EntryPatch) {
	if patch.Shop != nil {
		entry.Shop = *patch.Shop
	}
	if patch.Sales != nil {
		entry.Sales = *patch.Sales
	}
	if patch.Penalties != nil {
		entry.Penalties = *patch.Penalties
	}
	if patch.Notes != nil {
		entry.Notes = *patch.Notes
	}
}

func patchPayload(patch EntryPatch) map[string]any {
	payload := make(map[string]any)
	if patch.Shop != nil {
		payload["shop"] = *patch.Shop
	}
	if patch.Sales != nil {
		payload["sales"] = patch.Sales.String()
	}
	if patch.Penalties != nil {
		payload["penalties"] = patch.Penalties.String()
	}
	if patch.Notes != nil {
		payload["notes"] = *patch.Notes
	}
	return payload
}

// recordAudit appends to the audit log. Audit failures do not roll back
// the mutation; the write already happened and the audit log is not a
// second source of truth.
func (l *WorkLedger) recordAudit(ctx context.Context, actor Actor, action AuditAction, employeeID EmployeeID, date Date, payload map[string]any) {
	if l.audit == nil {
		return
	}
	_ = l.audit.AppendAudit(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  l.cfg.Now().UTC(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EmployeeID: employeeID,
		Date:       date,
		Payload:    payload,
	})
}
