/*
Package sqlite provides a SQLite-backed implementation of the payroll
storage interfaces.

PURPOSE:
  Implements EmployeeStore, EntryStore, RuleStore and AuditLog on SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  employees:          Roster with optional per-employee rate overrides
  work_entries:       One canonical row per (employee_id, entry_date)
  compensation_rules: Position defaults
  audit_log:          Append-only who-did-what record

CONCURRENCY:
  work_entries carries a version column. Updates are conditional on the
  version the caller read; a zero-row update under contention is reported
  as ConflictError. Combined with the ledger's per-employee locks this
  guarantees two concurrent writes to the same (employee, date) never
  both apply.

ERROR MAPPING:
  - UNIQUE constraint on (employee_id, entry_date) -> DuplicateDateError
  - Conditional update misses                      -> ConflictError / NotFoundError
  - Everything else from the driver                -> StorageError
  Masking a driver failure as a validation error would break the caller's
  retry logic, so the wrapping here is deliberate and total.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: Interface definitions and error contract
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements all payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		base_rate TEXT,
		sales_percentage TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_entries (
		employee_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		shop TEXT,
		sales TEXT NOT NULL,
		penalties TEXT NOT NULL,
		notes TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_by TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, entry_date),
		FOREIGN KEY (employee_id) REFERENCES employees(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_work_entries_employee_date
		ON work_entries(employee_id, entry_date);

	CREATE TABLE IF NOT EXISTS compensation_rules (
		position TEXT PRIMARY KEY,
		base_rate TEXT NOT NULL,
		sales_percentage TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT,
		entry_date TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee ON audit_log(employee_id);
	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, position, base_rate, sales_percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			base_rate = excluded.base_rate,
			sales_percentage = excluded.sales_percentage,
			updated_at = excluded.updated_at
	`,
		string(emp.ID), emp.Name, string(emp.Position),
		nullDecimal(emp.BaseRate), nullDecimal(emp.SalesPercentage),
		emp.CreatedAt.UTC().Format(time.RFC3339), emp.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &payroll.StorageError{Op: "SaveEmployee", Err: err}
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, base_rate, sales_percentage, created_at, updated_at
		FROM employees WHERE id = ?
	`, string(id))

	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Employee{}, &payroll.NotFoundError{Kind: "employee", EmployeeID: id}
	}
	if err != nil {
		return payroll.Employee{}, &payroll.StorageError{Op: "GetEmployee", Err: err}
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, base_rate, sales_percentage, created_at, updated_at
		FROM employees ORDER BY id
	`)
	if err != nil {
		return nil, &payroll.StorageError{Op: "ListEmployees", Err: err}
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, &payroll.StorageError{Op: "ListEmployees", Err: err}
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, &payroll.StorageError{Op: "ListEmployees", Err: err}
	}
	return employees, nil
}

// DeleteEmployee removes the employee row; the FK cascade removes the
// employee's work entries with it. Audit rows are retained: the audit log
// is an append-only record of who did what and outlives its subjects.
func (s *Store) DeleteEmployee(ctx context.Context, id payroll.EmployeeID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, string(id))
	if err != nil {
		return &payroll.StorageError{Op: "DeleteEmployee", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &payroll.StorageError{Op: "DeleteEmployee", Err: err}
	}
	if n == 0 {
		return &payroll.NotFoundError{Kind: "employee", EmployeeID: id}
	}
	return nil
}

// =============================================================================
// WORK ENTRIES - Optimistic versioning
// =============================================================================

func (s *Store) SaveEntry(ctx context.Context, entry payroll.WorkDayEntry) error {
	if entry.Version == 0 {
		return s.insertEntry(ctx, entry)
	}
	return s.updateEntry(ctx, entry)
}

func (s *Store) insertEntry(ctx context.Context, entry payroll.WorkDayEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_entries
			(employee_id, entry_date, shop, sales, penalties, notes, version,
			 created_by, created_at, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
	`,
		string(entry.EmployeeID), entry.Date.String(),
		entry.Shop, entry.Sales.String(), entry.Penalties.String(), entry.Notes,
		entry.CreatedBy, entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.UpdatedBy, entry.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &payroll.DuplicateDateError{EmployeeID: entry.EmployeeID, Date: entry.Date}
		}
		return &payroll.StorageError{Op: "SaveEntry", Err: err}
	}
	return nil
}

func (s *Store) updateEntry(ctx context.Context, entry payroll.WorkDayEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_entries SET
			shop = ?, sales = ?, penalties = ?, notes = ?,
			version = version + 1, updated_by = ?, updated_at = ?
		WHERE employee_id = ? AND entry_date = ? AND version = ?
	`,
		entry.Shop, entry.Sales.String(), entry.Penalties.String(), entry.Notes,
		entry.UpdatedBy, entry.UpdatedAt.UTC().Format(time.RFC3339),
		string(entry.EmployeeID), entry.Date.String(), entry.Version,
	)
	if err != nil {
		return &payroll.StorageError{Op: "SaveEntry", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &payroll.StorageError{Op: "SaveEntry", Err: err}
	}
	if n == 1 {
		return nil
	}

	// The conditional update missed: either the row is gone or another
	// writer bumped the version first.
	var actual int
	err = s.db.QueryRowContext(ctx, `
		SELECT version FROM work_entries WHERE employee_id = ? AND entry_date = ?
	`, string(entry.EmployeeID), entry.Date.String()).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return &payroll.NotFoundError{Kind: "entry", EmployeeID: entry.EmployeeID, Date: entry.Date}
	}
	if err != nil {
		return &payroll.StorageError{Op: "SaveEntry", Err: err}
	}
	return &payroll.ConflictError{
		EmployeeID: entry.EmployeeID,
		Date:       entry.Date,
		Expected:   entry.Version,
		Actual:     actual,
	}
}

func (s *Store) GetEntry(ctx context.Context, employeeID payroll.EmployeeID, date payroll.Date) (payroll.WorkDayEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, entry_date, shop, sales, penalties, notes, version,
		       created_by, created_at, updated_by, updated_at
		FROM work_entries WHERE employee_id = ? AND entry_date = ?
	`, string(employeeID), date.String())

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.WorkDayEntry{}, &payroll.NotFoundError{Kind: "entry", EmployeeID: employeeID, Date: date}
	}
	if err != nil {
		return payroll.WorkDayEntry{}, &payroll.StorageError{Op: "GetEntry", Err: err}
	}
	return entry, nil
}

func (s *Store) LoadEntries(ctx context.Context, employeeID payroll.EmployeeID, rng payroll.DateRange) ([]payroll.WorkDayEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, entry_date, shop, sales, penalties, notes, version,
		       created_by, created_at, updated_by, updated_at
		FROM work_entries
		WHERE employee_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date
	`, string(employeeID), rng.From.String(), rng.To.String())
	if err != nil {
		return nil, &payroll.StorageError{Op: "LoadEntries", Err: err}
	}
	defer rows.Close()

	var entries []payroll.WorkDayEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, &payroll.StorageError{Op: "LoadEntries", Err: err}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &payroll.StorageError{Op: "LoadEntries", Err: err}
	}
	return entries, nil
}

// =============================================================================
// COMPENSATION RULES
// =============================================================================

func (s *Store) LoadRuleSet(ctx context.Context) (payroll.RuleSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, base_rate, sales_percentage FROM compensation_rules
	`)
	if err != nil {
		return nil, &payroll.StorageError{Op: "LoadRuleSet", Err: err}
	}
	defer rows.Close()

	rules := make(payroll.RuleSet)
	for rows.Next() {
		var pos, rate, pct string
		if err := rows.Scan(&pos, &rate, &pct); err != nil {
			return nil, &payroll.StorageError{Op: "LoadRuleSet", Err: err}
		}
		baseRate, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, &payroll.StorageError{Op: "LoadRuleSet", Err: err}
		}
		salesPct, err := decimal.NewFromString(pct)
		if err != nil {
			return nil, &payroll.StorageError{Op: "LoadRuleSet", Err: err}
		}
		position := payroll.Position(pos)
		rules[position] = payroll.CompensationRule{
			Position:        position,
			BaseRate:        baseRate,
			SalesPercentage: salesPct,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &payroll.StorageError{Op: "LoadRuleSet", Err: err}
	}
	return rules, nil
}

func (s *Store) SaveRuleSet(ctx context.Context, rules payroll.RuleSet) error {
	if err := rules.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &payroll.StorageError{Op: "SaveRuleSet", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM compensation_rules`); err != nil {
		return &payroll.StorageError{Op: "SaveRuleSet", Err: err}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, rule := range rules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO compensation_rules (position, base_rate, sales_percentage, updated_at)
			VALUES (?, ?, ?, ?)
		`, string(rule.Position), rule.BaseRate.String(), rule.SalesPercentage.String(), now)
		if err != nil {
			return &payroll.StorageError{Op: "SaveRuleSet", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &payroll.StorageError{Op: "SaveRuleSet", Err: err}
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry payroll.AuditEntry) error {
	var payloadJSON []byte
	if entry.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(entry.Payload)
		if err != nil {
			return &payroll.StorageError{Op: "AppendAudit", Err: err}
		}
	}
	var entryDate any
	if !entry.Date.IsZero() {
		entryDate = entry.Date.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, actor_id, actor_role, action, employee_id, entry_date, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339),
		entry.ActorID, entry.ActorRole, string(entry.Action),
		string(entry.EmployeeID), entryDate, string(payloadJSON),
	)
	if err != nil {
		return &payroll.StorageError{Op: "AppendAudit", Err: err}
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, filter payroll.AuditFilter) ([]payroll.AuditEntry, error) {
	query := `
		SELECT id, ts, actor_id, actor_role, action, employee_id, entry_date, payload_json
		FROM audit_log WHERE 1=1`
	var args []any
	if filter.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, string(*filter.EmployeeID))
	}
	if filter.ActorID != nil {
		query += ` AND actor_id = ?`
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		query += ` AND action IN (?` + strings.Repeat(",?", len(filter.Actions)-1) + `)`
		for _, a := range filter.Actions {
			args = append(args, string(a))
		}
	}
	if filter.From != nil {
		query += ` AND ts >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		query += ` AND ts <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY ts`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &payroll.StorageError{Op: "QueryAudit", Err: err}
	}
	defer rows.Close()

	var result []payroll.AuditEntry
	for rows.Next() {
		var (
			e           payroll.AuditEntry
			ts          string
			employeeID  string
			entryDate   sql.NullString
			payloadJSON sql.NullString
			action      string
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.ActorRole, &action, &employeeID, &entryDate, &payloadJSON); err != nil {
			return nil, &payroll.StorageError{Op: "QueryAudit", Err: err}
		}
		e.Action = payroll.AuditAction(action)
		e.EmployeeID = payroll.EmployeeID(employeeID)
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		if entryDate.Valid {
			if d, err := payroll.ParseDate(entryDate.String); err == nil {
				e.Date = d
			}
		}
		if payloadJSON.Valid && payloadJSON.String != "" {
			_ = json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &payroll.StorageError{Op: "QueryAudit", Err: err}
	}
	return result, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (payroll.Employee, error) {
	var (
		emp                  payroll.Employee
		id, position         string
		baseRate, salesPct   sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &emp.Name, &position, &baseRate, &salesPct, &createdAt, &updatedAt); err != nil {
		return payroll.Employee{}, err
	}
	emp.ID = payroll.EmployeeID(id)
	emp.Position = payroll.Position(position)
	if baseRate.Valid {
		d, err := decimal.NewFromString(baseRate.String)
		if err != nil {
			return payroll.Employee{}, err
		}
		emp.BaseRate = &d
	}
	if salesPct.Valid {
		d, err := decimal.NewFromString(salesPct.String)
		if err != nil {
			return payroll.Employee{}, err
		}
		emp.SalesPercentage = &d
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		emp.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		emp.UpdatedAt = t
	}
	return emp, nil
}

func scanEntry(row rowScanner) (payroll.WorkDayEntry, error) {
	var (
		entry                payroll.WorkDayEntry
		employeeID, date     string
		shop, notes          sql.NullString
		sales, penalties     string
		createdBy, updatedBy sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&employeeID, &date, &shop, &sales, &penalties, &notes,
		&entry.Version, &createdBy, &createdAt, &updatedBy, &updatedAt); err != nil {
		return payroll.WorkDayEntry{}, err
	}
	entry.EmployeeID = payroll.EmployeeID(employeeID)
	d, err := payroll.ParseDate(date)
	if err != nil {
		return payroll.WorkDayEntry{}, err
	}
	entry.Date = d
	entry.Shop = shop.String
	entry.Notes = notes.String
	if entry.Sales, err = decimal.NewFromString(sales); err != nil {
		return payroll.WorkDayEntry{}, err
	}
	if entry.Penalties, err = decimal.NewFromString(penalties); err != nil {
		return payroll.WorkDayEntry{}, err
	}
	entry.CreatedBy = createdBy.String
	entry.UpdatedBy = updatedBy.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entry.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		entry.UpdatedAt = t
	}
	return entry, nil
}

// =============================================================================
// DRIVER ERROR HELPERS
// =============================================================================

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
