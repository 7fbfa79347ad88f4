package access

import (
	"errors"
	"fmt"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// OPERATIONS
// =============================================================================

// Operation names each guarded entry point. The authorization rules
// classify operations into reads, entry writes, and administrative
// actions; adding an operation means placing it in exactly one class.
type Operation string

const (
	OpListEntries    Operation = "list_entries"
	OpReadEmployee   Operation = "read_employee"
	OpListEmployees  Operation = "list_employees"
	OpComputePay     Operation = "compute_pay"
	OpAppendEntry    Operation = "append_entry"
	OpEditEntry      Operation = "edit_entry"
	OpCreateEmployee Operation = "create_employee"
	OpUpdateEmployee Operation = "update_employee"
	OpDeleteEmployee Operation = "delete_employee"
	OpReadRules      Operation = "read_rules"
	OpUpdateRules    Operation = "update_rules"
	OpReadAudit      Operation = "read_audit"
)

// isRead covers the target-scoped reads an employee principal may perform
// on its own records. The roster listing has no "own" subset and is
// classed separately.
func (op Operation) isRead() bool {
	switch op {
	case OpListEntries, OpReadEmployee, OpComputePay:
		return true
	}
	return false
}

func (op Operation) isEntryWrite() bool {
	return op == OpAppendEntry || op == OpEditEntry
}

// =============================================================================
// DECISION
// =============================================================================

// DenyReason is the machine-readable cause of a denial.
type DenyReason string

const (
	DenyInsufficientRole DenyReason = "insufficient-role"
	DenyNotOwner         DenyReason = "not-owner"
)

// Decision is the outcome of an authorization check. Denial is an
// expected, first-class outcome - never a panic, never conflated with
// validation failures.
type Decision struct {
	Allowed bool
	Reason  DenyReason // set when !Allowed
}

var allowed = Decision{Allowed: true}

func denied(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// =============================================================================
// AUTHORIZE - Pure decision function, first match wins
// =============================================================================

// Authorize decides whether the principal may perform op against the
// target employee. Pure: no side effects, no I/O, no locking.
//
// Rules, evaluated in order:
//  1. admin: everything
//  2. manager: all reads, entry writes for anyone; administrative
//     actions denied
//  3. employee: reads of its own records only; all writes denied
func Authorize(p Principal, op Operation, target payroll.EmployeeID) Decision {
	switch p.Role {
	case RoleAdmin:
		return allowed

	case RoleManager:
		if op.isRead() || op.isEntryWrite() || op == OpListEmployees || op == OpReadRules {
			return allowed
		}
		return denied(DenyInsufficientRole)

	case RoleEmployee:
		if !op.isRead() {
			return denied(DenyInsufficientRole)
		}
		if target != p.EmployeeID {
			return denied(DenyNotOwner)
		}
		return allowed

	default:
		return denied(DenyInsufficientRole)
	}
}

// =============================================================================
// DENIED ERROR
// =============================================================================

// ErrDenied is the sentinel for authorization denials.
var ErrDenied = errors.New("access denied")

// DeniedError carries the denial context across the gate boundary.
type DeniedError struct {
	Principal string
	Operation Operation
	Target    payroll.EmployeeID
	Reason    DenyReason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s may not %s on %s (%s)",
		e.Principal, e.Operation, e.Target, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// IsDenied returns true if the error is an authorization denial.
func IsDenied(err error) bool { return errors.Is(err, ErrDenied) }
