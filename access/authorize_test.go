package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// ROLE MATRIX
// =============================================================================

func TestAuthorize_RoleMatrix(t *testing.T) {
	admin := access.Principal{ID: "u-admin", Role: access.RoleAdmin}
	manager := access.Principal{ID: "u-mgr", Role: access.RoleManager}
	alice := access.Principal{ID: "u-alice", Role: access.RoleEmployee, EmployeeID: "emp-1"}

	tests := []struct {
		name       string
		principal  access.Principal
		op         access.Operation
		target     string
		allowed    bool
		denyReason access.DenyReason
	}{
		// Admin: everything.
		{"admin lists entries", admin, access.OpListEntries, "emp-1", true, ""},
		{"admin appends entry", admin, access.OpAppendEntry, "emp-1", true, ""},
		{"admin creates employee", admin, access.OpCreateEmployee, "", true, ""},
		{"admin updates rules", admin, access.OpUpdateRules, "", true, ""},
		{"admin reads audit", admin, access.OpReadAudit, "", true, ""},

		// Manager: reads and entry writes for anyone, rules read-only,
		// no administrative actions.
		{"manager lists anyone's entries", manager, access.OpListEntries, "emp-1", true, ""},
		{"manager computes anyone's pay", manager, access.OpComputePay, "emp-2", true, ""},
		{"manager appends entry", manager, access.OpAppendEntry, "emp-1", true, ""},
		{"manager edits entry", manager, access.OpEditEntry, "emp-1", true, ""},
		{"manager reads rules", manager, access.OpReadRules, "", true, ""},
		{"manager lists roster", manager, access.OpListEmployees, "", true, ""},
		{"manager cannot create employee", manager, access.OpCreateEmployee, "", false, access.DenyInsufficientRole},
		{"manager cannot delete employee", manager, access.OpDeleteEmployee, "emp-1", false, access.DenyInsufficientRole},
		{"manager cannot update rules", manager, access.OpUpdateRules, "", false, access.DenyInsufficientRole},
		{"manager cannot read audit", manager, access.OpReadAudit, "", false, access.DenyInsufficientRole},

		// Employee: own reads only.
		{"employee lists own entries", alice, access.OpListEntries, "emp-1", true, ""},
		{"employee reads own record", alice, access.OpReadEmployee, "emp-1", true, ""},
		{"employee computes own pay", alice, access.OpComputePay, "emp-1", true, ""},
		{"employee cannot list another's entries", alice, access.OpListEntries, "emp-2", false, access.DenyNotOwner},
		{"employee cannot compute another's pay", alice, access.OpComputePay, "emp-2", false, access.DenyNotOwner},
		{"employee cannot append even to self", alice, access.OpAppendEntry, "emp-1", false, access.DenyInsufficientRole},
		{"employee cannot edit even to self", alice, access.OpEditEntry, "emp-1", false, access.DenyInsufficientRole},
		{"employee cannot read rules", alice, access.OpReadRules, "", false, access.DenyInsufficientRole},
		{"employee cannot list roster", alice, access.OpListEmployees, "", false, access.DenyInsufficientRole},
		{"admin lists roster", admin, access.OpListEmployees, "", true, ""},

		// Unknown role: closed world, deny.
		{"unknown role denied", access.Principal{ID: "u-x", Role: "intern"}, access.OpListEntries, "emp-1", false, access.DenyInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := access.Authorize(tt.principal, tt.op, payroll.EmployeeID(tt.target))
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.denyReason, d.Reason)
			}
		})
	}
}

func TestAuthorize_IsPure(t *testing.T) {
	// Same inputs, same decision, every time.
	p := access.Principal{ID: "u-mgr", Role: access.RoleManager}
	first := access.Authorize(p, access.OpUpdateRules, "")
	second := access.Authorize(p, access.OpUpdateRules, "")
	assert.Equal(t, first, second)
}
