/*
Package access implements the identity model and the authorization gate
for the payroll engine.

PURPOSE:
  Decides who may do what to whose records. Authorization is a closed
  tagged variant over three roles with a pure decision function - no
  policy engine, no class hierarchy, no I/O. The gate in gate.go applies
  that decision as a hard precondition in front of every ledger and
  calculator entry point.

ROLES:
  admin    - every operation on every employee
  manager  - read anyone, append/edit entries for anyone,
             no administrative actions
  employee - read own ledger and compensation only, no writes

The Principal arrives already authenticated: credential verification
(signed-token validation) is the transport layer's job, and this package
trusts it.

SEE ALSO:
  - authorize.go: The decision function
  - gate.go: Enforcement wrapper
*/
package access

import "github.com/warp/payroll-engine/payroll"

// =============================================================================
// ROLES
// =============================================================================

// Role is the closed set of authorization roles. Distinct from
// payroll.Position: a seller-position employee authenticates with the
// employee role, and an administrative account has no position at all.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// =============================================================================
// PRINCIPAL
// =============================================================================

// Principal is an authenticated actor. EmployeeID is set only for
// role=employee and binds the principal to its own records. Principals
// are created per request from verified credentials and never persisted
// by this engine.
type Principal struct {
	ID         string
	Role       Role
	EmployeeID payroll.EmployeeID
}

// Actor converts the principal to the ledger's audit attribution.
func (p Principal) Actor() payroll.Actor {
	return payroll.Actor{ID: p.ID, Role: string(p.Role)}
}
