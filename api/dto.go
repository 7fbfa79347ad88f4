/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Struct tags drive validator/v10 checks for shape (required fields,
  formats); domain invariants (non-negative amounts, grace window,
  percentage bounds) stay in the engine where they belong. Monetary
  values cross the wire as strings to keep decimals exact.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: The domain model behind them
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Position        string `json:"position"`
	BaseRate        string `json:"base_rate,omitempty"`
	SalesPercentage string `json:"sales_percentage,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

type CreateEmployeeRequest struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Position        string `json:"position" validate:"required,oneof=seller admin manager courier"`
	BaseRate        string `json:"base_rate,omitempty"`
	SalesPercentage string `json:"sales_percentage,omitempty"`
}

type UpdateEmployeeRequest struct {
	Name            string `json:"name" validate:"required"`
	Position        string `json:"position" validate:"required,oneof=seller admin manager courier"`
	BaseRate        string `json:"base_rate,omitempty"`
	SalesPercentage string `json:"sales_percentage,omitempty"`
}

// =============================================================================
// WORK ENTRIES
// =============================================================================

type EntryDTO struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Shop       string `json:"shop,omitempty"`
	Sales      string `json:"sales"`
	Penalties  string `json:"penalties"`
	Notes      string `json:"notes,omitempty"`
	Version    int    `json:"version"`
	UpdatedBy  string `json:"updated_by,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type AppendEntryRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Shop      string `json:"shop,omitempty"`
	Sales     string `json:"sales,omitempty"`
	Penalties string `json:"penalties,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// EditEntryRequest is a partial patch: absent fields are left unchanged.
type EditEntryRequest struct {
	Shop      *string `json:"shop,omitempty"`
	Sales     *string `json:"sales,omitempty"`
	Penalties *string `json:"penalties,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// =============================================================================
// COMPENSATION
// =============================================================================

type BreakdownDTO struct {
	EmployeeID      string `json:"employee_id"`
	From            string `json:"from"`
	To              string `json:"to"`
	WorkedDays      int    `json:"worked_days"`
	BaseRate        string `json:"base_rate"`
	SalesPercentage string `json:"sales_percentage"`
	TotalSales      string `json:"total_sales"`
	TotalPenalties  string `json:"total_penalties"`
	SalesEarnings   string `json:"sales_earnings"`
	PeriodBaseRate  string `json:"period_base_rate"`
	GrossPay        string `json:"gross_pay"`
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Action     string         `json:"action"`
	EmployeeID string         `json:"employee_id,omitempty"`
	Date       string         `json:"date,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(emp payroll.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(emp.ID),
		Name:     emp.Name,
		Position: string(emp.Position),
	}
	if emp.BaseRate != nil {
		dto.BaseRate = emp.BaseRate.String()
	}
	if emp.SalesPercentage != nil {
		dto.SalesPercentage = emp.SalesPercentage.String()
	}
	if !emp.CreatedAt.IsZero() {
		dto.CreatedAt = emp.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toEntryDTO(entry payroll.WorkDayEntry) EntryDTO {
	dto := EntryDTO{
		EmployeeID: string(entry.EmployeeID),
		Date:       entry.Date.String(),
		Shop:       entry.Shop,
		Sales:      entry.Sales.String(),
		Penalties:  entry.Penalties.String(),
		Notes:      entry.Notes,
		Version:    entry.Version,
		UpdatedBy:  entry.UpdatedBy,
	}
	if !entry.UpdatedAt.IsZero() {
		dto.UpdatedAt = entry.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toBreakdownDTO(b payroll.CompensationBreakdown) BreakdownDTO {
	return BreakdownDTO{
		EmployeeID:      string(b.EmployeeID),
		From:            b.Range.From.String(),
		To:              b.Range.To.String(),
		WorkedDays:      b.WorkedDays,
		BaseRate:        b.BaseRate.String(),
		SalesPercentage: b.SalesPercentage.String(),
		TotalSales:      b.TotalSales.String(),
		TotalPenalties:  b.TotalPenalties.String(),
		SalesEarnings:   b.SalesEarnings.String(),
		PeriodBaseRate:  b.PeriodBaseRate.String(),
		GrossPay:        b.GrossPay.String(),
	}
}

// parseOptionalDecimal parses a monetary string field; empty means zero.
func parseOptionalDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &payroll.ValidationError{Field: field, Message: "not a valid decimal"}
	}
	return d, nil
}

// parseOverride parses an optional override field; empty means "no override".
func parseOverride(field, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &payroll.ValidationError{Field: field, Message: "not a valid decimal"}
	}
	return &d, nil
}
