/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the engine via REST. Handlers parse and validate the HTTP
  shape, resolve the authenticated principal, and delegate everything
  else to the access gate - no business rule lives here.

ENDPOINTS:
  Employees:
    GET    /api/employees                     List roster (admin/manager)
    POST   /api/employees                     Create employee (admin)
    GET    /api/employees/{id}                Get employee
    PUT    /api/employees/{id}                Update employee (admin)
    DELETE /api/employees/{id}                Delete employee (admin)

  Work entries:
    POST   /api/employees/{id}/entries        Append work-day entry
    PATCH  /api/employees/{id}/entries/{date} Edit entry
    GET    /api/employees/{id}/entries        List entries ?from=&to=

  Compensation:
    GET    /api/employees/{id}/compensation   Breakdown ?from=&to=

  Rules:
    GET    /api/rules                         Read rule set
    PUT    /api/rules                         Replace rule set (admin)

  Audit:
    GET    /api/audit                         Query audit log (admin)

ERROR HANDLING:
  The engine's typed failures map to HTTP status:
  - 400: validation
  - 403: denied (authorization is an expected outcome, not a 500)
  - 404: not found
  - 409: duplicate date, version conflict
  - 500: missing rule (configuration defect, server-side fault)
  - 503: storage unavailable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Gate     *access.Gate
	Logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler around the access gate.
func NewHandler(gate *access.Gate, logger *zap.Logger) *Handler {
	return &Handler{
		Gate:     gate,
		Logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	employees, err := h.Gate.ListEmployees(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, emp := range employees {
		dtos[i] = toEmployeeDTO(emp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := employeeFromRequest(req.ID, req.Name, req.Position, req.BaseRate, req.SalesPercentage)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.Gate.CreateEmployee(r.Context(), p, emp); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Gate.GetEmployee(r.Context(), p, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req UpdateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	emp, err := employeeFromRequest(id, req.Name, req.Position, req.BaseRate, req.SalesPercentage)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.Gate.UpdateEmployee(r.Context(), p, emp); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Gate.DeleteEmployee(r.Context(), p, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WORK ENTRY HANDLERS
// =============================================================================

func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req AppendEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := payroll.ParseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, &payroll.ValidationError{Field: "date", Message: "expected YYYY-MM-DD"})
		return
	}
	sales, err := parseOptionalDecimal("sales", req.Sales)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	penalties, err := parseOptionalDecimal("penalties", req.Penalties)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	entry := payroll.WorkDayEntry{
		Date:      date,
		Shop:      req.Shop,
		Sales:     sales,
		Penalties: penalties,
		Notes:     req.Notes,
	}

	saved, err := h.Gate.AppendEntry(r.Context(), p, employeeID, entry)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(saved))
}

func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req EditEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := payroll.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, &payroll.ValidationError{Field: "date", Message: "expected YYYY-MM-DD"})
		return
	}

	patch := payroll.EntryPatch{Shop: req.Shop, Notes: req.Notes}
	if req.Sales != nil {
		d, err := parseOptionalDecimal("sales", *req.Sales)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		patch.Sales = &d
	}
	if req.Penalties != nil {
		d, err := parseOptionalDecimal("penalties", *req.Penalties)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		patch.Penalties = &d
	}

	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	saved, err := h.Gate.EditEntry(r.Context(), p, employeeID, date, patch)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(saved))
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	rng, err := rangeFromQuery(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	entries, err := h.Gate.ListEntries(r.Context(), p, employeeID, rng)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toEntryDTO(entry)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMPENSATION HANDLER
// =============================================================================

func (h *Handler) GetCompensation(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	rng, err := rangeFromQuery(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	breakdown, err := h.Gate.ComputeBreakdown(r.Context(), p, employeeID, rng)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownDTO(breakdown))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	rules, err := h.Gate.GetRuleSet(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rules))
}

func (h *Handler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var doc factory.RuleSetJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	rules, err := factory.FromJSON(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule set", err)
		return
	}

	if err := h.Gate.ReplaceRuleSet(r.Context(), p, rules); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rules))
}

// =============================================================================
// AUDIT HANDLER
// =============================================================================

func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var filter payroll.AuditFilter
	if v := r.URL.Query().Get("employee"); v != "" {
		id := payroll.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := r.URL.Query().Get("actor"); v != "" {
		filter.ActorID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Actions = []payroll.AuditAction{payroll.AuditAction(v)}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := parseAuditTime("from", v)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		filter.From = &ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := parseAuditTime("to", v)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		filter.To = &ts
	}

	entries, err := h.Gate.QueryAudit(r.Context(), p, filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dto := AuditEntryDTO{
			ID:         e.ID,
			Timestamp:  e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			Action:     string(e.Action),
			EmployeeID: string(e.EmployeeID),
			Payload:    e.Payload,
		}
		if !e.Date.IsZero() {
			dto.Date = e.Date.String()
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses the JSON body and runs validator tags; writes the 400
// itself and returns false when the request is malformed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return false
	}
	return true
}

func employeeFromRequest(id, name, position, baseRate, salesPct string) (payroll.Employee, error) {
	rate, err := parseOverride("base_rate", baseRate)
	if err != nil {
		return payroll.Employee{}, err
	}
	pct, err := parseOverride("sales_percentage", salesPct)
	if err != nil {
		return payroll.Employee{}, err
	}
	return payroll.Employee{
		ID:              payroll.EmployeeID(id),
		Name:            name,
		Position:        payroll.Position(position),
		BaseRate:        rate,
		SalesPercentage: pct,
	}, nil
}

// parseAuditTime accepts an RFC 3339 timestamp or a plain date. A plain
// date means the start of that day UTC; pair it with an exclusive-minded
// "to" as needed.
func parseAuditTime(field, s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if d, err := payroll.ParseDate(s); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, &payroll.ValidationError{Field: field, Message: "expected RFC 3339 timestamp or YYYY-MM-DD"}
}

func rangeFromQuery(r *http.Request) (payroll.DateRange, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return payroll.DateRange{}, &payroll.ValidationError{Field: "range", Message: "from and to are required"}
	}
	from, err := payroll.ParseDate(fromStr)
	if err != nil {
		return payroll.DateRange{}, &payroll.ValidationError{Field: "from", Message: "expected YYYY-MM-DD"}
	}
	to, err := payroll.ParseDate(toStr)
	if err != nil {
		return payroll.DateRange{}, &payroll.ValidationError{Field: "to", Message: "expected YYYY-MM-DD"}
	}
	return payroll.NewDateRange(from, to), nil
}

// writeDomainError maps the engine's typed failures to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var denied *access.DeniedError
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, ErrorResponse{
			Error: "access denied",
			Code:  string(denied.Reason),
		})
	case errors.Is(err, payroll.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", err)
	case errors.Is(err, payroll.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, payroll.ErrDuplicateDate):
		writeError(w, http.StatusConflict, "entry already exists for date", err)
	case errors.Is(err, payroll.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent modification, retry with fresh read", err)
	case errors.Is(err, payroll.ErrMissingRule):
		// Configuration defect, not user input: surfaced as a server fault.
		writeError(w, http.StatusInternalServerError, "compensation rules misconfigured", err)
	case errors.Is(err, payroll.ErrStorageUnavailable):
		if h.Logger != nil {
			h.Logger.Error("storage unavailable", zap.Error(err))
		}
		writeError(w, http.StatusServiceUnavailable, "storage unavailable", nil)
	default:
		if h.Logger != nil {
			h.Logger.Error("internal error", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
