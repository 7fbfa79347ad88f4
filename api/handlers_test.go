package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST SETUP - In-memory engine behind a real router
// =============================================================================

var testSecret = []byte("test-secret")

type testAPI struct {
	server *httptest.Server
	store  *store.Memory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.SaveEmployee(ctx, payroll.Employee{
		ID: "emp-1", Name: "Alice", Position: payroll.PositionSeller,
	}))
	require.NoError(t, mem.SaveRuleSet(ctx, payroll.RuleSet{
		payroll.PositionSeller: {
			Position:        payroll.PositionSeller,
			BaseRate:        payroll.MustDecimal("500"),
			SalesPercentage: payroll.MustDecimal("0.1"),
		},
	}))

	ledger := payroll.NewWorkLedger(mem, mem, mem, payroll.LedgerConfig{
		Now: func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) },
	})
	calc := payroll.NewCalculator(mem, ledger, payroll.NewRateResolver(mem))
	gate := access.NewGate(ledger, calc, mem, mem, mem)

	logger := zap.NewNop()
	router := api.NewRouter(api.NewHandler(gate, logger), logger, testSecret)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, store: mem}
}

func (a *testAPI) token(t *testing.T, p access.Principal) string {
	t.Helper()
	tok, err := api.IssueToken(testSecret, p, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

var (
	adminPr   = access.Principal{ID: "u-admin", Role: access.RoleAdmin}
	managerPr = access.Principal{ID: "u-mgr", Role: access.RoleManager}
	alicePr   = access.Principal{ID: "u-alice", Role: access.RoleEmployee, EmployeeID: "emp-1"}
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAPI_Health_NoAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_MissingToken_Unauthorized(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/api/employees/", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_GarbageToken_Unauthorized(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/api/employees/", "not-a-jwt", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestAPI_AppendEntry_Created(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", a.token(t, managerPr), map[string]string{
		"date":  "2025-06-10",
		"shop":  "shop-1",
		"sales": "1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	entry := decodeBody[api.EntryDTO](t, resp)
	assert.Equal(t, "emp-1", entry.EmployeeID)
	assert.Equal(t, "2025-06-10", entry.Date)
	assert.Equal(t, "1000", entry.Sales)
	assert.Equal(t, 1, entry.Version)
}

func TestAPI_AppendEntry_DuplicateDate_409(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, managerPr)
	body := map[string]string{"date": "2025-06-10", "sales": "100"}

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", tok, body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/employees/emp-1/entries", tok, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_AppendEntry_BadDate_400(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", a.token(t, managerPr), map[string]string{
		"date": "June 10th", "sales": "100",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AppendEntry_NegativeSales_400(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", a.token(t, managerPr), map[string]string{
		"date": "2025-06-10", "sales": "-5",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AppendEntry_EmployeeRole_403(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", a.token(t, alicePr), map[string]string{
		"date": "2025-06-10", "sales": "100",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "insufficient-role", body.Code)
}

func TestAPI_EditEntry_PatchAndVersion(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, managerPr)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", tok, map[string]string{
		"date": "2025-06-10", "sales": "1000", "penalties": "50",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPatch, "/api/employees/emp-1/entries/2025-06-10", tok, map[string]string{
		"sales": "1200",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entry := decodeBody[api.EntryDTO](t, resp)
	assert.Equal(t, "1200", entry.Sales)
	assert.Equal(t, "50", entry.Penalties, "unpatched field preserved")
	assert.Equal(t, 2, entry.Version)
}

func TestAPI_EditEntry_NoSuchDate_404(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPatch, "/api/employees/emp-1/entries/2025-06-10", a.token(t, managerPr), map[string]string{
		"sales": "1200",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListEntries_RangeRequired(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, managerPr)

	resp := a.do(t, http.MethodGet, "/api/employees/emp-1/entries", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/employees/emp-1/entries?from=2025-06-01&to=2025-06-30", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]api.EntryDTO](t, resp)
	assert.Empty(t, entries)
}

// brokenEntryStore fails entry reads the way a dying driver would.
type brokenEntryStore struct {
	*store.Memory
}

func (brokenEntryStore) LoadEntries(context.Context, payroll.EmployeeID, payroll.DateRange) ([]payroll.WorkDayEntry, error) {
	return nil, &payroll.StorageError{Op: "LoadEntries", Err: errors.New("disk I/O error")}
}

func TestAPI_StorageFailure_503(t *testing.T) {
	// A store failure maps to 503, never to a 4xx that would make the
	// client blame its own request.
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveEmployee(ctx, payroll.Employee{
		ID: "emp-1", Name: "Alice", Position: payroll.PositionSeller,
	}))

	ledger := payroll.NewWorkLedger(mem, brokenEntryStore{mem}, mem, payroll.LedgerConfig{
		Now: func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) },
	})
	calc := payroll.NewCalculator(mem, ledger, payroll.NewRateResolver(mem))
	gate := access.NewGate(ledger, calc, mem, mem, mem)

	logger := zap.NewNop()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(gate, logger), logger, testSecret))
	t.Cleanup(srv.Close)
	a := &testAPI{server: srv, store: mem}

	resp := a.do(t, http.MethodGet, "/api/employees/emp-1/entries?from=2025-06-01&to=2025-06-30", a.token(t, managerPr), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// =============================================================================
// COMPENSATION
// =============================================================================

func TestAPI_GetCompensation_WorkedExample(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, managerPr)

	for _, body := range []map[string]string{
		{"date": "2025-06-02", "sales": "1000", "penalties": "50"},
		{"date": "2025-06-03", "sales": "0", "penalties": "0"},
	} {
		resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", tok, body)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/employees/emp-1/compensation?from=2025-06-01&to=2025-06-30", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bd := decodeBody[api.BreakdownDTO](t, resp)
	assert.Equal(t, 2, bd.WorkedDays)
	assert.Equal(t, "1000", bd.TotalSales)
	assert.Equal(t, "50", bd.TotalPenalties)
	assert.Equal(t, "100", bd.SalesEarnings)
	assert.Equal(t, "1000", bd.PeriodBaseRate)
	assert.Equal(t, "1050", bd.GrossPay)
}

func TestAPI_GetCompensation_OwnOnly(t *testing.T) {
	a := newTestAPI(t)
	require.NoError(t, a.store.SaveEmployee(context.Background(), payroll.Employee{
		ID: "emp-2", Name: "Bob", Position: payroll.PositionSeller,
	}))
	tok := a.token(t, alicePr)

	resp := a.do(t, http.MethodGet, "/api/employees/emp-1/compensation?from=2025-06-01&to=2025-06-30", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/employees/emp-2/compensation?from=2025-06-01&to=2025-06-30", tok, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "not-owner", body.Code)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestAPI_CreateEmployee_AdminOnly(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]string{"id": "emp-9", "name": "Zoe", "position": "courier"}

	resp := a.do(t, http.MethodPost, "/api/employees/", a.token(t, managerPr), body)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/employees/", a.token(t, adminPr), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	emp := decodeBody[api.EmployeeDTO](t, resp)
	assert.Equal(t, "emp-9", emp.ID)
	assert.Equal(t, "courier", emp.Position)
}

func TestAPI_CreateEmployee_UnknownPosition_400(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/", a.token(t, adminPr), map[string]string{
		"id": "emp-9", "name": "Zoe", "position": "janitor",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetEmployee_WithOverride(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, adminPr)

	resp := a.do(t, http.MethodPost, "/api/employees/", tok, map[string]string{
		"id": "emp-9", "name": "Zoe", "position": "seller", "sales_percentage": "0.15",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/employees/emp-9", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	emp := decodeBody[api.EmployeeDTO](t, resp)
	assert.Equal(t, "0.15", emp.SalesPercentage)
	assert.Empty(t, emp.BaseRate, "unset override stays absent")
}

func TestAPI_DeleteEmployee_NoContentThen404(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, adminPr)

	resp := a.do(t, http.MethodDelete, "/api/employees/emp-1", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/employees/emp-1", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RULES AND AUDIT
// =============================================================================

func TestAPI_ReplaceRules_RoundTrip(t *testing.T) {
	a := newTestAPI(t)

	doc := map[string]any{
		"rules": []map[string]string{
			{"position": "seller", "base_rate": "550", "sales_percentage": "0.12"},
		},
	}
	resp := a.do(t, http.MethodPut, "/api/rules/", a.token(t, adminPr), doc)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/rules/", a.token(t, managerPr), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Rules []struct {
			Position        string `json:"position"`
			BaseRate        string `json:"base_rate"`
			SalesPercentage string `json:"sales_percentage"`
		} `json:"rules"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "seller", got.Rules[0].Position)
	assert.Equal(t, "550", got.Rules[0].BaseRate)
}

func TestAPI_QueryAudit_AdminSeesMutations(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", a.token(t, managerPr), map[string]string{
		"date": "2025-06-10", "sales": "100",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/audit", a.token(t, managerPr), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/audit", a.token(t, adminPr), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]api.AuditEntryDTO](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry_appended", entries[0].Action)
	assert.Equal(t, "u-mgr", entries[0].ActorID)
}

func TestAPI_QueryAudit_ActionAndTimeFilters(t *testing.T) {
	// The engine clock is pinned to 2025-06-15T12:00Z, so every audit row
	// lands on that instant.
	a := newTestAPI(t)
	tok := a.token(t, managerPr)

	resp := a.do(t, http.MethodPost, "/api/employees/emp-1/entries", tok, map[string]string{
		"date": "2025-06-10", "sales": "1000",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPatch, "/api/employees/emp-1/entries/2025-06-10", tok, map[string]string{
		"sales": "1200",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	adminTok := a.token(t, adminPr)

	resp = a.do(t, http.MethodGet, "/api/audit?action=entry_edited", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]api.AuditEntryDTO](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry_edited", entries[0].Action)

	resp = a.do(t, http.MethodGet, "/api/audit?from=2025-06-15", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]api.AuditEntryDTO](t, resp), 2)

	resp = a.do(t, http.MethodGet, "/api/audit?from=2025-06-16", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]api.AuditEntryDTO](t, resp))

	resp = a.do(t, http.MethodGet, "/api/audit?to=2025-06-14", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]api.AuditEntryDTO](t, resp))

	resp = a.do(t, http.MethodGet, "/api/audit?from=yesterday", adminTok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_QueryAudit_FilterByEmployee(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, managerPr)
	require.NoError(t, a.store.SaveEmployee(context.Background(), payroll.Employee{
		ID: "emp-2", Name: "Bob", Position: payroll.PositionSeller,
	}))

	for _, emp := range []string{"emp-1", "emp-2"} {
		resp := a.do(t, http.MethodPost, fmt.Sprintf("/api/employees/%s/entries", emp), tok, map[string]string{
			"date": "2025-06-10", "sales": "100",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/audit?employee=emp-2", a.token(t, adminPr), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]api.AuditEntryDTO](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "emp-2", entries[0].EmployeeID)
}
