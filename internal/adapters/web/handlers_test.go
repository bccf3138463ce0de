package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// fakeService overrides the few ApplicationService methods each test needs.
// Calling anything else panics through the nil embedded interface, which
// Recoverer turns into a 500.
type fakeService struct {
	app.ApplicationService
	authz *app.RoleAuthorizer

	transfer  func(core.TransferRequest) (*core.InventoryTransaction, error)
	pick      func(id, actor int) (*core.Requisition, error)
	applyCnt  func(id, approver int) (*core.CountSession, error)
	getItem   func(ref string) (*core.Item, error)
	authUser  func(username, password string) (*app.UserSession, error)
	healthRes *app.HealthResult
}

func (f *fakeService) Authorize(role core.Role, module app.Module, action app.Action) error {
	return f.authz.Authorize(role, module, action)
}

func (f *fakeService) Health(context.Context) *app.HealthResult { return f.healthRes }

func (f *fakeService) Transfer(_ context.Context, req core.TransferRequest) (*core.InventoryTransaction, error) {
	return f.transfer(req)
}

func (f *fakeService) PickRequisition(_ context.Context, id, actor int) (*core.Requisition, error) {
	return f.pick(id, actor)
}

func (f *fakeService) ApplyCountVariance(_ context.Context, id, approver int) (*core.CountSession, error) {
	return f.applyCnt(id, approver)
}

func (f *fakeService) GetItem(_ context.Context, ref string) (*core.Item, error) {
	return f.getItem(ref)
}

func (f *fakeService) AuthenticateUser(_ context.Context, username, password string) (*app.UserSession, error) {
	return f.authUser(username, password)
}

func newTestHandler(t *testing.T, svc *fakeService) (http.Handler, *Handler) {
	t.Helper()
	svc.authz = app.NewRoleAuthorizer()
	if svc.healthRes == nil {
		svc.healthRes = &app.HealthResult{Status: "ok", Database: "ok", Cache: "disabled"}
	}
	router := NewHandler(svc, Options{JWTSecret: testSecret}, zap.NewNop())
	return router, &Handler{jwtSecret: testSecret}
}

func authCookieFor(t *testing.T, h *Handler, userID int, role core.Role) *http.Cookie {
	t.Helper()
	token, err := h.signToken(&app.UserSession{UserID: userID, Username: "u", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	return &http.Cookie{Name: authCookie, Value: token}
}

func do(t *testing.T, router http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	router, _ := newTestHandler(t, &fakeService{})
	rec := do(t, router, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	degraded, _ := newTestHandler(t, &fakeService{healthRes: &app.HealthResult{Status: "degraded", Database: "error"}})
	if rec := do(t, degraded, http.MethodGet, "/api/health", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when degraded, got %d", rec.Code)
	}
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	router, _ := newTestHandler(t, &fakeService{})

	rec := do(t, router, http.MethodGet, "/api/stock", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}

	bad := &http.Cookie{Name: authCookie, Value: "not-a-jwt"}
	if rec := do(t, router, http.MethodGet, "/api/stock", "", bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", rec.Code)
	}

	other := &Handler{jwtSecret: "other-secret"}
	forged := authCookieFor(t, other, 1, core.RoleAdmin)
	if rec := do(t, router, http.MethodGet, "/api/stock", "", forged); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for token signed with another secret, got %d", rec.Code)
	}
}

func TestLogin_SetsCookie(t *testing.T) {
	svc := &fakeService{
		authUser: func(username, password string) (*app.UserSession, error) {
			if username == "alice" && password == "pw" {
				return &app.UserSession{UserID: 7, Username: "alice", Role: core.RoleManager}, nil
			}
			return nil, app.ErrInvalidCredentials
		},
	}
	router, _ := newTestHandler(t, svc)

	rec := do(t, router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"pw"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("expected an HttpOnly auth_token cookie")
	}

	rec = do(t, router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", rec.Code)
	}
}

func TestTransfer_InsufficientStockReturnsShortfalls(t *testing.T) {
	var gotActor int
	svc := &fakeService{
		transfer: func(req core.TransferRequest) (*core.InventoryTransaction, error) {
			gotActor = req.Actor
			return nil, &core.InsufficientStockError{Shortfalls: []core.Shortfall{{
				ItemID: req.ItemID, LocationID: req.FromLocationID,
				Requested: req.Quantity, Available: decimal.NewFromInt(4),
			}}}
		},
	}
	router, h := newTestHandler(t, svc)
	cookie := authCookieFor(t, h, 42, core.RoleStaff)

	rec := do(t, router, http.MethodPost, "/api/stock/transfer",
		`{"item_id":1,"from_location_id":2,"to_location_id":3,"quantity":"10"}`, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeError(t, rec)
	if resp.Code != "INSUFFICIENT_STOCK" {
		t.Errorf("code = %q, want INSUFFICIENT_STOCK", resp.Code)
	}
	if len(resp.Shortfalls) != 1 || !resp.Shortfalls[0].Available.Equal(decimal.NewFromInt(4)) {
		t.Errorf("unexpected shortfalls: %+v", resp.Shortfalls)
	}
	if gotActor != 42 {
		t.Errorf("actor = %d, want 42 from token", gotActor)
	}
}

func TestTransfer_ActorCannotBeSpoofed(t *testing.T) {
	var gotActor int
	svc := &fakeService{
		transfer: func(req core.TransferRequest) (*core.InventoryTransaction, error) {
			gotActor = req.Actor
			return &core.InventoryTransaction{ID: 1, Type: core.TxTransfer}, nil
		},
	}
	router, h := newTestHandler(t, svc)
	cookie := authCookieFor(t, h, 5, core.RoleStaff)

	rec := do(t, router, http.MethodPost, "/api/stock/transfer",
		`{"item_id":1,"from_location_id":2,"to_location_id":3,"quantity":"1","actor":99}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotActor != 5 {
		t.Errorf("actor = %d, want 5", gotActor)
	}
}

func TestPick_InvalidStateIsConflict(t *testing.T) {
	svc := &fakeService{
		pick: func(id, actor int) (*core.Requisition, error) {
			return nil, &core.InvalidStateError{
				Entity: "requisition", ID: id, Op: "picked",
				Current: "CANCELLED", Required: []string{"PENDING", "APPROVED"},
			}
		},
	}
	router, h := newTestHandler(t, svc)
	cookie := authCookieFor(t, h, 1, core.RoleManager)

	rec := do(t, router, http.MethodPost, "/api/requisitions/12/pick", "", cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != "INVALID_STATE" {
		t.Errorf("code = %q", resp.Code)
	}
	if !strings.Contains(resp.Error, "CANCELLED") {
		t.Errorf("error should name current status: %q", resp.Error)
	}
}

func TestApplyCount_ForbiddenForStaff(t *testing.T) {
	called := false
	svc := &fakeService{
		applyCnt: func(id, approver int) (*core.CountSession, error) {
			called = true
			return &core.CountSession{ID: id, Status: core.CountApproved}, nil
		},
	}
	router, h := newTestHandler(t, svc)

	rec := do(t, router, http.MethodPost, "/api/counts/3/apply", "", authCookieFor(t, h, 1, core.RoleStaff))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}
	if called {
		t.Error("service must not be called when forbidden")
	}

	rec = do(t, router, http.MethodPost, "/api/counts/3/apply", "", authCookieFor(t, h, 1, core.RoleManager))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager, got %d", rec.Code)
	}
}

func TestGetItem_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&core.NotFoundError{Entity: "item", Key: "X"}, http.StatusNotFound, "NOT_FOUND"},
		{&core.ValidationError{Field: "code", Message: "is required"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("wrapped: %w", &core.NotFoundError{Entity: "item", Key: 1}), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		svc := &fakeService{getItem: func(string) (*core.Item, error) { return nil, tc.err }}
		router, h := newTestHandler(t, svc)
		rec := do(t, router, http.MethodGet, "/api/items/TOWEL", "", authCookieFor(t, h, 1, core.RoleStaff))
		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
			continue
		}
		if resp := decodeError(t, rec); resp.Code != tc.code {
			t.Errorf("%v: code = %q, want %q", tc.err, resp.Code, tc.code)
		}
	}
}

func TestInvalidPathID(t *testing.T) {
	router, h := newTestHandler(t, &fakeService{})
	rec := do(t, router, http.MethodPost, "/api/requisitions/abc/pick", "", authCookieFor(t, h, 1, core.RoleAdmin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSchema(t *testing.T) {
	router, _ := newTestHandler(t, &fakeService{})

	rec := do(t, router, http.MethodGet, "/api/schemas/transfer", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var schema struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if schema.Properties["quantity"].Type != "string" {
		t.Errorf("quantity should be published as a decimal string, got %q", schema.Properties["quantity"].Type)
	}
	if _, ok := schema.Properties["actor"]; ok {
		t.Error("actor must not be part of the request schema")
	}

	if rec := do(t, router, http.MethodGet, "/api/schemas/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown schema, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	router := NewHandler(&fakeService{authz: app.NewRoleAuthorizer(), healthRes: &app.HealthResult{Status: "ok"}},
		Options{JWTSecret: testSecret, AllowedOrigins: "https://ops.example.com"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin for unlisted origin: %q", got)
	}
}
