package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenValidator map[string]*appctx.UserContext

func (v tokenValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := v[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type ledgerStub struct {
	calls int
}

func (s *ledgerStub) History(_ context.Context, _ stock.MovementFilter) ([]entity.StockMovement, int64, error) {
	s.calls++
	return nil, 0, nil
}

func (s *ledgerStub) BalanceAt(context.Context, entity.ItemRef, time.Time) (types.Quantity, error) {
	return types.Quantity{}, nil
}

func (s *ledgerStub) Turnover(context.Context, stock.TurnoverFilter) ([]stock.Turnover, error) {
	return nil, nil
}

type auditStub struct{}

func (auditStub) GetEntityHistory(context.Context, string, id.ID, int) ([]audit.Entry, error) {
	return nil, nil
}

func newTestRouter(ledger *ledgerStub) *gin.Engine {
	return NewRouter(RouterConfig{
		Version: "test",
		Metrics: metrics.New(),
		JWTValidator: tokenValidator{
			"admin":   {UserID: "00000000-0000-0000-0000-000000000001", Username: "admin", Role: appctx.RoleAdmin},
			"kitchen": {UserID: "00000000-0000-0000-0000-000000000002", Username: "cook", Role: appctx.RoleKitchen},
			"ops":     {UserID: "00000000-0000-0000-0000-000000000003", Username: "till", Role: appctx.RoleOperations},
		},
		HealthChecks: map[string]handlers.Pinger{
			"db": handlers.PingFunc(func(context.Context) error { return nil }),
		},
		Ledger: ledger,
		Audit:  auditStub{},
	})
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := newTestRouter(&ledgerStub{})

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health/ready", "").Code)

	rec := request(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bakehouse_http_requests_total")
}

func TestRouter_RoleGating(t *testing.T) {
	r := newTestRouter(&ledgerStub{})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/ingredients", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/ingredients", "nope", http.StatusUnauthorized},
		{"kitchen on ingredients", http.MethodGet, "/api/v1/ingredients", "kitchen", http.StatusForbidden},
		{"kitchen on sales", http.MethodPost, "/api/v1/sales", "kitchen", http.StatusForbidden},
		{"ops on recipes", http.MethodGet, "/api/v1/recipes", "ops", http.StatusForbidden},
		{"ops on users", http.MethodGet, "/api/v1/users", "ops", http.StatusForbidden},
		{"kitchen on ledger", http.MethodGet, "/api/v1/ledger/movements", "kitchen", http.StatusForbidden},
		{"ops on audit", http.MethodGet, "/api/v1/audit/ingredient/0190a0b0-0000-7000-8000-000000000001", "ops", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(r, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_LedgerReachableByOperations(t *testing.T) {
	ledger := &ledgerStub{}
	r := newTestRouter(ledger)

	rec := request(r, http.MethodGet, "/api/v1/ledger/movements?limit=10", "ops")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ledger.calls)

	var body struct {
		Items      []json.RawMessage `json:"items"`
		TotalCount int64             `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Items)
	assert.NotNil(t, body.Items)
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := newTestRouter(&ledgerStub{})

	rec := request(r, http.MethodGet, "/api/v1/nothing-here", "admin")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AuditForAdmin(t *testing.T) {
	r := newTestRouter(&ledgerStub{})

	rec := request(r, http.MethodGet, "/api/v1/audit/ingredient/0190a0b0-0000-7000-8000-000000000001", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = request(r, http.MethodGet, "/api/v1/audit/ingredient/not-a-uuid", "admin")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
