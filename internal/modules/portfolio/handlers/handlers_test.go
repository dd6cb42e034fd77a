package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
	"github.com/andrew-rosca/etrade-report/internal/modules/snapshots"
)

// fakeBroker is a fake portfolio.BrokerClient
type fakeBroker struct {
	accounts     []domain.Account
	accountsErr  error
	balance      *domain.Balance
	balanceErr   error
	positions    []domain.Position
	positionsErr error
}

func (f *fakeBroker) ListAccounts() ([]domain.Account, error) {
	return f.accounts, f.accountsErr
}

func (f *fakeBroker) GetBalance(accountIDKey string) (*domain.Balance, error) {
	return f.balance, f.balanceErr
}

func (f *fakeBroker) GetPositions(accountIDKey string) ([]domain.Position, error) {
	return f.positions, f.positionsErr
}

func setupTestServer(t *testing.T, broker *fakeBroker) *httptest.Server {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := snapshots.NewRepository(db, log)
	require.NoError(t, err)

	classifier := buckets.NewClassifier([]buckets.Rule{
		{Name: "Income", Patterns: []string{"JEPI"}},
		{Name: "Growth", Patterns: []string{"AAPL*"}},
	})

	service := portfolio.NewService(broker, classifier, store, 100, log)
	handler := NewHandler(service, classifier, log)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func healthyBroker() *fakeBroker {
	return &fakeBroker{
		accounts: []domain.Account{
			{AccountID: "840104290", AccountIDKey: "key1", Name: "Brokerage", Mode: "MARGIN", Status: "ACTIVE"},
		},
		balance: &domain.Balance{
			NetAccountValue: 72000.0,
			CashBalance:     1200.0,
			MarginBalance:   -18000.0,
		},
		positions: []domain.Position{
			{Symbol: "JEPI", Quantity: 100, MarketValue: 5500.0, GainLoss: 500.0},
			{Symbol: "AAPL", Quantity: 10, MarketValue: 1550.0, GainLoss: 50.0},
		},
	}
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, wantStatus, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandleListAccounts(t *testing.T) {
	server := setupTestServer(t, healthyBroker())

	body := getJSON(t, server.URL+"/accounts", http.StatusOK)

	assert.Equal(t, float64(1), body["count"])
	accounts := body["accounts"].([]interface{})
	first := accounts[0].(map[string]interface{})
	assert.Equal(t, "840104290", first["account_id"])
	assert.Equal(t, "MARGIN", first["mode"])
}

func TestHandleListAccountsError(t *testing.T) {
	broker := healthyBroker()
	broker.accountsErr = errors.New("broker unavailable")
	server := setupTestServer(t, broker)

	body := getJSON(t, server.URL+"/accounts", http.StatusInternalServerError)

	assert.Contains(t, body["error"], "broker unavailable")
}

func TestHandleGetBalance(t *testing.T) {
	server := setupTestServer(t, healthyBroker())

	body := getJSON(t, server.URL+"/accounts/key1/balance", http.StatusOK)

	assert.Equal(t, "key1", body["account_id_key"])
	assert.Equal(t, false, body["stale"])
	assert.Equal(t, 25.0, body["margin_utilization_pct"])

	balance := body["balance"].(map[string]interface{})
	assert.Equal(t, 72000.0, balance["net_account_value"])
	assert.Equal(t, 1200.0, balance["cash_balance"])
}

func TestHandleGetPositions(t *testing.T) {
	server := setupTestServer(t, healthyBroker())

	body := getJSON(t, server.URL+"/accounts/key1/positions", http.StatusOK)

	positions := body["positions"].([]interface{})
	require.Len(t, positions, 2)

	first := positions[0].(map[string]interface{})
	assert.Equal(t, "JEPI", first["symbol"])
	assert.Equal(t, "Income", first["bucket"])

	totals := body["totals"].(map[string]interface{})
	assert.Equal(t, 7050.0, totals["total_value"])
	assert.Equal(t, float64(2), totals["position_count"])
}

func TestHandleGetPositionsServesStaleOnBrokerFailure(t *testing.T) {
	broker := healthyBroker()
	server := setupTestServer(t, broker)

	// Prime the snapshot cache
	getJSON(t, server.URL+"/accounts/key1/positions", http.StatusOK)

	broker.balanceErr = errors.New("connection refused")

	body := getJSON(t, server.URL+"/accounts/key1/positions", http.StatusOK)

	assert.Equal(t, true, body["stale"])
	positions := body["positions"].([]interface{})
	assert.Len(t, positions, 2)
}

func TestHandleGetPositionsErrorWithoutCache(t *testing.T) {
	broker := healthyBroker()
	broker.balanceErr = errors.New("connection refused")
	server := setupTestServer(t, broker)

	body := getJSON(t, server.URL+"/accounts/key1/positions", http.StatusInternalServerError)

	assert.Contains(t, body["error"], "failed to fetch balance")
}

func TestHandleGetAllocations(t *testing.T) {
	server := setupTestServer(t, healthyBroker())

	body := getJSON(t, server.URL+"/accounts/key1/allocations", http.StatusOK)

	assert.Equal(t, 7050.0, body["total_value"])

	allocations := body["allocations"].([]interface{})
	// Income, Growth, Unassigned - all configured buckets present
	require.Len(t, allocations, 3)

	income := allocations[0].(map[string]interface{})
	assert.Equal(t, "Income", income["name"])
	assert.Equal(t, 5500.0, income["value"])
	assert.Equal(t, 78.01, income["percent"])

	unassigned := allocations[2].(map[string]interface{})
	assert.Equal(t, "Unassigned", unassigned["name"])
	assert.Equal(t, float64(0), unassigned["position_count"])
}
