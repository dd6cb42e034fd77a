package etrade

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew-rosca/etrade-report/internal/clients/etrade/sdk"
	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// mockSDKClient is a mock implementation of SDKClient for testing
type mockSDKClient struct {
	listAccountsResult []sdk.Account
	listAccountsError  error
	listAccountsCalls  int

	getBalanceResult *sdk.BalanceDetail
	getBalanceError  error

	getPortfolioResult []sdk.Position
	getPortfolioError  error

	listTransactionsResult *sdk.TransactionsPage
	listTransactionsError  error
	lastTransactionsQuery  sdk.TransactionsQuery

	requestTokenResult *sdk.RequestToken
	requestTokenError  error

	accessTokenResult *sdk.AccessToken
	accessTokenError  error
	lastVerifier      string
	lastRequestToken  *sdk.RequestToken

	hasToken bool
	sandbox  bool
}

func (m *mockSDKClient) ListAccounts() ([]sdk.Account, error) {
	m.listAccountsCalls++
	return m.listAccountsResult, m.listAccountsError
}

func (m *mockSDKClient) GetBalance(accountIDKey string) (*sdk.BalanceDetail, error) {
	return m.getBalanceResult, m.getBalanceError
}

func (m *mockSDKClient) GetPortfolio(accountIDKey string) ([]sdk.Position, error) {
	return m.getPortfolioResult, m.getPortfolioError
}

func (m *mockSDKClient) ListTransactions(accountIDKey string, q sdk.TransactionsQuery) (*sdk.TransactionsPage, error) {
	m.lastTransactionsQuery = q
	return m.listTransactionsResult, m.listTransactionsError
}

func (m *mockSDKClient) FetchRequestToken() (*sdk.RequestToken, error) {
	return m.requestTokenResult, m.requestTokenError
}

func (m *mockSDKClient) AuthorizeURL(rt *sdk.RequestToken) string {
	return "https://us.etrade.com/e/t/etws/authorize?key=test_key&token=" + rt.Token
}

func (m *mockSDKClient) FetchAccessToken(rt *sdk.RequestToken, verifier string) (*sdk.AccessToken, error) {
	m.lastRequestToken = rt
	m.lastVerifier = verifier
	if m.accessTokenError == nil {
		m.hasToken = true
	}
	return m.accessTokenResult, m.accessTokenError
}

func (m *mockSDKClient) SetAccessToken(token, secret string) {
	m.hasToken = true
}

func (m *mockSDKClient) ClearAccessToken() {
	m.hasToken = false
}

func (m *mockSDKClient) HasAccessToken() bool {
	return m.hasToken
}

func (m *mockSDKClient) Sandbox() bool {
	return m.sandbox
}

func (m *mockSDKClient) Close() {
	// No-op for mock
}

func newTestClient(t *testing.T, mockSDK *mockSDKClient) (*Client, *sdk.TokenStore) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	tokens := sdk.NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	return NewClientWithSDK(mockSDK, tokens, "test_consumer_key", log), tokens
}

func saveTokens(t *testing.T, tokens *sdk.TokenStore, obtainedAt time.Time) {
	t.Helper()
	err := tokens.Save(sdk.CachedTokens{
		ConsumerKey:  "test_consumer_key",
		AccessToken:  "cached_token",
		AccessSecret: "cached_secret",
		ObtainedAt:   obtainedAt,
	})
	require.NoError(t, err)
}

func TestRestoreSessionNoCache(t *testing.T) {
	mockSDK := &mockSDKClient{}
	client, _ := newTestClient(t, mockSDK)

	restored, err := client.RestoreSession()

	assert.NoError(t, err)
	assert.False(t, restored)
	assert.False(t, client.IsAuthenticated())
	assert.Equal(t, 0, mockSDK.listAccountsCalls)
}

func TestRestoreSessionFreshTokensSkipProbe(t *testing.T) {
	mockSDK := &mockSDKClient{}
	client, tokens := newTestClient(t, mockSDK)
	saveTokens(t, tokens, time.Now())

	restored, err := client.RestoreSession()

	assert.NoError(t, err)
	assert.True(t, restored)
	assert.True(t, client.IsAuthenticated())
	// Fresh tokens are trusted without a validation request
	assert.Equal(t, 0, mockSDK.listAccountsCalls)
}

func TestRestoreSessionStaleTokensValidated(t *testing.T) {
	mockSDK := &mockSDKClient{
		listAccountsResult: []sdk.Account{{AccountID: "1"}},
	}
	client, tokens := newTestClient(t, mockSDK)
	saveTokens(t, tokens, time.Now().Add(-3*time.Hour))

	restored, err := client.RestoreSession()

	assert.NoError(t, err)
	assert.True(t, restored)
	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, 1, mockSDK.listAccountsCalls)
}

func TestRestoreSessionRejectedTokensClearCache(t *testing.T) {
	mockSDK := &mockSDKClient{
		listAccountsError: &sdk.APIError{StatusCode: 401, Body: "oauth_problem=token_rejected"},
	}
	client, tokens := newTestClient(t, mockSDK)
	saveTokens(t, tokens, time.Now().Add(-3*time.Hour))

	restored, err := client.RestoreSession()

	assert.NoError(t, err)
	assert.False(t, restored)
	assert.False(t, client.IsAuthenticated())

	// Cache file should be gone so the next start does not retry them
	cached, err := tokens.Load("test_consumer_key", false)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRestoreSessionTransientErrorKeepsCache(t *testing.T) {
	mockSDK := &mockSDKClient{
		listAccountsError: errors.New("connection refused"),
	}
	client, tokens := newTestClient(t, mockSDK)
	saveTokens(t, tokens, time.Now().Add(-3*time.Hour))

	restored, err := client.RestoreSession()

	assert.Error(t, err)
	assert.False(t, restored)
	assert.False(t, client.IsAuthenticated())

	// Tokens were not rejected, only unreachable: the cache survives
	cached, loadErr := tokens.Load("test_consumer_key", false)
	require.NoError(t, loadErr)
	require.NotNil(t, cached)
	assert.Equal(t, "cached_token", cached.AccessToken)
}

func TestRestoreSessionCorruptCache(t *testing.T) {
	mockSDK := &mockSDKClient{}
	log := zerolog.New(nil).Level(zerolog.Disabled)
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	tokens := sdk.NewTokenStore(path)
	client := NewClientWithSDK(mockSDK, tokens, "test_consumer_key", log)

	restored, err := client.RestoreSession()

	assert.NoError(t, err)
	assert.False(t, restored)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt cache should be removed")
}

func TestAuthorizationFlow(t *testing.T) {
	mockSDK := &mockSDKClient{
		requestTokenResult: &sdk.RequestToken{Token: "req_token", Secret: "req_secret"},
		accessTokenResult:  &sdk.AccessToken{Token: "acc_token", Secret: "acc_secret"},
	}
	client, tokens := newTestClient(t, mockSDK)

	authURL, err := client.StartAuthorization()
	require.NoError(t, err)
	assert.Contains(t, authURL, "token=req_token")
	assert.True(t, client.HasPendingAuthorization())

	err = client.CompleteAuthorization("12345")
	require.NoError(t, err)
	assert.False(t, client.HasPendingAuthorization())
	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, "12345", mockSDK.lastVerifier)
	assert.Equal(t, "req_token", mockSDK.lastRequestToken.Token)

	// Tokens should be cached for the next start
	cached, err := tokens.Load("test_consumer_key", false)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "acc_token", cached.AccessToken)
	assert.Equal(t, "acc_secret", cached.AccessSecret)
}

func TestCompleteAuthorizationWithoutStart(t *testing.T) {
	mockSDK := &mockSDKClient{}
	client, _ := newTestClient(t, mockSDK)

	err := client.CompleteAuthorization("12345")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization in progress")
}

func TestCompleteAuthorizationRequiresVerifier(t *testing.T) {
	mockSDK := &mockSDKClient{
		requestTokenResult: &sdk.RequestToken{Token: "req_token", Secret: "req_secret"},
	}
	client, _ := newTestClient(t, mockSDK)

	_, err := client.StartAuthorization()
	require.NoError(t, err)

	err = client.CompleteAuthorization("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verification code is required")
}

func TestStartAuthorizationError(t *testing.T) {
	mockSDK := &mockSDKClient{
		requestTokenError: errors.New("network down"),
	}
	client, _ := newTestClient(t, mockSDK)

	_, err := client.StartAuthorization()

	assert.Error(t, err)
	assert.False(t, client.HasPendingAuthorization())
}

func TestLogout(t *testing.T) {
	mockSDK := &mockSDKClient{hasToken: true}
	client, tokens := newTestClient(t, mockSDK)
	saveTokens(t, tokens, time.Now())

	err := client.Logout()

	assert.NoError(t, err)
	assert.False(t, client.IsAuthenticated())

	cached, err := tokens.Load("test_consumer_key", false)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestIsAuthError(t *testing.T) {
	wrapped := &sdk.APIError{StatusCode: 401, Body: "oauth_problem=token_expired"}

	assert.True(t, IsAuthError(wrapped))
	assert.True(t, IsAuthError(errors.Join(errors.New("outer"), wrapped)))
	assert.False(t, IsAuthError(errors.New("connection refused")))
	assert.False(t, IsAuthError(&sdk.APIError{StatusCode: 400, Body: "bad request"}))
	assert.False(t, IsAuthError(nil))
}

func TestListAccountsTransforms(t *testing.T) {
	mockSDK := &mockSDKClient{
		listAccountsResult: []sdk.Account{
			{
				AccountID:     "840104290",
				AccountIDKey:  "JDXmiglvYJgJrJmiXUJvcg",
				AccountName:   "Brokerage",
				AccountType:   "INDIVIDUAL",
				AccountMode:   "MARGIN",
				AccountStatus: "ACTIVE",
			},
		},
	}
	client, _ := newTestClient(t, mockSDK)

	accounts, err := client.ListAccounts()

	assert.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, "840104290", accounts[0].AccountID)
	assert.Equal(t, "JDXmiglvYJgJrJmiXUJvcg", accounts[0].AccountIDKey)
	assert.Equal(t, "Brokerage", accounts[0].Name)
	assert.Equal(t, "MARGIN", accounts[0].Mode)
	assert.Equal(t, "ACTIVE", accounts[0].Status)
}

func TestListAccountsError(t *testing.T) {
	mockSDK := &mockSDKClient{
		listAccountsError: errors.New("SDK error"),
	}
	client, _ := newTestClient(t, mockSDK)

	accounts, err := client.ListAccounts()

	assert.Error(t, err)
	assert.Nil(t, accounts)
}

func TestPickDefaultAccount(t *testing.T) {
	margin := domain.Account{AccountID: "1", Mode: "MARGIN", Status: "ACTIVE"}
	cash := domain.Account{AccountID: "2", Mode: "CASH", Status: "ACTIVE"}
	closed := domain.Account{AccountID: "3", Mode: "MARGIN", Status: "CLOSED"}

	tests := []struct {
		name     string
		accounts []domain.Account
		wantID   string
		wantErr  bool
	}{
		{"prefers active margin", []domain.Account{cash, margin}, "1", false},
		{"falls back to active cash", []domain.Account{closed, cash}, "2", false},
		{"skips closed accounts", []domain.Account{closed}, "", true},
		{"no accounts", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := PickDefaultAccount(tt.accounts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, account.AccountID)
		})
	}
}

func TestGetBalance(t *testing.T) {
	mockSDK := &mockSDKClient{
		getBalanceResult: &sdk.BalanceDetail{
			AccountID: "840104290",
			Computed: sdk.ComputedBalance{
				RegtEquity:                  72000.0,
				CashBalance:                 1200.50,
				TotalAvailableForWithdrawal: 950.25,
				MarginBalance:               -39728.33,
				MarginBuyingPower:           31000.0,
				RealTimeValues: sdk.RealTimeValues{
					NetMv: 111500.0,
				},
			},
		},
	}
	client, _ := newTestClient(t, mockSDK)

	balance, err := client.GetBalance("JDXmiglvYJgJrJmiXUJvcg")

	require.NoError(t, err)
	assert.Equal(t, "JDXmiglvYJgJrJmiXUJvcg", balance.AccountIDKey)
	assert.Equal(t, 72000.0, balance.NetAccountValue)
	assert.Equal(t, 111500.0, balance.TotalMarketValue)
	assert.Equal(t, 1200.50, balance.CashBalance)
	assert.Equal(t, 950.25, balance.CashAvailable)
	assert.Equal(t, -39728.33, balance.MarginBalance)
	assert.Equal(t, 31000.0, balance.BuyingPower)
	assert.False(t, balance.AsOf.IsZero())
}

func TestGetPositions(t *testing.T) {
	mockSDK := &mockSDKClient{
		getPortfolioResult: []sdk.Position{
			{
				SymbolDescription: "AAPL",
				Quantity:          10,
				MarketValue:       1550.0,
				TotalCost:         1400.0,
				TotalGain:         150.0,
				TotalGainPct:      10.71,
				Quick:             sdk.QuickQuote{LastTrade: 155.0},
			},
		},
	}
	client, _ := newTestClient(t, mockSDK)

	positions, err := client.GetPositions("JDXmiglvYJgJrJmiXUJvcg")

	require.NoError(t, err)
	assert.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, 10.0, positions[0].Quantity)
	assert.Equal(t, 155.0, positions[0].LastPrice)
	assert.Equal(t, 1550.0, positions[0].MarketValue)
	assert.Equal(t, 1400.0, positions[0].CostBasis)
	assert.Equal(t, 150.0, positions[0].GainLoss)
}

func TestListTransactionsConvertsDates(t *testing.T) {
	mockSDK := &mockSDKClient{
		listTransactionsResult: &sdk.TransactionsPage{
			Transactions: []sdk.Transaction{
				{
					TransactionID:   18379246801,
					TransactionDate: 1705276800000, // 2024-01-15 UTC
					Amount:          51.44,
					Description:     "JEPI DIVIDEND",
					TransactionType: "Dividend",
				},
			},
			Marker:           "next",
			MoreTransactions: true,
			TotalCount:       104,
		},
	}
	client, _ := newTestClient(t, mockSDK)

	page, err := client.ListTransactions("JDXmiglvYJgJrJmiXUJvcg", TransactionsQuery{
		StartDate: "2024-01-01",
		EndDate:   "2024-03-31",
		Count:     50,
	})

	require.NoError(t, err)
	assert.Equal(t, "01012024", mockSDK.lastTransactionsQuery.StartDate)
	assert.Equal(t, "03312024", mockSDK.lastTransactionsQuery.EndDate)
	assert.Equal(t, 50, mockSDK.lastTransactionsQuery.Count)

	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "18379246801", page.Transactions[0].TransactionID)
	assert.Equal(t, "2024-01-15", page.Transactions[0].Date)
	assert.Equal(t, "Dividend", page.Transactions[0].Type)
	assert.Equal(t, "next", page.Marker)
	assert.True(t, page.MoreTransactions)
	assert.Equal(t, 104, page.TotalCount)
}

func TestDateToAPIFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-01-15", "01152024"},
		{"2023-12-31", "12312023"},
		{"", ""},
		{"not-a-date", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, dateToAPIFormat(tt.input), "input %q", tt.input)
	}
}
