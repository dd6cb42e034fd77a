package etrade

import (
	"github.com/andrew-rosca/etrade-report/internal/clients/etrade/sdk"
)

// SDKClient interface for dependency injection in tests.
// This interface matches the SDK client methods we need.
type SDKClient interface {
	ListAccounts() ([]sdk.Account, error)
	GetBalance(accountIDKey string) (*sdk.BalanceDetail, error)
	GetPortfolio(accountIDKey string) ([]sdk.Position, error)
	ListTransactions(accountIDKey string, q sdk.TransactionsQuery) (*sdk.TransactionsPage, error)

	FetchRequestToken() (*sdk.RequestToken, error)
	AuthorizeURL(rt *sdk.RequestToken) string
	FetchAccessToken(rt *sdk.RequestToken, verifier string) (*sdk.AccessToken, error)
	SetAccessToken(token, secret string)
	ClearAccessToken()
	HasAccessToken() bool
	Sandbox() bool
	Close()
}
