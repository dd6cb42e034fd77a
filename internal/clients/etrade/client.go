// Package etrade wraps the E*TRADE SDK with domain-typed operations and
// manages the OAuth session lifecycle: token caching, restore on startup,
// and the interactive browser authorization flow.
package etrade

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/clients/etrade/sdk"
	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// Client is the broker client the rest of the system talks to.
type Client struct {
	sdkClient   SDKClient
	tokens      *sdk.TokenStore
	consumerKey string
	log         zerolog.Logger

	authMu  sync.Mutex
	pending *sdk.RequestToken
}

// TransactionsQuery narrows a transactions listing. Dates use YYYY-MM-DD.
type TransactionsQuery struct {
	StartDate string
	EndDate   string
	Count     int
	Marker    string
}

// TransactionsPage is one page of domain transactions plus pagination state.
type TransactionsPage struct {
	Transactions     []domain.Transaction
	Marker           string
	MoreTransactions bool
	TotalCount       int
}

// NewClient creates a broker client backed by a live SDK client. Tokens are
// cached at tokenPath so sessions survive restarts.
func NewClient(cfg sdk.Config, tokenPath string, log zerolog.Logger) *Client {
	return &Client{
		sdkClient:   sdk.NewClient(cfg, log),
		tokens:      sdk.NewTokenStore(tokenPath),
		consumerKey: cfg.ConsumerKey,
		log:         log.With().Str("client", "etrade").Logger(),
	}
}

// NewClientWithSDK creates a client with a provided SDK client (for testing).
func NewClientWithSDK(sdkClient SDKClient, tokens *sdk.TokenStore, consumerKey string, log zerolog.Logger) *Client {
	return &Client{
		sdkClient:   sdkClient,
		tokens:      tokens,
		consumerKey: consumerKey,
		log:         log.With().Str("client", "etrade").Logger(),
	}
}

// Close shuts down the underlying SDK client.
func (c *Client) Close() {
	c.sdkClient.Close()
}

// IsAuthenticated reports whether API requests can currently be signed.
func (c *Client) IsAuthenticated() bool {
	return c.sdkClient.HasAccessToken()
}

// Sandbox reports whether the client talks to the sandbox environment.
func (c *Client) Sandbox() bool {
	return c.sdkClient.Sandbox()
}

// HasPendingAuthorization reports whether an authorization flow has been
// started and is waiting for its verification code.
func (c *Client) HasPendingAuthorization() bool {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return c.pending != nil
}

// IsAuthError reports whether an error from any client operation indicates
// rejected or expired OAuth credentials.
func IsAuthError(err error) bool {
	var apiErr *sdk.APIError
	return errors.As(err, &apiErr) && apiErr.IsAuthError()
}

// RestoreSession installs cached tokens if a usable cache exists. Tokens
// past the fresh window are validated with a cheap API probe before being
// trusted; rejected tokens clear the cache. Returns whether a session is
// now active.
func (c *Client) RestoreSession() (bool, error) {
	cached, err := c.tokens.Load(c.consumerKey, c.sdkClient.Sandbox())
	if err != nil {
		c.log.Warn().Err(err).Msg("Token cache unreadable, starting unauthenticated")
		_ = c.tokens.Clear()
		return false, nil
	}
	if cached == nil {
		return false, nil
	}

	c.sdkClient.SetAccessToken(cached.AccessToken, cached.AccessSecret)
	age := time.Since(cached.ObtainedAt)

	if cached.Fresh() {
		c.log.Info().
			Str("age", age.Round(time.Minute).String()).
			Msg("Restored cached session")
		return true, nil
	}

	// Stale tokens get a validation probe before being trusted
	if _, err := c.sdkClient.ListAccounts(); err != nil {
		c.sdkClient.ClearAccessToken()
		if IsAuthError(err) {
			c.log.Warn().
				Str("age", age.Round(time.Minute).String()).
				Msg("Cached tokens were rejected, clearing session")
			_ = c.tokens.Clear()
			return false, nil
		}
		return false, fmt.Errorf("failed to validate cached tokens: %w", err)
	}

	c.log.Info().
		Str("age", age.Round(time.Minute).String()).
		Msg("Restored cached session after validation probe")
	return true, nil
}

// StartAuthorization begins the OAuth flow and returns the URL the user
// must open to approve access. E*TRADE shows a verification code there,
// which completes the flow via CompleteAuthorization.
func (c *Client) StartAuthorization() (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	rt, err := c.sdkClient.FetchRequestToken()
	if err != nil {
		return "", fmt.Errorf("failed to start authorization: %w", err)
	}

	c.pending = rt
	return c.sdkClient.AuthorizeURL(rt), nil
}

// CompleteAuthorization exchanges the verification code for an access token
// and persists it.
func (c *Client) CompleteAuthorization(verifier string) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if verifier == "" {
		return fmt.Errorf("verification code is required")
	}
	if c.pending == nil {
		return fmt.Errorf("no authorization in progress")
	}

	at, err := c.sdkClient.FetchAccessToken(c.pending, verifier)
	if err != nil {
		return fmt.Errorf("failed to complete authorization: %w", err)
	}
	c.pending = nil

	cached := sdk.CachedTokens{
		ConsumerKey:  c.consumerKey,
		Sandbox:      c.sdkClient.Sandbox(),
		AccessToken:  at.Token,
		AccessSecret: at.Secret,
		ObtainedAt:   time.Now(),
	}
	if err := c.tokens.Save(cached); err != nil {
		// Session still works for this process lifetime
		c.log.Warn().Err(err).Msg("Failed to persist tokens, session will not survive restart")
	}

	return nil
}

// Logout drops the active session and removes the token cache.
func (c *Client) Logout() error {
	c.authMu.Lock()
	c.pending = nil
	c.authMu.Unlock()

	c.sdkClient.ClearAccessToken()
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("failed to clear token cache: %w", err)
	}
	return nil
}

// ListAccounts retrieves all brokerage accounts.
func (c *Client) ListAccounts() ([]domain.Account, error) {
	raw, err := c.sdkClient.ListAccounts()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, toDomainAccount(a))
	}
	return accounts, nil
}

// DefaultAccount picks the account reports run against: the first active
// margin account, falling back to the first active account of any mode.
func (c *Client) DefaultAccount() (*domain.Account, error) {
	accounts, err := c.ListAccounts()
	if err != nil {
		return nil, err
	}
	return PickDefaultAccount(accounts)
}

// PickDefaultAccount applies the default-account policy to a listing.
func PickDefaultAccount(accounts []domain.Account) (*domain.Account, error) {
	for i := range accounts {
		if accounts[i].Status == "ACTIVE" && accounts[i].Mode == "MARGIN" {
			return &accounts[i], nil
		}
	}
	for i := range accounts {
		if accounts[i].Status == "ACTIVE" {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("no active accounts found")
}

// GetBalance retrieves the real-time balance for an account.
func (c *Client) GetBalance(accountIDKey string) (*domain.Balance, error) {
	raw, err := c.sdkClient.GetBalance(accountIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return toDomainBalance(accountIDKey, raw, time.Now()), nil
}

// GetPositions retrieves all positions in an account.
func (c *Client) GetPositions(accountIDKey string) ([]domain.Position, error) {
	raw, err := c.sdkClient.GetPortfolio(accountIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, toDomainPosition(p))
	}
	return positions, nil
}

// ListTransactions retrieves one page of transactions, newest first.
func (c *Client) ListTransactions(accountIDKey string, q TransactionsQuery) (*TransactionsPage, error) {
	raw, err := c.sdkClient.ListTransactions(accountIDKey, sdk.TransactionsQuery{
		StartDate: dateToAPIFormat(q.StartDate),
		EndDate:   dateToAPIFormat(q.EndDate),
		Count:     q.Count,
		Marker:    q.Marker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	transactions := make([]domain.Transaction, 0, len(raw.Transactions))
	for _, t := range raw.Transactions {
		transactions = append(transactions, toDomainTransaction(t))
	}

	return &TransactionsPage{
		Transactions:     transactions,
		Marker:           raw.Marker,
		MoreTransactions: raw.MoreTransactions,
		TotalCount:       raw.TotalCount,
	}, nil
}

// dateToAPIFormat converts YYYY-MM-DD to the MMDDYYYY format the API expects.
// Unparseable or empty dates pass through as empty.
func dateToAPIFormat(date string) string {
	if date == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Format("01022006")
}
