package sdk

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// maxTransactionCount is the per-call limit the transactions endpoint enforces.
const maxTransactionCount = 50

// TransactionsQuery narrows a transactions listing. Dates use the API's
// MMDDYYYY format. A non-empty Marker resumes pagination from a prior page.
type TransactionsQuery struct {
	StartDate string
	EndDate   string
	Count     int
	Marker    string
}

// TransactionsPage is one page of transaction listings, newest first.
type TransactionsPage struct {
	Transactions     []Transaction
	Marker           string
	MoreTransactions bool
	TotalCount       int
}

// ListAccounts retrieves all accounts visible to the API user.
//
// Doubles as the cheapest way to probe whether an access token is still
// valid, so it is also used for token revalidation after restarts.
func (c *Client) ListAccounts() ([]Account, error) {
	body, err := c.get("/v1/accounts/list", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp AccountListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse account list response: %w", err)
	}

	return resp.Response.Accounts.Account, nil
}

// GetBalance retrieves real-time balance figures for one account.
func (c *Client) GetBalance(accountIDKey string) (*BalanceDetail, error) {
	query := url.Values{}
	query.Set("instType", "BROKERAGE")
	query.Set("realTimeNAV", "true")

	body, err := c.get("/v1/accounts/"+url.PathEscape(accountIDKey)+"/balance", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp BalanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse balance response: %w", err)
	}

	return &resp.Response, nil
}

// GetPortfolio retrieves every position in an account using the COMPLETE
// view, following nextPageNo until all pages are collected.
func (c *Client) GetPortfolio(accountIDKey string) ([]Position, error) {
	path := "/v1/accounts/" + url.PathEscape(accountIDKey) + "/portfolio"

	var positions []Position
	pageNo := ""

	for {
		query := url.Values{}
		query.Set("view", "COMPLETE")
		if pageNo != "" {
			query.Set("pageNumber", pageNo)
		}

		body, err := c.get(path, query, nil, nil)
		if err != nil {
			return nil, err
		}

		var resp PortfolioResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse portfolio response: %w", err)
		}

		nextPageNo := ""
		for _, portfolio := range resp.Response.AccountPortfolio {
			positions = append(positions, portfolio.Position...)
			if portfolio.NextPageNo != "" {
				nextPageNo = portfolio.NextPageNo
			}
		}

		if nextPageNo == "" || nextPageNo == pageNo {
			break
		}
		pageNo = nextPageNo
	}

	return positions, nil
}

// ListTransactions retrieves one page of transactions for an account.
// The API caps page size at 50; callers paginate with the returned marker.
func (c *Client) ListTransactions(accountIDKey string, q TransactionsQuery) (*TransactionsPage, error) {
	count := q.Count
	if count <= 0 || count > maxTransactionCount {
		count = maxTransactionCount
	}

	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	if q.StartDate != "" {
		query.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		query.Set("endDate", q.EndDate)
	}
	if q.Marker != "" {
		query.Set("marker", q.Marker)
	}

	body, err := c.get("/v1/accounts/"+url.PathEscape(accountIDKey)+"/transactions", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp TransactionListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse transactions response: %w", err)
	}

	return &TransactionsPage{
		Transactions:     resp.Response.Transaction,
		Marker:           resp.Response.Marker,
		MoreTransactions: resp.Response.MoreTransactions,
		TotalCount:       resp.Response.TotalCount,
	}, nil
}
