package etrade

import (
	"strconv"
	"time"

	"github.com/andrew-rosca/etrade-report/internal/clients/etrade/sdk"
	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// Transformers from raw API shapes to domain types. Kept separate from the
// client so they can be tested without any HTTP plumbing.

func toDomainAccount(a sdk.Account) domain.Account {
	name := a.AccountName
	if name == "" {
		name = a.AccountDesc
	}
	return domain.Account{
		AccountID:    a.AccountID,
		AccountIDKey: a.AccountIDKey,
		Name:         name,
		Type:         a.AccountType,
		Mode:         a.AccountMode,
		Status:       a.AccountStatus,
	}
}

func toDomainBalance(accountIDKey string, b *sdk.BalanceDetail, asOf time.Time) *domain.Balance {
	return &domain.Balance{
		AccountIDKey:     accountIDKey,
		NetAccountValue:  b.Computed.RegtEquity,
		TotalMarketValue: b.Computed.RealTimeValues.NetMv,
		CashBalance:      b.Computed.CashBalance,
		CashAvailable:    b.Computed.TotalAvailableForWithdrawal,
		MarginBalance:    b.Computed.MarginBalance,
		BuyingPower:      b.Computed.MarginBuyingPower,
		AsOf:             asOf,
	}
}

// toDomainPosition flattens one API position. The symbol is the API's
// symbolDescription, which is the plain ticker for equities and the full
// contract description for options.
func toDomainPosition(p sdk.Position) domain.Position {
	lastPrice := p.Quick.LastTrade
	if lastPrice == 0 && p.Quantity != 0 {
		lastPrice = p.MarketValue / p.Quantity
	}

	return domain.Position{
		Symbol:      p.SymbolDescription,
		Description: p.SymbolDescription,
		Quantity:    p.Quantity,
		LastPrice:   lastPrice,
		MarketValue: p.MarketValue,
		CostBasis:   p.TotalCost,
		GainLoss:    p.TotalGain,
		GainLossPct: p.TotalGainPct,
	}
}

func toDomainTransaction(t sdk.Transaction) domain.Transaction {
	symbol := t.Brokerage.DisplaySymbol
	if symbol == "" {
		symbol = t.Brokerage.Product.Symbol
	}

	return domain.Transaction{
		TransactionID: strconv.FormatInt(t.TransactionID, 10),
		Date:          millisToDate(t.TransactionDate),
		Type:          t.TransactionType,
		Description:   t.Description,
		Symbol:        symbol,
		Amount:        t.Amount,
		Quantity:      t.Brokerage.Quantity,
		Price:         t.Brokerage.Price,
		Fee:           t.Brokerage.Fee,
	}
}

// millisToDate converts the API's epoch-millisecond timestamps to YYYY-MM-DD.
func millisToDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
