package cash_flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		txType       string
		description  string
		amount       float64
		wantImpact   float64
		wantCategory string
		wantKnown    bool
	}{
		{
			name:         "ach deposit",
			txType:       "Transfer",
			description:  "ACH DEPOSIT REFID:123456789",
			amount:       500.00,
			wantImpact:   500.00,
			wantCategory: CategoryDeposit,
			wantKnown:    true,
		},
		{
			name:         "ach debit",
			txType:       "Transfer",
			description:  "ACH DEBIT REFID:987654321",
			amount:       -250.00,
			wantImpact:   -250.00,
			wantCategory: CategoryWithdrawal,
			wantKnown:    true,
		},
		{
			name:         "ach withdrawal keyword",
			txType:       "Transfer",
			description:  "ACH WITHDRAWAL REFID:555",
			amount:       -100.00,
			wantImpact:   -100.00,
			wantCategory: CategoryWithdrawal,
			wantKnown:    true,
		},
		{
			name:         "online transfer credit",
			txType:       "Online Transfer",
			description:  "ONLINE TRANSFER CREDIT",
			amount:       1200.00,
			wantImpact:   1200.00,
			wantCategory: CategoryDeposit,
			wantKnown:    true,
		},
		{
			name:         "ach without direction falls through to transfer rule",
			txType:       "Transfer",
			description:  "ACH REFID:42",
			amount:       300.00,
			wantImpact:   0,
			wantCategory: CategoryInternal,
			wantKnown:    true,
		},
		{
			name:         "ach without direction falls through to type keywords",
			txType:       "Misc",
			description:  "ACH REFID:42",
			amount:       300.00,
			wantImpact:   300.00,
			wantCategory: CategoryMisc,
			wantKnown:    true,
		},
		{
			name:         "margin sweep is internal",
			txType:       "Journal",
			description:  "TRNSFR MARGIN TO CASH",
			amount:       900.00,
			wantImpact:   0,
			wantCategory: CategoryInternal,
			wantKnown:    true,
		},
		{
			name:         "cash sweep is internal",
			txType:       "Journal",
			description:  "TRNSFR CASH TO MARGIN",
			amount:       -900.00,
			wantImpact:   0,
			wantCategory: CategoryInternal,
			wantKnown:    true,
		},
		{
			name:         "transfer type is internal",
			txType:       "Transfer",
			description:  "INTERNAL MOVEMENT",
			amount:       100.00,
			wantImpact:   0,
			wantCategory: CategoryInternal,
			wantKnown:    true,
		},
		{
			name:         "buy is neutral",
			txType:       "Bought",
			description:  "AAPL BUY 10 @ 150.00",
			amount:       -1500.00,
			wantImpact:   0,
			wantCategory: CategoryTrade,
			wantKnown:    true,
		},
		{
			name:         "sell is neutral",
			txType:       "Sold",
			description:  "JEPI SELL 20 @ 55.00",
			amount:       1100.00,
			wantImpact:   0,
			wantCategory: CategoryTrade,
			wantKnown:    true,
		},
		{
			name:         "dividend",
			txType:       "Dividend",
			description:  "JEPI CASH DIV",
			amount:       42.17,
			wantImpact:   42.17,
			wantCategory: CategoryDividend,
			wantKnown:    true,
		},
		{
			name:         "qualified dividend matches keyword",
			txType:       "Qualified Dividend",
			description:  "SCHD QUALIFIED DIV",
			amount:       18.50,
			wantImpact:   18.50,
			wantCategory: CategoryDividend,
			wantKnown:    true,
		},
		{
			name:         "interest",
			txType:       "Interest Income",
			description:  "EXTNDED INSURANCE SWEEP",
			amount:       0.53,
			wantImpact:   0.53,
			wantCategory: CategoryInterest,
			wantKnown:    true,
		},
		{
			name:         "margin interest charge",
			txType:       "Margin Interest",
			description:  "MARGIN INTEREST",
			amount:       -112.90,
			wantImpact:   -112.90,
			wantCategory: CategoryInterest,
			wantKnown:    true,
		},
		{
			name:         "funds received",
			txType:       "Funds Received",
			description:  "WIRE IN",
			amount:       5000.00,
			wantImpact:   5000.00,
			wantCategory: CategoryDeposit,
			wantKnown:    true,
		},
		{
			name:         "automated payment",
			txType:       "Automated Payment",
			description:  "BILL PAYMENT",
			amount:       -75.00,
			wantImpact:   -75.00,
			wantCategory: CategoryPayment,
			wantKnown:    true,
		},
		{
			name:         "fee",
			txType:       "Adjustment Fee",
			description:  "ADR CUSTODY FEE",
			amount:       -2.50,
			wantImpact:   -2.50,
			wantCategory: CategoryFee,
			wantKnown:    true,
		},
		{
			name:         "case insensitive type match",
			txType:       "DIVIDEND",
			description:  "MSTY DIV",
			amount:       88.00,
			wantImpact:   88.00,
			wantCategory: CategoryDividend,
			wantKnown:    true,
		},
		{
			name:         "unknown type counts amount",
			txType:       "Conversion",
			description:  "SECURITY CONVERSION",
			amount:       -10.00,
			wantImpact:   -10.00,
			wantCategory: CategoryOther,
			wantKnown:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.txType, tt.description, tt.amount)

			assert.Equal(t, tt.wantImpact, c.Impact)
			assert.Equal(t, tt.wantCategory, c.Category)
			assert.Equal(t, tt.wantKnown, c.Recognized)
		})
	}
}

func TestClassificationNeutral(t *testing.T) {
	assert.True(t, Classification{Category: CategoryTrade}.Neutral())
	assert.True(t, Classification{Category: CategoryInternal}.Neutral())
	assert.False(t, Classification{Category: CategoryDeposit}.Neutral())
	assert.False(t, Classification{Category: CategoryOther}.Neutral())
}
