package cash_flows

import "strings"

// Flow categories assigned by Classify. Trade and internal are neutral:
// they move value between forms without changing what the account is worth.
const (
	CategoryDeposit    = "deposit"
	CategoryWithdrawal = "withdrawal"
	CategoryDividend   = "dividend"
	CategoryInterest   = "interest"
	CategoryPayment    = "payment"
	CategoryFee        = "fee"
	CategoryMisc       = "misc"
	CategoryTrade      = "trade"
	CategoryInternal   = "internal"
	CategoryOther      = "other"
)

// Classification is the cash effect of one transaction.
type Classification struct {
	Impact     float64 // Signed cash effect; zero for neutral transactions
	Category   string
	Recognized bool // False when no rule matched and the amount was taken as-is
}

// Neutral reports whether the transaction moved value between forms
// (securities, sub-accounts) rather than in or out of the account.
func (c Classification) Neutral() bool {
	return c.Category == CategoryTrade || c.Category == CategoryInternal
}

// flowTypes maps type keywords to flow categories, matched in order.
var flowTypes = []struct {
	keyword  string
	category string
}{
	{"dividend", CategoryDividend},
	{"interest", CategoryInterest},
	{"funds received", CategoryDeposit},
	{"automated payment", CategoryPayment},
	{"withdrawal", CategoryWithdrawal},
	{"deposit", CategoryDeposit},
	{"fee", CategoryFee},
	{"misc", CategoryMisc},
}

// Classify determines how a transaction affects account value.
// Matching is case-insensitive and ordered: direction-carrying ACH
// descriptions first, then internal sweeps and transfers, then trades,
// then the flow type keywords. Unmatched transactions count their amount
// toward the flow but are flagged unrecognized so callers can warn.
func Classify(txType, description string, amount float64) Classification {
	desc := strings.ToLower(description)
	typ := strings.ToLower(txType)

	// ACH movements and online transfers carry direction in the description.
	// When the description names no direction, fall through to the type rules.
	if strings.Contains(desc, "ach") || strings.Contains(typ, "online transfer") {
		if strings.Contains(desc, "deposit") || strings.Contains(desc, "credit") {
			return Classification{Impact: amount, Category: CategoryDeposit, Recognized: true}
		}
		if strings.Contains(desc, "debit") || strings.Contains(desc, "withdrawal") {
			return Classification{Impact: amount, Category: CategoryWithdrawal, Recognized: true}
		}
	}

	// Cash/margin sweeps shuffle money between sub-accounts.
	if strings.Contains(desc, "trnsfr cash to margin") || strings.Contains(desc, "trnsfr margin to cash") {
		return Classification{Category: CategoryInternal, Recognized: true}
	}
	if strings.Contains(typ, "transfer") {
		return Classification{Category: CategoryInternal, Recognized: true}
	}

	// Trades swap cash for securities; account value is unchanged.
	if strings.Contains(typ, "bought") || strings.Contains(typ, "sold") {
		return Classification{Category: CategoryTrade, Recognized: true}
	}

	for _, ft := range flowTypes {
		if strings.Contains(typ, ft.keyword) {
			return Classification{Impact: amount, Category: ft.category, Recognized: true}
		}
	}

	return Classification{Impact: amount, Category: CategoryOther}
}
