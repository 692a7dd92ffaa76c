package models

import "slices"

// Denominations lists the accepted coins, largest first
var Denominations = []int{100, 50, 20, 10, 5}

// IsValidDenomination reports whether amount is an accepted coin
func IsValidDenomination(amount int) bool {
	return slices.Contains(Denominations, amount)
}

// CoinCount is a number of coins of one denomination
type CoinCount struct {
	Coin  int `json:"coin"`
	Count int `json:"count"`
}

// BreakIntoCoins splits an amount into coins using the largest denominations first.
//
// Denominations that are not used are omitted. Any remainder below the smallest coin is dropped,
// which cannot happen for balances built from deposits and multiple-of-5 costs.
func BreakIntoCoins(amount int) []CoinCount {
	change := []CoinCount{}
	for _, coin := range Denominations {
		if amount < coin {
			continue
		}
		count := amount / coin
		amount -= count * coin
		change = append(change, CoinCount{Coin: coin, Count: count})
	}
	return change
}

// PurchaseResult is returned after a successful purchase
type PurchaseResult struct {
	Product    ProductResponse `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalSpent int             `json:"totalSpent"`
	Balance    int             `json:"balance"`
	Change     []CoinCount     `json:"change"`
}

// APIMessage is a generic success envelope
type APIMessage struct {
	Message string   `json:"message"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// DepositResponse is returned after a successful deposit
type DepositResponse struct {
	APIMessage
	Balance int `json:"balance"`
}

// Heartbeat is returned by the liveness probe
type Heartbeat struct {
	Status     string `json:"status"`
	SystemTime string `json:"system_time"`
}
