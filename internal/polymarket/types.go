package polymarket

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// tradeResponse is one element of GET /trades.
type tradeResponse struct {
	ProxyWallet     string         `json:"proxyWallet"`
	Side            string         `json:"side"`
	Asset           string         `json:"asset"`
	ConditionID     string         `json:"conditionId"`
	Market          string         `json:"market"`
	Size            lenientDecimal `json:"size"`
	Price           lenientDecimal `json:"price"`
	Timestamp       json.Number    `json:"timestamp"`
	Title           string         `json:"title"`
	Slug            string         `json:"slug"`
	Outcome         string         `json:"outcome"`
	TransactionHash string         `json:"transactionHash"`
}

// positionResponse is one element of GET /positions.
type positionResponse struct {
	Asset        string         `json:"asset"`
	ConditionID  string         `json:"conditionId"`
	Title        string         `json:"title"`
	Outcome      string         `json:"outcome"`
	Size         lenientDecimal `json:"size"`
	AvgPrice     lenientDecimal `json:"avgPrice"`
	CurrentValue lenientDecimal `json:"currentValue"`
	CashPnl      lenientDecimal `json:"cashPnl"`
}

// lenientDecimal accepts a JSON number or numeric string. Anything else,
// including null, decodes to zero instead of failing the whole record.
type lenientDecimal struct {
	decimal.Decimal
}

func (d *lenientDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(b); err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = v
	return nil
}
