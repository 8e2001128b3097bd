package polymarket

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rickgao/polywhales/internal/model"
)

var errMalformed = errors.New("malformed trade")

// ParseUnixSeconds converts a seconds timestamp, as a JSON number or
// numeric string, to UTC time. Returns the zero time for invalid input.
func ParseUnixSeconds(n json.Number) time.Time {
	s := strings.Trim(strings.TrimSpace(n.String()), `"`)
	if s == "" {
		return time.Time{}
	}
	if secs, err := json.Number(s).Int64(); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	f, err := json.Number(s).Float64()
	if err != nil {
		return time.Time{}
	}
	return time.Unix(int64(f), 0).UTC()
}

// toTrade maps one decoded trade to the domain type. The market id falls
// back from conditionId to market.
func toTrade(r tradeResponse) model.Trade {
	marketID := r.ConditionID
	if marketID == "" {
		marketID = r.Market
	}
	return model.Trade{
		TransactionHash: strings.TrimSpace(r.TransactionHash),
		MarketID:        marketID,
		Title:           r.Title,
		Side:            model.ParseSide(r.Side),
		Size:            r.Size.Decimal,
		Price:           r.Price.Decimal,
		Outcome:         r.Outcome,
		Timestamp:       ParseUnixSeconds(r.Timestamp),
	}
}

// decodeTrade decodes a single raw element. Non-object elements are malformed.
func decodeTrade(raw json.RawMessage) (model.Trade, error) {
	var r tradeResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Trade{}, errors.Join(errMalformed, err)
	}
	return toTrade(r), nil
}

func toPosition(r positionResponse) model.Position {
	return model.Position{
		Asset:        r.Asset,
		ConditionID:  r.ConditionID,
		Title:        r.Title,
		Outcome:      r.Outcome,
		Size:         r.Size.Decimal,
		AvgPrice:     r.AvgPrice.Decimal,
		CurrentValue: r.CurrentValue.Decimal,
		CashPnl:      r.CashPnl.Decimal,
	}
}
