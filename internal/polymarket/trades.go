package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/polywhales/internal/model"
)

// DefaultTradeLimit is the number of recent trades requested per wallet.
const DefaultTradeLimit = 10

// ErrEmptyAddress is returned when no wallet address is given.
var ErrEmptyAddress = errors.New("polymarket: wallet address is required")

// GetTrades fetches the most recent trades for a wallet.
//
// The returned sequence is finite and meant to be ranged over once.
// Elements that cannot be decoded are skipped individually.
func (c *Client) GetTrades(ctx context.Context, address string, limit int) (iter.Seq[model.Trade], error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if limit <= 0 {
		limit = DefaultTradeLimit
	}

	query := url.Values{}
	query.Set("user", address)
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/trades", query)
	if err != nil {
		return nil, fmt.Errorf("get trades for %s: %w", address, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal trades for %s: %w", address, err)
	}

	return func(yield func(model.Trade) bool) {
		for i, r := range raw {
			trade, err := decodeTrade(r)
			if err != nil {
				c.logger.Debug("skipping malformed trade",
					"wallet", address,
					"index", i,
					"error", err,
				)
				continue
			}
			if !yield(trade) {
				return
			}
		}
	}, nil
}

// GetPositions fetches open positions for a wallet.
func (c *Client) GetPositions(ctx context.Context, address string, limit int) ([]model.Position, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if limit <= 0 {
		limit = DefaultTradeLimit
	}

	query := url.Values{}
	query.Set("user", address)
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/positions", query)
	if err != nil {
		return nil, fmt.Errorf("get positions for %s: %w", address, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal positions for %s: %w", address, err)
	}

	positions := make([]model.Position, 0, len(raw))
	for _, r := range raw {
		var p positionResponse
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		positions = append(positions, toPosition(p))
	}
	return positions, nil
}
