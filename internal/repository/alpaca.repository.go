package repository

import (
	"context"
	"fmt"
	"rebalancer/internal/logger"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// CashSymbol is the key used for uninvested cash in broker values.
const CashSymbol = ":CASH"

// BrokerRepository reads the current market value of each holding from a
// brokerage account.
type BrokerRepository interface {
	GetPositionValues(ctx context.Context) (map[string]decimal.Decimal, error)
	GetCash(ctx context.Context) (decimal.Decimal, error)
}

func NewAlpacaRepository(apiKey, apiSecret string, endpoint string) BrokerRepository {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    endpoint,
		RetryLimit: 3,
	})

	return &alpacaRepositoryHandler{
		Client: client,
	}
}

type alpacaRepositoryHandler struct {
	Client *alpaca.Client
}

func (h alpacaRepositoryHandler) GetPositionValues(ctx context.Context) (map[string]decimal.Decimal, error) {
	log := logger.FromContext(ctx)

	positions, err := h.Client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to get alpaca positions: %w", err)
	}

	out := map[string]decimal.Decimal{}
	for _, p := range positions {
		if p.MarketValue == nil {
			log.Warnf("alpaca position %s has no market value, skipping", p.Symbol)
			continue
		}
		out[p.Symbol] = out[p.Symbol].Add(*p.MarketValue)
	}

	return out, nil
}

func (h alpacaRepositoryHandler) GetCash(ctx context.Context) (decimal.Decimal, error) {
	account, err := h.Client.GetAccount()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get alpaca account: %w", err)
	}
	return account.Cash, nil
}
