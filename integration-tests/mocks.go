package integration_tests

import (
	"context"
	"rebalancer/internal/repository"

	"github.com/shopspring/decimal"
)

func NewMockBrokerRepositoryForTests() repository.BrokerRepository {
	return mockBrokerForTestsHandler{}
}

type mockBrokerForTestsHandler struct{}

func (m mockBrokerForTestsHandler) GetPositionValues(ctx context.Context) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{
		"VTI": decimal.RequireFromString("612.40"),
		"BND": decimal.RequireFromString("187.60"),
		"GLD": decimal.RequireFromString("45.05"),
	}, nil
}

func (m mockBrokerForTestsHandler) GetCash(ctx context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("154.95"), nil
}
