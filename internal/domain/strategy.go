package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Strategy string

const (
	StrategyBuy     Strategy = "Buy"
	StrategyBuySell Strategy = "BuySell"
	StrategySell    Strategy = "Sell"
)

const DefaultStrategy = StrategyBuy

var ErrInvalidStrategy = errors.New("invalid strategy")

// AllStrategies lists strategies in display order.
func AllStrategies() []Strategy {
	return []Strategy{StrategyBuy, StrategyBuySell, StrategySell}
}

func ParseStrategy(s string) (Strategy, error) {
	normalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s))
	for _, strategy := range AllStrategies() {
		if strings.EqualFold(normalized, string(strategy)) {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

func (s Strategy) String() string {
	return string(s)
}

func (s Strategy) IsValid() bool {
	for _, strategy := range AllStrategies() {
		if s == strategy {
			return true
		}
	}
	return false
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	parsed, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
