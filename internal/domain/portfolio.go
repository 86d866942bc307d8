package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is the persisted rebalancing worksheet: a named list of
// positions and the strategy selected for them.
type Portfolio struct {
	PortfolioID uuid.UUID   `json:"portfolioID"`
	Name        string      `json:"name"`
	Strategy    Strategy    `json:"strategy"`
	Positions   PositionSet `json:"positions"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewPortfolio seeds a worksheet with a 70/30 split across two empty
// positions.
func NewPortfolio(name string) Portfolio {
	now := time.Now().UTC()
	return Portfolio{
		PortfolioID: NewID(),
		Name:        name,
		Strategy:    DefaultStrategy,
		Positions: PositionSet{
			NewPosition("Position 1", decimal.Zero, decimal.RequireFromString("0.70")),
			NewPosition("Position 2", decimal.Zero, decimal.RequireFromString("0.30")),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p Portfolio) DeepCopy() Portfolio {
	out := p
	out.Positions = p.Positions.Clone()
	return out
}

// AddPosition appends an empty position. An empty name falls back to
// "Position N" where N is the new length of the list.
func (p Portfolio) AddPosition(name string) (Portfolio, Position) {
	out := p.DeepCopy()
	if name == "" {
		name = fmt.Sprintf("Position %d", len(out.Positions)+1)
	}
	position := NewPosition(name, decimal.Zero, decimal.Zero)
	out.Positions = append(out.Positions, position)
	return out, position
}

func (p Portfolio) RemovePosition(id uuid.UUID) (Portfolio, error) {
	ix := p.Positions.indexOf(id)
	if ix < 0 {
		return p, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	out := p.DeepCopy()
	out.Positions = append(out.Positions[:ix], out.Positions[ix+1:]...)
	return out, nil
}

func (p Portfolio) updatePosition(id uuid.UUID, fn func(*Position)) (Portfolio, error) {
	ix := p.Positions.indexOf(id)
	if ix < 0 {
		return p, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	out := p.DeepCopy()
	fn(&out.Positions[ix])
	return out, nil
}

func (p Portfolio) RenamePosition(id uuid.UUID, name string) (Portfolio, error) {
	return p.updatePosition(id, func(position *Position) {
		position.Name = name
	})
}

func (p Portfolio) SetCurrentValue(id uuid.UUID, value decimal.Decimal) (Portfolio, error) {
	return p.updatePosition(id, func(position *Position) {
		position.CurrentValue = value
	})
}

// SetTargetPercent stores percent/100 as the position's target fraction.
func (p Portfolio) SetTargetPercent(id uuid.UUID, percent decimal.Decimal) (Portfolio, error) {
	return p.updatePosition(id, func(position *Position) {
		position.TargetFraction = PercentToFraction(percent)
	})
}

func (p Portfolio) SetStrategy(strategy Strategy) (Portfolio, error) {
	if !strategy.IsValid() {
		return p, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	out := p.DeepCopy()
	out.Strategy = strategy
	return out, nil
}

var hundred = decimal.NewFromInt(100)

func PercentToFraction(percent decimal.Decimal) decimal.Decimal {
	return percent.DivRound(hundred, DivisionPrecision)
}

func FractionToPercent(fraction decimal.Decimal) decimal.Decimal {
	return fraction.Mul(hundred)
}
