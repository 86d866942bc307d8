package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrPositionNotFound = errors.New("position not found")

// Position is a tracked holding. TargetFraction is a fraction of 1, not
// a percentage.
type Position struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	TargetFraction decimal.Decimal `json:"targetFraction"`
}

func NewPosition(name string, currentValue, targetFraction decimal.Decimal) Position {
	return Position{
		ID:             NewID(),
		Name:           name,
		CurrentValue:   currentValue,
		TargetFraction: targetFraction,
	}
}

// NewID returns a time-ordered identifier, falling back to a random one
// if the clock sequence cannot be read.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// PositionSet is an ordered snapshot of positions. Order is significant
// to callers; lookups go through IDs.
type PositionSet []Position

// IsValidTargetAllocation reports whether target fractions sum to exactly
// one with no negative fraction. An empty set sums to zero and is invalid.
func (s PositionSet) IsValidTargetAllocation() bool {
	sum := decimal.Zero
	for _, p := range s {
		if p.TargetFraction.IsNegative() {
			return false
		}
		sum = sum.Add(p.TargetFraction)
	}
	return sum.Equal(decimal.NewFromInt(1))
}

// AllPositionsAboveZero reports whether every current value is strictly
// positive. Vacuously true for an empty set.
func (s PositionSet) AllPositionsAboveZero() bool {
	for _, p := range s {
		if !p.CurrentValue.IsPositive() {
			return false
		}
	}
	return true
}

func (s PositionSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.CurrentValue)
	}
	return total
}

func (s PositionSet) TargetFractionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.TargetFraction)
	}
	return total
}

func (s PositionSet) Find(id uuid.UUID) (*Position, bool) {
	for i := range s {
		if s[i].ID == id {
			p := s[i]
			return &p, true
		}
	}
	return nil, false
}

func (s PositionSet) indexOf(id uuid.UUID) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// AllocationFor returns the current share of the total held by the
// position, or zero when the total is zero.
func (s PositionSet) AllocationFor(id uuid.UUID) (decimal.Decimal, error) {
	p, ok := s.Find(id)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	total := s.Total()
	if total.IsZero() {
		return decimal.Zero, nil
	}
	return p.CurrentValue.DivRound(total, DivisionPrecision), nil
}

func (s PositionSet) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for _, p := range s {
		out = append(out, p.ID)
	}
	return out
}

func (s PositionSet) Clone() PositionSet {
	if s == nil {
		return nil
	}
	out := make(PositionSet, len(s))
	copy(out, s)
	return out
}

// DivisionPrecision is the number of fractional digits kept by the few
// divisions that cannot be avoided.
const DivisionPrecision int32 = 28

type TargetPosition struct {
	ID    uuid.UUID       `json:"id"`
	Value decimal.Decimal `json:"value"`
}

type TargetSet []TargetPosition

func (t TargetSet) ValueFor(id uuid.UUID) (decimal.Decimal, bool) {
	for _, target := range t {
		if target.ID == id {
			return target.Value, true
		}
	}
	return decimal.Zero, false
}

func (t TargetSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, target := range t {
		total = total.Add(target.Value)
	}
	return total
}
