package l1_service

import (
	"errors"
	"fmt"
	"rebalancer/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoAnchor means Buy or Sell was requested for positions that all
	// have a zero target fraction, so there is nothing to scale from.
	ErrNoAnchor = errors.New("no position with a non-zero target fraction to anchor the rebalance")

	ErrNonPositiveTotal = errors.New("position total must be positive to rebalance")
)

// ComputeTargets returns one target per position, in input order.
//
// Positions that are not ready to rebalance (fractions not summing to
// one, a negative fraction, or a current value that is not positive)
// are mirrored back unchanged rather than treated as an error.
func ComputeTargets(strategy domain.Strategy, positions domain.PositionSet) (domain.TargetSet, error) {
	if !positions.IsValidTargetAllocation() || !positions.AllPositionsAboveZero() {
		return MirrorTargets(positions), nil
	}
	return RebalanceTargets(strategy, positions)
}

// MirrorTargets is the identity mapping: every target equals the
// current value.
func MirrorTargets(positions domain.PositionSet) domain.TargetSet {
	out := make(domain.TargetSet, 0, len(positions))
	for _, p := range positions {
		out = append(out, domain.TargetPosition{
			ID:    p.ID,
			Value: p.CurrentValue,
		})
	}
	return out
}

// RebalanceTargets skips the readiness checks done by ComputeTargets.
// Callers must ensure the position total is positive.
func RebalanceTargets(strategy domain.Strategy, positions domain.PositionSet) (domain.TargetSet, error) {
	if len(positions) == 0 {
		return domain.TargetSet{}, nil
	}

	positionTotal := positions.Total()
	if !positionTotal.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveTotal, positionTotal.String())
	}

	switch strategy {
	case domain.StrategyBuySell:
		return reallocateTotal(positions, positionTotal), nil
	case domain.StrategyBuy, domain.StrategySell:
		anchor, err := findAnchor(strategy, positions, positionTotal)
		if err != nil {
			return nil, err
		}
		return scaleFromAnchor(positions, *anchor), nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
}

// reallocateTotal splits the existing total by target fraction. Only
// multiplication is involved, so outputs sum to the total exactly.
func reallocateTotal(positions domain.PositionSet, positionTotal decimal.Decimal) domain.TargetSet {
	out := make(domain.TargetSet, 0, len(positions))
	for _, p := range positions {
		out = append(out, domain.TargetPosition{
			ID:    p.ID,
			Value: p.TargetFraction.Mul(positionTotal),
		})
	}
	return out
}

func polarity(strategy domain.Strategy) decimal.Decimal {
	if strategy == domain.StrategyBuy {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// deviationTerms returns numerator and denominator of
// deviation * positionTotal, where
//
//	deviation = (currentValue/positionTotal - targetFraction) * polarity / targetFraction
//
// Scaling by the (positive) total keeps the ordering of deviations and
// leaves only multiplication, so comparisons are exact.
func deviationTerms(p domain.Position, positionTotal, polarity decimal.Decimal) (numerator, denominator decimal.Decimal) {
	numerator = p.CurrentValue.Sub(p.TargetFraction.Mul(positionTotal)).Mul(polarity)
	return numerator, p.TargetFraction
}

// deviationLess compares a/b < c/d for non-zero b and d without dividing.
func deviationLess(a, b, c, d decimal.Decimal) bool {
	left := a.Mul(d)
	right := c.Mul(b)
	if b.Mul(d).IsNegative() {
		return right.LessThan(left)
	}
	return left.LessThan(right)
}

// findAnchor picks the position furthest from its target in the
// direction of the strategy, relative to its own target size. Ties go to
// the earliest position. Zero-fraction positions cannot anchor.
func findAnchor(strategy domain.Strategy, positions domain.PositionSet, positionTotal decimal.Decimal) (*domain.Position, error) {
	pol := polarity(strategy)

	var (
		anchor      *domain.Position
		anchorNum   decimal.Decimal
		anchorDenom decimal.Decimal
	)
	for i := range positions {
		p := positions[i]
		if p.TargetFraction.IsZero() {
			continue
		}
		num, denom := deviationTerms(p, positionTotal, pol)
		if anchor == nil || deviationLess(num, denom, anchorNum, anchorDenom) {
			anchor = &p
			anchorNum = num
			anchorDenom = denom
		}
	}

	if anchor == nil {
		return nil, ErrNoAnchor
	}
	return anchor, nil
}

// scaleFromAnchor sets every target to targetFraction * factor with
// factor = anchor.CurrentValue / anchor.TargetFraction. Multiplying
// before dividing keeps the anchor's own target equal to its current
// value.
func scaleFromAnchor(positions domain.PositionSet, anchor domain.Position) domain.TargetSet {
	out := make(domain.TargetSet, 0, len(positions))
	for _, p := range positions {
		out = append(out, domain.TargetPosition{
			ID: p.ID,
			Value: p.TargetFraction.
				Mul(anchor.CurrentValue).
				DivRound(anchor.TargetFraction, domain.DivisionPrecision),
		})
	}
	return out
}

// Deviation is the normalised distance of a position from its target in
// the direction of the strategy, as used to pick the anchor. It returns
// false for positions with a zero target fraction or a zero total.
func Deviation(strategy domain.Strategy, p domain.Position, positionTotal decimal.Decimal) (decimal.Decimal, bool) {
	if p.TargetFraction.IsZero() || positionTotal.IsZero() {
		return decimal.Zero, false
	}
	allocation := p.CurrentValue.DivRound(positionTotal, domain.DivisionPrecision)
	return allocation.
		Sub(p.TargetFraction).
		Mul(polarity(strategy)).
		DivRound(p.TargetFraction, domain.DivisionPrecision), true
}
