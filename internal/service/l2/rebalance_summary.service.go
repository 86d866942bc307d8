package l2_service

import (
	"fmt"
	"math"
	"rebalancer/internal/domain"
	l1_service "rebalancer/internal/service/l1"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

type SummarizeRebalanceInput struct {
	Strategy  domain.Strategy
	Positions domain.PositionSet
}

type PositionSummary struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	CurrentAllocation decimal.Decimal `json:"currentAllocation"`
	TargetFraction    decimal.Decimal `json:"targetFraction"`
	TargetValue       decimal.Decimal `json:"targetValue"`
	// Diff is TargetValue - CurrentValue: positive means buy
	Diff decimal.Decimal `json:"diff"`
	// Deviation is nil for positions that cannot anchor a rebalance
	Deviation *decimal.Decimal `json:"deviation"`
}

type DriftSummary struct {
	MeanAbsolute float64 `json:"meanAbsolute"`
	StdDev       float64 `json:"stdDev"`
	MaxAbsolute  float64 `json:"maxAbsolute"`
}

type RebalanceSummary struct {
	Strategy              domain.Strategy   `json:"strategy"`
	Positions             []PositionSummary `json:"positions"`
	Targets               domain.TargetSet  `json:"targets"`
	PositionTotal         decimal.Decimal   `json:"positionTotal"`
	TargetTotal           decimal.Decimal   `json:"targetTotal"`
	TotalDiff             decimal.Decimal   `json:"totalDiff"`
	ValidTargetAllocation bool              `json:"validTargetAllocation"`
	AllPositionsAboveZero bool              `json:"allPositionsAboveZero"`
	Rebalanced            bool              `json:"rebalanced"`
	Drift                 DriftSummary      `json:"drift"`
}

// SummarizeRebalance computes targets for the positions and the figures
// a worksheet shows next to them.
func SummarizeRebalance(in SummarizeRebalanceInput) (*RebalanceSummary, error) {
	targets, err := l1_service.ComputeTargets(in.Strategy, in.Positions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute targets: %w", err)
	}

	out := &RebalanceSummary{
		Strategy:              in.Strategy,
		Positions:             []PositionSummary{},
		Targets:               targets,
		PositionTotal:         in.Positions.Total(),
		TargetTotal:           targets.Total(),
		ValidTargetAllocation: in.Positions.IsValidTargetAllocation(),
		AllPositionsAboveZero: in.Positions.AllPositionsAboveZero(),
	}
	out.Rebalanced = out.ValidTargetAllocation && out.AllPositionsAboveZero

	for _, p := range in.Positions {
		allocation, err := in.Positions.AllocationFor(p.ID)
		if err != nil {
			return nil, err
		}
		targetValue, ok := targets.ValueFor(p.ID)
		if !ok {
			return nil, fmt.Errorf("no target computed for position %s", p.ID)
		}
		summary := PositionSummary{
			ID:                p.ID,
			Name:              p.Name,
			CurrentValue:      p.CurrentValue,
			CurrentAllocation: allocation,
			TargetFraction:    p.TargetFraction,
			TargetValue:       targetValue,
			Diff:              targetValue.Sub(p.CurrentValue),
		}
		if deviation, ok := l1_service.Deviation(in.Strategy, p, out.PositionTotal); ok {
			summary.Deviation = &deviation
		}
		out.Positions = append(out.Positions, summary)
	}

	// only buy and sell move money in or out of the portfolio
	out.TotalDiff = decimal.Zero
	diff := out.TargetTotal.Sub(out.PositionTotal)
	if in.Strategy != domain.StrategyBuySell && out.Rebalanced && !RoundValue(diff).IsZero() {
		out.TotalDiff = diff
	}

	drift, err := computeDrift(out.Positions)
	if err != nil {
		return nil, err
	}
	out.Drift = *drift

	return out, nil
}

func computeDrift(positions []PositionSummary) (*DriftSummary, error) {
	if len(positions) == 0 {
		return &DriftSummary{}, nil
	}

	signed := []float64{}
	absolute := []float64{}
	for _, p := range positions {
		d := p.CurrentAllocation.Sub(p.TargetFraction).InexactFloat64()
		signed = append(signed, d)
		absolute = append(absolute, math.Abs(d))
	}

	meanAbs, err := stats.Mean(absolute)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean drift: %w", err)
	}
	stdev, err := stats.StandardDeviationPopulation(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to compute drift stdev: %w", err)
	}
	maxAbs, err := stats.Max(absolute)
	if err != nil {
		return nil, fmt.Errorf("failed to compute max drift: %w", err)
	}

	return &DriftSummary{
		MeanAbsolute: meanAbs,
		StdDev:       stdev,
		MaxAbsolute:  maxAbs,
	}, nil
}

// RoundValue rounds a monetary value to whole units for display.
func RoundValue(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// RoundPercent converts a fraction to a percentage with two decimals.
func RoundPercent(fraction decimal.Decimal) decimal.Decimal {
	return domain.FractionToPercent(fraction).Round(2)
}
