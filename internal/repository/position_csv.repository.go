package repository

import (
	"errors"
	"fmt"
	"io"
	"rebalancer/internal/domain"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidPositionCsv = errors.New("invalid positions csv")

// PositionCsvRow is one line of an import or export file. Target is a
// percentage, matching how users enter it.
type PositionCsvRow struct {
	ID            string `csv:"id"`
	Name          string `csv:"name"`
	CurrentValue  string `csv:"current_value"`
	TargetPercent string `csv:"target_percent"`
}

type PositionCsvRepository interface {
	Read(r io.Reader) (domain.PositionSet, error)
	Write(w io.Writer, positions domain.PositionSet) error
}

type positionCsvRepositoryHandler struct{}

func NewPositionCsvRepository() PositionCsvRepository {
	return positionCsvRepositoryHandler{}
}

func parseDecimalCell(value string, column string, line int) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(value, "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("line %d: invalid %s %q: %w", line, column, value, err)
	}
	return d, nil
}

// Read parses rows into positions in file order. Rows without an id get a
// fresh one; empty numeric cells read as zero.
func (h positionCsvRepositoryHandler) Read(r io.Reader) (domain.PositionSet, error) {
	positions, err := h.read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPositionCsv, err)
	}
	return positions, nil
}

func (h positionCsvRepositoryHandler) read(r io.Reader) (domain.PositionSet, error) {
	rows := []PositionCsvRow{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse positions csv: %w", err)
	}

	out := domain.PositionSet{}
	seen := map[uuid.UUID]bool{}
	for i, row := range rows {
		line := i + 2
		currentValue, err := parseDecimalCell(row.CurrentValue, "current_value", line)
		if err != nil {
			return nil, err
		}
		targetPercent, err := parseDecimalCell(row.TargetPercent, "target_percent", line)
		if err != nil {
			return nil, err
		}

		id := domain.NewID()
		if strings.TrimSpace(row.ID) != "" {
			id, err = uuid.Parse(strings.TrimSpace(row.ID))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid id %q: %w", line, row.ID, err)
			}
		}
		if seen[id] {
			return nil, fmt.Errorf("line %d: duplicate id %s", line, id)
		}
		seen[id] = true

		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = fmt.Sprintf("Position %d", len(out)+1)
		}

		out = append(out, domain.Position{
			ID:             id,
			Name:           name,
			CurrentValue:   currentValue,
			TargetFraction: domain.PercentToFraction(targetPercent),
		})
	}

	return out, nil
}

func (h positionCsvRepositoryHandler) Write(w io.Writer, positions domain.PositionSet) error {
	rows := []PositionCsvRow{}
	for _, p := range positions {
		rows = append(rows, PositionCsvRow{
			ID:            p.ID.String(),
			Name:          p.Name,
			CurrentValue:  p.CurrentValue.String(),
			TargetPercent: domain.FractionToPercent(p.TargetFraction).String(),
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write positions csv: %w", err)
	}
	return nil
}
