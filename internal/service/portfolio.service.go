package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"rebalancer/internal/domain"
	"rebalancer/internal/logger"
	"rebalancer/internal/repository"
	l2_service "rebalancer/internal/service/l2"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrBrokerNotConfigured = errors.New("no broker account configured")

type UpdatePositionInput struct {
	Name          *string
	CurrentValue  *decimal.Decimal
	TargetPercent *decimal.Decimal
}

type SyncFromBrokerInput struct {
	IncludeCash bool
}

type PortfolioService interface {
	Create(ctx context.Context, name string) (*domain.Portfolio, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error)
	List(ctx context.Context) ([]domain.Portfolio, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddPosition(ctx context.Context, id uuid.UUID, name string) (*domain.Portfolio, error)
	RemovePosition(ctx context.Context, id uuid.UUID, positionID uuid.UUID) (*domain.Portfolio, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, positionID uuid.UUID, in UpdatePositionInput) (*domain.Portfolio, error)
	SetStrategy(ctx context.Context, id uuid.UUID, strategy domain.Strategy) (*domain.Portfolio, error)

	Rebalance(ctx context.Context, id uuid.UUID) (*l2_service.RebalanceSummary, error)

	ImportPositions(ctx context.Context, id uuid.UUID, r io.Reader) (*domain.Portfolio, error)
	ExportPositions(ctx context.Context, id uuid.UUID, w io.Writer) error
	SyncFromBroker(ctx context.Context, id uuid.UUID, in SyncFromBrokerInput) (*domain.Portfolio, error)
}

type portfolioServiceHandler struct {
	PortfolioRepository   repository.PortfolioRepository
	PositionCsvRepository repository.PositionCsvRepository
	BrokerRepository      repository.BrokerRepository
}

func NewPortfolioService(
	portfolioRepository repository.PortfolioRepository,
	positionCsvRepository repository.PositionCsvRepository,
	brokerRepository repository.BrokerRepository,
) PortfolioService {
	return portfolioServiceHandler{
		PortfolioRepository:   portfolioRepository,
		PositionCsvRepository: positionCsvRepository,
		BrokerRepository:      brokerRepository,
	}
}

func (h portfolioServiceHandler) Create(ctx context.Context, name string) (*domain.Portfolio, error) {
	if name == "" {
		name = "Portfolio"
	}
	p, err := h.PortfolioRepository.Save(ctx, domain.NewPortfolio(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	logger.FromContext(ctx).Infow("created portfolio", "portfolioID", p.PortfolioID)
	return p, nil
}

func (h portfolioServiceHandler) Get(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	return h.PortfolioRepository.Get(ctx, id)
}

func (h portfolioServiceHandler) List(ctx context.Context) ([]domain.Portfolio, error) {
	return h.PortfolioRepository.List(ctx)
}

func (h portfolioServiceHandler) Delete(ctx context.Context, id uuid.UUID) error {
	if err := h.PortfolioRepository.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Infow("deleted portfolio", "portfolioID", id)
	return nil
}

// edit applies fn to a copy of the latest snapshot inside a store update,
// so edits to one portfolio are applied one after another.
func (h portfolioServiceHandler) edit(ctx context.Context, id uuid.UUID, fn repository.UpdateFunc) (*domain.Portfolio, error) {
	saved, err := h.PortfolioRepository.Update(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to update portfolio %s: %w", id, err)
	}
	return saved, nil
}

func (h portfolioServiceHandler) AddPosition(ctx context.Context, id uuid.UUID, name string) (*domain.Portfolio, error) {
	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		updated, _ := p.AddPosition(name)
		return updated, nil
	})
}

func (h portfolioServiceHandler) RemovePosition(ctx context.Context, id uuid.UUID, positionID uuid.UUID) (*domain.Portfolio, error) {
	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		return p.RemovePosition(positionID)
	})
}

func (h portfolioServiceHandler) UpdatePosition(ctx context.Context, id uuid.UUID, positionID uuid.UUID, in UpdatePositionInput) (*domain.Portfolio, error) {
	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		var err error
		if _, ok := p.Positions.Find(positionID); !ok {
			return p, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, positionID)
		}
		if in.Name != nil {
			if p, err = p.RenamePosition(positionID, *in.Name); err != nil {
				return p, err
			}
		}
		if in.CurrentValue != nil {
			if p, err = p.SetCurrentValue(positionID, *in.CurrentValue); err != nil {
				return p, err
			}
		}
		if in.TargetPercent != nil {
			if p, err = p.SetTargetPercent(positionID, *in.TargetPercent); err != nil {
				return p, err
			}
		}
		return p, nil
	})
}

func (h portfolioServiceHandler) SetStrategy(ctx context.Context, id uuid.UUID, strategy domain.Strategy) (*domain.Portfolio, error) {
	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		return p.SetStrategy(strategy)
	})
}

func (h portfolioServiceHandler) Rebalance(ctx context.Context, id uuid.UUID) (*l2_service.RebalanceSummary, error) {
	p, err := h.PortfolioRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := l2_service.SummarizeRebalance(l2_service.SummarizeRebalanceInput{
		Strategy:  p.Strategy,
		Positions: p.Positions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebalance portfolio %s: %w", id, err)
	}

	if !summary.Rebalanced {
		logger.FromContext(ctx).Debugw(
			"portfolio not ready to rebalance",
			"portfolioID", id,
			"validTargetAllocation", summary.ValidTargetAllocation,
			"allPositionsAboveZero", summary.AllPositionsAboveZero,
		)
	}

	return summary, nil
}

func (h portfolioServiceHandler) ImportPositions(ctx context.Context, id uuid.UUID, r io.Reader) (*domain.Portfolio, error) {
	positions, err := h.PositionCsvRepository.Read(r)
	if err != nil {
		return nil, err
	}

	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		p = p.DeepCopy()
		p.Positions = keepOwnIDs(p.Positions, positions)
		logger.FromContext(ctx).Infow("imported positions", "portfolioID", id, "count", len(positions))
		return p, nil
	})
}

// keepOwnIDs gives a fresh id to every imported position whose id is not
// already one of the portfolio's positions. Ids never move between
// portfolios.
func keepOwnIDs(existing domain.PositionSet, imported domain.PositionSet) domain.PositionSet {
	own := map[uuid.UUID]bool{}
	for _, id := range existing.IDs() {
		own[id] = true
	}

	out := imported.Clone()
	for i := range out {
		if !own[out[i].ID] {
			out[i].ID = domain.NewID()
		}
	}
	return out
}

func (h portfolioServiceHandler) ExportPositions(ctx context.Context, id uuid.UUID, w io.Writer) error {
	p, err := h.PortfolioRepository.Get(ctx, id)
	if err != nil {
		return err
	}
	return h.PositionCsvRepository.Write(w, p.Positions)
}

// SyncFromBroker copies broker market values onto positions whose name
// matches a held symbol. Symbols with no matching position are appended
// with a zero target so the user can assign one.
func (h portfolioServiceHandler) SyncFromBroker(ctx context.Context, id uuid.UUID, in SyncFromBrokerInput) (*domain.Portfolio, error) {
	if h.BrokerRepository == nil {
		return nil, ErrBrokerNotConfigured
	}
	log := logger.FromContext(ctx)

	values, err := h.BrokerRepository.GetPositionValues(ctx)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]decimal.Decimal{}
	}
	if in.IncludeCash {
		cash, err := h.BrokerRepository.GetCash(ctx)
		if err != nil {
			return nil, err
		}
		values[repository.CashSymbol] = cash
	}

	return h.edit(ctx, id, func(p domain.Portfolio) (domain.Portfolio, error) {
		p = p.DeepCopy()
		matched := map[string]bool{}
		for i := range p.Positions {
			value, ok := values[p.Positions[i].Name]
			if !ok {
				continue
			}
			p.Positions[i].CurrentValue = value
			matched[p.Positions[i].Name] = true
		}

		for _, symbol := range sortedSymbols(values) {
			if matched[symbol] {
				continue
			}
			p.Positions = append(p.Positions, domain.NewPosition(symbol, values[symbol], decimal.Zero))
			log.Infow("added position from broker", "portfolioID", id, "symbol", symbol)
		}
		return p, nil
	})
}
