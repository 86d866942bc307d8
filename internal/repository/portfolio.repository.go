package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rebalancer/internal/db/models/postgres/public/model"
	"rebalancer/internal/db/models/postgres/public/table"
	"rebalancer/internal/domain"
	"time"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
	"github.com/google/uuid"
)

var ErrPortfolioNotFound = errors.New("portfolio not found")

// UpdateFunc receives the stored snapshot and returns the one to store.
type UpdateFunc func(domain.Portfolio) (domain.Portfolio, error)

// PortfolioRepository stores whole portfolio snapshots. Save replaces
// whatever was stored under the same ID. Update runs fn while no other
// Update for the same portfolio can, so read-modify-write edits are not
// lost.
type PortfolioRepository interface {
	Save(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error)
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*domain.Portfolio, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error)
	List(ctx context.Context) ([]domain.Portfolio, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type portfolioRepositoryHandler struct {
	Db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) PortfolioRepository {
	return portfolioRepositoryHandler{Db: db}
}

type portfolioWithPositions struct {
	model.Portfolio
	Positions []model.PortfolioPosition
}

func (h portfolioRepositoryHandler) Save(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	tx, err := h.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	saved, err := writePortfolio(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit portfolio %s: %w", p.PortfolioID, err)
	}

	return saved, nil
}

// Update locks the portfolio row for the length of the transaction, so
// concurrent updates of one portfolio queue behind each other.
func (h portfolioRepositoryHandler) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*domain.Portfolio, error) {
	tx, err := h.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	lockQuery := table.Portfolio.
		SELECT(table.Portfolio.PortfolioID).
		WHERE(table.Portfolio.PortfolioID.EQ(postgres.UUID(id))).
		FOR(postgres.UPDATE())
	locked := model.Portfolio{}
	err = lockQuery.QueryContext(ctx, tx, &locked)
	if errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock portfolio %s: %w", id, err)
	}

	current, err := getPortfolio(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	updated, err := fn(*current)
	if err != nil {
		return nil, err
	}
	updated.PortfolioID = id

	saved, err := writePortfolio(ctx, tx, updated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit portfolio %s: %w", id, err)
	}

	return saved, nil
}

func writePortfolio(ctx context.Context, tx *sql.Tx, p domain.Portfolio) (*domain.Portfolio, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	portfolioModel, positionModels := portfolioToModels(p)

	upsert := table.Portfolio.
		INSERT(table.Portfolio.AllColumns).
		MODEL(portfolioModel).
		ON_CONFLICT(table.Portfolio.PortfolioID).
		DO_UPDATE(postgres.SET(
			table.Portfolio.Name.SET(table.Portfolio.EXCLUDED.Name),
			table.Portfolio.Strategy.SET(table.Portfolio.EXCLUDED.Strategy),
			table.Portfolio.UpdatedAt.SET(table.Portfolio.EXCLUDED.UpdatedAt),
		))
	if _, err := upsert.ExecContext(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to upsert portfolio %s: %w", p.PortfolioID, err)
	}

	// positions are replaced wholesale so removals and reorders are kept
	deleteQuery := table.PortfolioPosition.
		DELETE().
		WHERE(table.PortfolioPosition.PortfolioID.EQ(postgres.UUID(p.PortfolioID)))
	if _, err := deleteQuery.ExecContext(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to clear positions for portfolio %s: %w", p.PortfolioID, err)
	}

	if len(positionModels) > 0 {
		insertQuery := table.PortfolioPosition.
			INSERT(table.PortfolioPosition.AllColumns).
			MODELS(positionModels)
		if _, err := insertQuery.ExecContext(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to insert positions for portfolio %s: %w", p.PortfolioID, err)
		}
	}

	return &p, nil
}

func selectPortfolios() postgres.SelectStatement {
	return postgres.SELECT(
		table.Portfolio.AllColumns,
		table.PortfolioPosition.AllColumns,
	).FROM(
		table.Portfolio.LEFT_JOIN(
			table.PortfolioPosition,
			table.PortfolioPosition.PortfolioID.EQ(table.Portfolio.PortfolioID),
		),
	)
}

func (h portfolioRepositoryHandler) Get(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	return getPortfolio(ctx, h.Db, id)
}

func getPortfolio(ctx context.Context, db qrm.DB, id uuid.UUID) (*domain.Portfolio, error) {
	query := selectPortfolios().
		WHERE(table.Portfolio.PortfolioID.EQ(postgres.UUID(id))).
		ORDER_BY(table.PortfolioPosition.SortIndex.ASC())

	result := portfolioWithPositions{}
	err := query.QueryContext(ctx, db, &result)
	if errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}

	out := portfolioFromModels(result)
	return &out, nil
}

func (h portfolioRepositoryHandler) List(ctx context.Context) ([]domain.Portfolio, error) {
	query := selectPortfolios().
		ORDER_BY(
			table.Portfolio.CreatedAt.ASC(),
			table.PortfolioPosition.SortIndex.ASC(),
		)

	result := []portfolioWithPositions{}
	err := query.QueryContext(ctx, h.Db, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	out := []domain.Portfolio{}
	for _, r := range result {
		out = append(out, portfolioFromModels(r))
	}
	return out, nil
}

func (h portfolioRepositoryHandler) Delete(ctx context.Context, id uuid.UUID) error {
	query := table.Portfolio.
		DELETE().
		WHERE(table.Portfolio.PortfolioID.EQ(postgres.UUID(id)))

	res, err := query.ExecContext(ctx, h.Db)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}

	return nil
}

func portfolioToModels(p domain.Portfolio) (model.Portfolio, []model.PortfolioPosition) {
	portfolioModel := model.Portfolio{
		PortfolioID: p.PortfolioID,
		Name:        p.Name,
		Strategy:    model.RebalanceStrategy(p.Strategy),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	positionModels := []model.PortfolioPosition{}
	for i, position := range p.Positions {
		positionModels = append(positionModels, model.PortfolioPosition{
			PortfolioPositionID: position.ID,
			PortfolioID:         p.PortfolioID,
			Name:                position.Name,
			CurrentValue:        position.CurrentValue,
			TargetFraction:      position.TargetFraction,
			SortIndex:           int32(i),
			CreatedAt:           p.UpdatedAt,
		})
	}

	return portfolioModel, positionModels
}

func portfolioFromModels(m portfolioWithPositions) domain.Portfolio {
	positions := domain.PositionSet{}
	for _, p := range m.Positions {
		positions = append(positions, domain.Position{
			ID:             p.PortfolioPositionID,
			Name:           p.Name,
			CurrentValue:   p.CurrentValue,
			TargetFraction: p.TargetFraction,
		})
	}

	return domain.Portfolio{
		PortfolioID: m.PortfolioID,
		Name:        m.Name,
		Strategy:    domain.Strategy(m.Strategy),
		Positions:   positions,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
