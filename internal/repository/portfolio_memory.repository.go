package repository

import (
	"context"
	"fmt"
	"rebalancer/internal/domain"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryPortfolioRepository keeps portfolios in process. Snapshots are
// copied on the way in and out so callers never share position slices.
type memoryPortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[uuid.UUID]domain.Portfolio
}

func NewMemoryPortfolioRepository() PortfolioRepository {
	return &memoryPortfolioRepository{
		portfolios: map[uuid.UUID]domain.Portfolio{},
	}
}

func (r *memoryPortfolioRepository) Save(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.portfolios[p.PortfolioID] = p.DeepCopy()
	out := p.DeepCopy()
	return &out, nil
}

func (r *memoryPortfolioRepository) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*domain.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}

	updated, err := fn(current.DeepCopy())
	if err != nil {
		return nil, err
	}
	updated.PortfolioID = id
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.portfolios[id] = updated.DeepCopy()
	out := updated.DeepCopy()
	return &out, nil
}

func (r *memoryPortfolioRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	out := p.DeepCopy()
	return &out, nil
}

func (r *memoryPortfolioRepository) List(ctx context.Context) ([]domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Portfolio, 0, len(r.portfolios))
	for _, p := range r.portfolios {
		out = append(out, p.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PortfolioID.String() < out[j].PortfolioID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryPortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.portfolios[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	delete(r.portfolios, id)
	return nil
}
