package periods

import (
	"context"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

// MemoryRepository keeps periods ordered by natural key.
type MemoryRepository struct {
	mu    sync.RWMutex
	byKey *treemap.Map
	keys  map[uuid.UUID]string
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byKey: treemap.NewWithStringComparator(),
		keys:  make(map[uuid.UUID]string),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Insert(ctx context.Context, period FiscalPeriod) error {
	return r.InsertMany(ctx, []FiscalPeriod{period})
}

func (r *MemoryRepository) InsertMany(_ context.Context, periods []FiscalPeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		k := p.Key().String()
		if _, ok := r.byKey.Get(k); ok {
			return shared.ErrDuplicatePeriod
		}
		if _, ok := seen[k]; ok {
			return shared.ErrDuplicatePeriod
		}
		seen[k] = struct{}{}
	}
	for _, p := range periods {
		k := p.Key().String()
		r.byKey.Put(k, p)
		r.keys[p.ID] = k
	}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (FiscalPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return FiscalPeriod{}, shared.ErrPeriodNotFound
	}
	v, _ := r.byKey.Get(k)
	return v.(FiscalPeriod), nil
}

func (r *MemoryRepository) FindByKey(_ context.Context, key Key) (FiscalPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byKey.Get(key.String())
	if !ok {
		return FiscalPeriod{}, shared.ErrPeriodNotFound
	}
	return v.(FiscalPeriod), nil
}

func (r *MemoryRepository) FindOpenPeriodByDate(_ context.Context, date time.Time) (FiscalPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best  FiscalPeriod
		found bool
	)
	for _, v := range r.byKey.Values() {
		p := v.(FiscalPeriod)
		if !p.IsOpen() || !p.Contains(date) {
			continue
		}
		if !found || p.EndDate.Sub(p.StartDate) < best.EndDate.Sub(best.StartDate) {
			best, found = p, true
		}
	}
	if !found {
		return FiscalPeriod{}, shared.ErrPeriodNotFound
	}
	return best, nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]FiscalPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FiscalPeriod, 0, r.byKey.Size())
	for _, v := range r.byKey.Values() {
		p := v.(FiscalPeriod)
		if filter.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, period FiscalPeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[period.ID]
	if !ok {
		return shared.ErrPeriodNotFound
	}
	if k != period.Key().String() {
		return shared.Invalid("period", "natural key cannot change")
	}
	r.byKey.Put(k, period)
	return nil
}
