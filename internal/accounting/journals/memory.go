package journals

import (
	"context"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/roofing-ledger/internal/shared"
)

// MemoryRepository keeps entries ordered by number. Transactions run under an
// exclusive lock and are applied only when fn succeeds.
type MemoryRepository struct {
	mu       sync.RWMutex
	byNumber *treemap.Map
	numbers  map[uuid.UUID]string
	sources  map[string]uuid.UUID
	seq      map[int]int
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byNumber: treemap.NewWithStringComparator(),
		numbers:  make(map[uuid.UUID]string),
		sources:  make(map[string]uuid.UUID),
		seq:      make(map[int]int),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func sourceKey(module SourceModule, id uuid.UUID) string {
	return string(module) + ":" + id.String()
}

func (r *MemoryRepository) get(id uuid.UUID) (JournalEntry, bool) {
	number, ok := r.numbers[id]
	if !ok {
		return JournalEntry{}, false
	}
	v, _ := r.byNumber.Get(number)
	return v.(JournalEntry).Clone(), true
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.get(id)
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return entry, nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]JournalEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []JournalEntry
	for _, v := range r.byNumber.Values() {
		e := v.(JournalEntry)
		if filter.matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	total := len(matched)
	if filter.Limit <= 0 {
		return matched, total, nil
	}
	page := internalShared.NewPagination(filter.Page, filter.Limit, total)
	start, end := page.Window(total)
	return matched[start:end], total, nil
}

func (r *MemoryRepository) FindBySource(_ context.Context, module SourceModule, sourceID uuid.UUID) (JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sources[sourceKey(module, sourceID)]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	entry, _ := r.get(id)
	return entry, nil
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{
		repo:    r,
		upserts: make(map[uuid.UUID]JournalEntry),
		deletes: make(map[uuid.UUID]struct{}),
		seq:     make(map[int]int),
		sources: make(map[string]uuid.UUID),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memoryTx struct {
	repo    *MemoryRepository
	upserts map[uuid.UUID]JournalEntry
	deletes map[uuid.UUID]struct{}
	seq     map[int]int
	sources map[string]uuid.UUID
}

func (t *memoryTx) NextNumber(_ context.Context, year int) (string, error) {
	next, ok := t.seq[year]
	if !ok {
		next = t.repo.seq[year]
	}
	next++
	t.seq[year] = next
	return fmt.Sprintf("JE-%d-%06d", year, next), nil
}

func (t *memoryTx) lookup(id uuid.UUID) (JournalEntry, bool) {
	if _, gone := t.deletes[id]; gone {
		return JournalEntry{}, false
	}
	if e, ok := t.upserts[id]; ok {
		return e.Clone(), true
	}
	return t.repo.get(id)
}

func (t *memoryTx) Insert(_ context.Context, entry JournalEntry) error {
	if _, exists := t.lookup(entry.ID); exists {
		return fmt.Errorf("journal entry %s already exists", entry.ID)
	}
	if entry.SourceID != nil {
		key := sourceKey(entry.SourceModule, *entry.SourceID)
		if _, ok := t.repo.sources[key]; ok {
			return shared.ErrSourceAlreadyLinked
		}
		if _, ok := t.sources[key]; ok {
			return shared.ErrSourceAlreadyLinked
		}
		t.sources[key] = entry.ID
	}
	t.upserts[entry.ID] = entry.Clone()
	return nil
}

func (t *memoryTx) GetForUpdate(_ context.Context, id uuid.UUID) (JournalEntry, error) {
	entry, ok := t.lookup(id)
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return entry, nil
}

func (t *memoryTx) Update(_ context.Context, entry JournalEntry) error {
	if _, ok := t.lookup(entry.ID); !ok {
		return shared.ErrJournalNotFound
	}
	t.upserts[entry.ID] = entry.Clone()
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := t.lookup(id); !ok {
		return shared.ErrJournalNotFound
	}
	delete(t.upserts, id)
	t.deletes[id] = struct{}{}
	return nil
}

func (t *memoryTx) commit() {
	r := t.repo
	for id := range t.deletes {
		if number, ok := r.numbers[id]; ok {
			if v, found := r.byNumber.Get(number); found {
				if e := v.(JournalEntry); e.SourceID != nil {
					delete(r.sources, sourceKey(e.SourceModule, *e.SourceID))
				}
			}
			r.byNumber.Remove(number)
			delete(r.numbers, id)
		}
	}
	for id, e := range t.upserts {
		r.byNumber.Put(e.Number, e)
		r.numbers[id] = e.Number
	}
	for key, id := range t.sources {
		r.sources[key] = id
	}
	for year, n := range t.seq {
		r.seq[year] = n
	}
}
