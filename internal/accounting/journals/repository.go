package journals

import (
	"context"

	"github.com/google/uuid"
)

// Repository encapsulates storage for journal entries and their lines.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	// List returns the matching page ordered by number plus the total match
	// count.
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error)
	FindBySource(ctx context.Context, module SourceModule, sourceID uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	// NextNumber allocates the next JE-{year}-{seq} number.
	NextNumber(ctx context.Context, year int) (string, error)
	// Insert stores the entry and its lines. A duplicate (sourceModule,
	// sourceId) pair returns shared.ErrSourceAlreadyLinked.
	Insert(ctx context.Context, entry JournalEntry) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	// Update rewrites the header and replaces all lines.
	Update(ctx context.Context, entry JournalEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}
