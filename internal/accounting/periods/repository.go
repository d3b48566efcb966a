package periods

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists fiscal periods. Implementations return
// shared.ErrPeriodNotFound on lookup misses and shared.ErrDuplicatePeriod when
// a natural key already exists.
type Repository interface {
	Insert(ctx context.Context, period FiscalPeriod) error
	// InsertMany stores all periods or none.
	InsertMany(ctx context.Context, periods []FiscalPeriod) error
	Get(ctx context.Context, id uuid.UUID) (FiscalPeriod, error)
	FindByKey(ctx context.Context, key Key) (FiscalPeriod, error)
	// FindOpenPeriodByDate returns the narrowest active, unclosed period
	// covering date.
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (FiscalPeriod, error)
	List(ctx context.Context, filter ListFilter) ([]FiscalPeriod, error)
	Update(ctx context.Context, period FiscalPeriod) error
}
