package periods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/db"
)

const periodColumns = `id, name, type, year, period, start_date, end_date, is_active, is_closed, closed_at, created_at, updated_at`

type pgRepository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{db: pool}
}

func (r *pgRepository) Insert(ctx context.Context, period FiscalPeriod) error {
	return r.InsertMany(ctx, []FiscalPeriod{period})
}

func (r *pgRepository) InsertMany(ctx context.Context, periods []FiscalPeriod) error {
	batch := &pgx.Batch{}
	for _, p := range periods {
		batch.Queue(`INSERT INTO fiscal_periods (`+periodColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			p.ID, p.Name, p.Type, p.Year, p.Period, p.StartDate, p.EndDate, p.IsActive, p.IsClosed, p.ClosedAt, p.CreatedAt, p.UpdatedAt)
	}
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return mapWriteErr(tx.SendBatch(ctx, batch).Close())
	})
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (FiscalPeriod, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1`, id))
}

func (r *pgRepository) FindByKey(ctx context.Context, key Key) (FiscalPeriod, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE type=$1 AND year=$2 AND period=$3`, key.Type, key.Year, key.Period))
}

func (r *pgRepository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (FiscalPeriod, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE is_active AND NOT is_closed AND $1::date BETWEEN start_date AND end_date
ORDER BY end_date - start_date ASC LIMIT 1`, date))
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]FiscalPeriod, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE ($1 = 0 OR year = $1) AND ($2 = '' OR type = $2)
ORDER BY type, year, period`, filter.Year, string(filter.Type))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FiscalPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, period FiscalPeriod) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fiscal_periods SET name=$2, is_active=$3, is_closed=$4, closed_at=$5, updated_at=$6
WHERE id=$1`, period.ID, period.Name, period.IsActive, period.IsClosed, period.ClosedAt, period.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

func scanPeriod(row pgx.Row) (FiscalPeriod, error) {
	var p FiscalPeriod
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Year, &p.Period, &p.StartDate, &p.EndDate, &p.IsActive, &p.IsClosed, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalPeriod{}, shared.ErrPeriodNotFound
		}
		return FiscalPeriod{}, err
	}
	return p, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicatePeriod
	}
	return err
}
