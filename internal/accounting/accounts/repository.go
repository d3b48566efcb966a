package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

const accountColumns = `code, name, type, category, is_active, created_at, updated_at`

// Repository reads the chart of accounts. The chart is maintained outside
// the ledger; entries only look codes up.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
}

type pgRepository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed chart.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{db: pool}
}

func (r *pgRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	return pgx.CollectRows(rows, scanAccount)
}

func (r *pgRepository) GetByCode(ctx context.Context, code string) (Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts WHERE code=$1`, code)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: get %s: %w", code, err)
	}
	acc, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, code)
	}
	return acc, err
}

func scanAccount(row pgx.CollectableRow) (Account, error) {
	var a Account
	err := row.Scan(&a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
