package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/db"
	internalShared "github.com/odyssey-erp/roofing-ledger/internal/shared"
)

const entryColumns = `id, number, entry_date, description, reference, memo, status, source_module, source_id, template,
total_debit, total_credit, is_reversing, original_entry_id, reversed_by_entry_id, is_recurring, recurring_frequency,
next_recurring_date, fiscal_period_id, created_by_id, approved_by_user_id, approved_at, posted_by_user_id, posted_at,
rejection_reason, created_at, updated_at`

const lineColumns = `id, je_id, line_number, account_code, description, debit, credit, contact_id, project_id`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return getEntry(ctx, r.db, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
}

func (r *repository) FindBySource(ctx context.Context, module SourceModule, sourceID uuid.UUID) (JournalEntry, error) {
	return getEntry(ctx, r.db, `SELECT `+entryColumns+` FROM journal_entries WHERE source_module=$1 AND source_id=$2`, module, sourceID)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.FiscalPeriodID != nil {
		add("fiscal_period_id = $%d", *filter.FiscalPeriodID)
	}
	if filter.SourceModule != "" {
		add("source_module = $%d", filter.SourceModule)
	}
	if filter.StartDate != nil {
		add("entry_date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("entry_date <= $%d", *filter.EndDate)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + entryColumns + ` FROM journal_entries` + where + ` ORDER BY number`
	if filter.Limit > 0 {
		page := internalShared.NewPagination(filter.Page, filter.Limit, total)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", page.PerPage, page.Offset())
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := attachLines(ctx, r.db, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, year int) (string, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (year, last_value) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%d-%06d", year, seq), nil
}

func (r *txRepository) Insert(ctx context.Context, e JournalEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (`+entryColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		e.ID, e.Number, e.EntryDate, e.Description, e.Reference, e.Memo, e.Status, e.SourceModule, e.SourceID, e.Template,
		e.TotalDebit, e.TotalCredit, e.IsReversing, e.OriginalEntryID, e.ReversedByEntryID, e.IsRecurring, e.RecurringFrequency,
		e.NextRecurringDate, e.FiscalPeriodID, e.CreatedByID, e.ApprovedByUserID, e.ApprovedAt, e.PostedByUserID, e.PostedAt,
		e.RejectionReason, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_source" {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return r.insertLines(ctx, e.ID, e.Lines)
}

func (r *txRepository) insertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (`+lineColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, line.ID, entryID, line.LineNumber, line.AccountCode, line.Description,
			line.Debit, line.Credit, line.ContactID, line.ProjectID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return getEntry(ctx, r.tx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) Update(ctx context.Context, e JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date=$2, description=$3, reference=$4, memo=$5, status=$6,
total_debit=$7, total_credit=$8, reversed_by_entry_id=$9, fiscal_period_id=$10, approved_by_user_id=$11, approved_at=$12,
posted_by_user_id=$13, posted_at=$14, rejection_reason=$15, next_recurring_date=$16, updated_at=$17
WHERE id=$1`, e.ID, e.EntryDate, e.Description, e.Reference, e.Memo, e.Status, e.TotalDebit, e.TotalCredit,
		e.ReversedByEntryID, e.FiscalPeriodID, e.ApprovedByUserID, e.ApprovedAt, e.PostedByUserID, e.PostedAt,
		e.RejectionReason, e.NextRecurringDate, e.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE je_id=$1`, e.ID); err != nil {
		return err
	}
	return r.insertLines(ctx, e.ID, e.Lines)
}

func (r *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func getEntry(ctx context.Context, q querier, sql string, args ...any) (JournalEntry, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return JournalEntry{}, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return JournalEntry{}, err
	}
	if len(entries) == 0 {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	if err := attachLines(ctx, q, entries[:1]); err != nil {
		return JournalEntry{}, err
	}
	return entries[0], nil
}

func collectEntries(rows pgx.Rows) ([]JournalEntry, error) {
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.EntryDate, &e.Description, &e.Reference, &e.Memo, &e.Status,
			&e.SourceModule, &e.SourceID, &e.Template, &e.TotalDebit, &e.TotalCredit, &e.IsReversing, &e.OriginalEntryID,
			&e.ReversedByEntryID, &e.IsRecurring, &e.RecurringFrequency, &e.NextRecurringDate, &e.FiscalPeriodID,
			&e.CreatedByID, &e.ApprovedByUserID, &e.ApprovedAt, &e.PostedByUserID, &e.PostedAt, &e.RejectionReason,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func attachLines(ctx context.Context, q querier, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entries))
	index := make(map[uuid.UUID]int, len(entries))
	for i, e := range entries {
		ids = append(ids, e.ID.String())
		index[e.ID] = i
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE je_id = ANY($1::uuid[]) ORDER BY je_id, line_number`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line    JournalLine
			entryID uuid.UUID
		)
		if err := rows.Scan(&line.ID, &entryID, &line.LineNumber, &line.AccountCode, &line.Description,
			&line.Debit, &line.Credit, &line.ContactID, &line.ProjectID); err != nil {
			return err
		}
		if i, ok := index[entryID]; ok {
			entries[i].Lines = append(entries[i].Lines, line)
		}
	}
	return rows.Err()
}
