package journals

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

// AccountBalance aggregates posted activity for one account.
type AccountBalance struct {
	Code   string          `json:"code"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Net is debit minus credit.
func (a AccountBalance) Net() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// TrialBalance summarises the posted entries of a period.
type TrialBalance struct {
	PeriodID    uuid.UUID        `json:"periodId"`
	Entries     int              `json:"entries"`
	TotalDebit  decimal.Decimal  `json:"totalDebit"`
	TotalCredit decimal.Decimal  `json:"totalCredit"`
	Accounts    []AccountBalance `json:"accounts"`
	// Unbalanced lists entry numbers whose lines do not balance or whose
	// stored totals disagree with their lines.
	Unbalanced []string `json:"unbalanced"`
}

// Balanced reports whether the period and every entry in it balance.
func (tb TrialBalance) Balanced() bool {
	return len(tb.Unbalanced) == 0 && shared.Balanced(tb.TotalDebit, tb.TotalCredit)
}

// TrialBalanceCheck sums the posted entries of a period per account.
func (s *Service) TrialBalanceCheck(ctx context.Context, periodID uuid.UUID) (TrialBalance, error) {
	entries, _, err := s.repo.List(ctx, ListFilter{Status: StatusPosted, FiscalPeriodID: &periodID})
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(periodID, entries), nil
}

// BuildTrialBalance aggregates entries into account balances ordered by code.
func BuildTrialBalance(periodID uuid.UUID, entries []JournalEntry) TrialBalance {
	tb := TrialBalance{PeriodID: periodID, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero, Unbalanced: []string{}}
	byCode := make(map[string]*AccountBalance)
	for _, e := range entries {
		tb.Entries++
		debit, credit := decimal.Zero, decimal.Zero
		for _, line := range e.Lines {
			acc, ok := byCode[line.AccountCode]
			if !ok {
				acc = &AccountBalance{Code: line.AccountCode, Debit: decimal.Zero, Credit: decimal.Zero}
				byCode[line.AccountCode] = acc
			}
			acc.Debit = acc.Debit.Add(line.Debit)
			acc.Credit = acc.Credit.Add(line.Credit)
			debit = debit.Add(line.Debit)
			credit = credit.Add(line.Credit)
		}
		if !shared.Balanced(debit, credit) || !debit.Equal(e.TotalDebit) || !credit.Equal(e.TotalCredit) {
			tb.Unbalanced = append(tb.Unbalanced, e.Number)
		}
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	tb.Accounts = make([]AccountBalance, 0, len(byCode))
	for _, acc := range byCode {
		tb.Accounts = append(tb.Accounts, *acc)
	}
	sort.Slice(tb.Accounts, func(i, j int) bool { return tb.Accounts[i].Code < tb.Accounts[j].Code })
	return tb
}
