package journals

import "github.com/shopspring/decimal"

// LegacyLine mirrors JournalLine with the snake_case aliases older clients
// read.
type LegacyLine struct {
	JournalLine
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	AccountID    string          `json:"accountId"`
}

// LegacyEntry adds the pluralised total aliases.
type LegacyEntry struct {
	JournalEntry
	EntryNumber  string          `json:"entryNumber"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	IsPostedFlag bool            `json:"isPosted"`
	Lines        []LegacyLine    `json:"lines"`
}

// Legacy converts the canonical entry for output to legacy clients.
func Legacy(e JournalEntry) LegacyEntry {
	lines := make([]LegacyLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, LegacyLine{JournalLine: l, DebitAmount: l.Debit, CreditAmount: l.Credit, AccountID: l.AccountCode})
	}
	return LegacyEntry{
		JournalEntry: e,
		EntryNumber:  e.Number,
		TotalDebits:  e.TotalDebit,
		TotalCredits: e.TotalCredit,
		IsPostedFlag: e.IsPosted(),
		Lines:        lines,
	}
}

// LegacyEntries converts a slice.
func LegacyEntries(entries []JournalEntry) []LegacyEntry {
	out := make([]LegacyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Legacy(e))
	}
	return out
}
