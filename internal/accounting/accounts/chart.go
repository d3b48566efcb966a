package accounts

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

// RoofingChart is the seeded chart used by the in-memory driver. It covers
// every account code referenced by the entry templates.
func RoofingChart() []Account {
	return []Account{
		{Code: "1010", Name: "Checking Account - Operating", Type: AccountTypeAsset, Category: "Cash"},
		{Code: "1020", Name: "Checking Account - Payroll", Type: AccountTypeAsset, Category: "Cash"},
		{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Category: "Receivables"},
		{Code: "1200", Name: "Job Materials Inventory", Type: AccountTypeAsset, Category: "Inventory"},
		{Code: "1300", Name: "Roofing Materials Inventory", Type: AccountTypeAsset, Category: "Inventory"},
		{Code: "1500", Name: "Equipment", Type: AccountTypeAsset, Category: "Fixed Assets"},
		{Code: "1550", Name: "Accumulated Depreciation", Type: AccountTypeAsset, Category: "Fixed Assets"},
		{Code: "1600", Name: "Vehicles", Type: AccountTypeAsset, Category: "Fixed Assets"},
		{Code: "2000", Name: "Trade Payables", Type: AccountTypeLiability, Category: "Current Liabilities"},
		{Code: "2100", Name: "Accounts Payable", Type: AccountTypeLiability, Category: "Current Liabilities"},
		{Code: "2200", Name: "Payroll Taxes Payable", Type: AccountTypeLiability, Category: "Current Liabilities"},
		{Code: "2300", Name: "Equipment Loans", Type: AccountTypeLiability, Category: "Long-term Liabilities"},
		{Code: "3000", Name: "Owner's Equity", Type: AccountTypeEquity, Category: "Equity"},
		{Code: "4000", Name: "Roofing Services Revenue", Type: AccountTypeRevenue, Category: "Operating Revenue"},
		{Code: "4010", Name: "Roofing Revenue - Residential", Type: AccountTypeRevenue, Category: "Operating Revenue"},
		{Code: "4100", Name: "Gutter Services Revenue", Type: AccountTypeRevenue, Category: "Operating Revenue"},
		{Code: "5000", Name: "Cost of Goods Sold", Type: AccountTypeExpense, Category: "Cost of Sales"},
		{Code: "5100", Name: "Labor Wages", Type: AccountTypeExpense, Category: "Cost of Sales"},
		{Code: "5700", Name: "Vehicle Fuel", Type: AccountTypeExpense, Category: "Vehicle"},
		{Code: "6000", Name: "General Expenses", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6100", Name: "Payroll Taxes", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6200", Name: "Insurance Expense", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6250", Name: "Fuel Expense", Type: AccountTypeExpense, Category: "Vehicle"},
		{Code: "6300", Name: "Insurance", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6350", Name: "Equipment Rental", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6400", Name: "Utilities", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "6500", Name: "Depreciation Expense", Type: AccountTypeExpense, Category: "Operating Expenses"},
		{Code: "7300", Name: "Interest Expense", Type: AccountTypeExpense, Category: "Other Expenses"},
	}
}

// MemoryRepository is a code-ordered in-process chart.
type MemoryRepository struct {
	mu     sync.RWMutex
	byCode *treemap.Map
}

// NewMemoryRepository seeds a repository with accounts. Seeded accounts are
// marked active.
func NewMemoryRepository(seed ...Account) *MemoryRepository {
	r := &MemoryRepository{byCode: treemap.NewWithStringComparator()}
	for _, a := range seed {
		a.IsActive = true
		r.byCode.Put(a.Code, a)
	}
	return r
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) List(context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, 0, r.byCode.Size())
	for _, v := range r.byCode.Values() {
		out = append(out, v.(Account))
	}
	return out, nil
}

func (r *MemoryRepository) GetByCode(_ context.Context, code string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byCode.Get(code)
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return v.(Account), nil
}

// SetActive toggles an account's active flag.
func (r *MemoryRepository) SetActive(code string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byCode.Get(code)
	if !ok {
		return shared.ErrAccountNotFound
	}
	a := v.(Account)
	a.IsActive = active
	r.byCode.Put(code, a)
	return nil
}
