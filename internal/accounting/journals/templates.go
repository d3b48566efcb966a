package journals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

// Family groups templates by the surface that offers them.
type Family string

const (
	FamilyQuick    Family = "quick"
	FamilyWizard   Family = "wizard"
	FamilyAdvanced Family = "advanced"
)

// ResolveInput is what a resolver may draw on: the principal amount and the
// caller's named sub-amounts.
type ResolveInput struct {
	Amount decimal.Decimal
	Fields map[string]decimal.Decimal
}

// Resolver computes the amount of a single template line.
type Resolver interface {
	Resolve(line TemplateLine, in ResolveInput) (decimal.Decimal, error)
}

// PromptedResolver is implemented by resolvers that need a named field.
type PromptedResolver interface {
	Resolver
	Field() string
}

// Amount passes the principal through verbatim.
type Amount struct{}

func (Amount) Resolve(_ TemplateLine, in ResolveInput) (decimal.Decimal, error) {
	return in.Amount, nil
}

// Percentage takes Percent of the principal, rounded to cents.
type Percentage struct {
	Percent decimal.Decimal
}

// Pct builds a Percentage resolver from a literal such as "7.65".
func Pct(p string) Percentage {
	return Percentage{Percent: decimal.RequireFromString(p)}
}

func (p Percentage) Resolve(_ TemplateLine, in ResolveInput) (decimal.Decimal, error) {
	return in.Amount.Mul(p.Percent).Div(decimal.NewFromInt(100)).Round(2), nil
}

// Prompt reads a named caller-supplied sub-amount.
type Prompt struct {
	Name  string
	Label string
}

func (p Prompt) Field() string { return p.Name }

func (p Prompt) Resolve(line TemplateLine, in ResolveInput) (decimal.Decimal, error) {
	v, ok := in.Fields[p.Name]
	if !ok {
		return decimal.Zero, shared.Invalid(p.Name, "%s is required", p.Label)
	}
	if v.IsNegative() {
		return decimal.Zero, shared.Invalid(p.Name, "%s cannot be negative", p.Label)
	}
	return v, nil
}

// Remainder is the principal minus a named sub-amount, e.g. loan principal
// once the interest portion is known.
type Remainder struct {
	Of    string
	Label string
}

func (r Remainder) Field() string { return r.Of }

func (r Remainder) Resolve(line TemplateLine, in ResolveInput) (decimal.Decimal, error) {
	part, ok := in.Fields[r.Of]
	if !ok {
		return decimal.Zero, shared.Invalid(r.Of, "%s is required", r.Label)
	}
	rest := in.Amount.Sub(part)
	if rest.IsNegative() {
		return decimal.Zero, shared.Invalid(r.Of, "%s cannot exceed the amount", r.Label)
	}
	return rest, nil
}

// TemplateLine is one configured line of a template.
type TemplateLine struct {
	AccountCode string        `json:"accountCode"`
	Description string        `json:"description"`
	Side        accounts.Side `json:"side"`
	Resolver    Resolver      `json:"-"`
}

// TransactionTemplate generates a balanced entry from an amount.
type TransactionTemplate struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Family       Family         `json:"family"`
	SourceModule SourceModule   `json:"sourceModule"`
	Lines        []TemplateLine `json:"lines"`
}

// Prompts lists the named fields the template needs besides the amount.
func (t TransactionTemplate) Prompts() []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range t.Lines {
		if p, ok := line.Resolver.(PromptedResolver); ok && !seen[p.Field()] {
			seen[p.Field()] = true
			out = append(out, p.Field())
		}
	}
	return out
}

// Build resolves every line. Zero-amount lines are dropped; the caller still
// runs ValidateLines on the result.
func (t TransactionTemplate) Build(in ResolveInput, describe func(TemplateLine) string) ([]LineInput, error) {
	out := make([]LineInput, 0, len(t.Lines))
	for _, tl := range t.Lines {
		amt, err := tl.Resolver.Resolve(tl, in)
		if err != nil {
			return nil, err
		}
		if amt.IsZero() {
			continue
		}
		line := LineInput{AccountCode: tl.AccountCode, Description: describe(tl)}
		if tl.Side == accounts.SideDebit {
			line.Debit = amt
		} else {
			line.Credit = amt
		}
		out = append(out, line)
	}
	return out, nil
}

// Catalogue is a keyed set of templates.
type Catalogue struct {
	byKey map[string]TransactionTemplate
}

// NewCatalogue registers the given templates; later keys replace earlier.
func NewCatalogue(templates ...TransactionTemplate) *Catalogue {
	c := &Catalogue{byKey: make(map[string]TransactionTemplate, len(templates))}
	for _, t := range templates {
		c.Register(t)
	}
	return c
}

// Register adds or replaces a template.
func (c *Catalogue) Register(t TransactionTemplate) {
	c.byKey[t.Key] = t
}

// Lookup returns the template for key and whether it exists.
func (c *Catalogue) Lookup(key string) (TransactionTemplate, bool) {
	t, ok := c.byKey[key]
	return t, ok
}

// List returns templates of the family (all when empty), sorted by key.
func (c *Catalogue) List(family Family) []TransactionTemplate {
	out := make([]TransactionTemplate, 0, len(c.byKey))
	for _, t := range c.byKey {
		if family == "" || t.Family == family {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func debit(code, desc string, r Resolver) TemplateLine {
	return TemplateLine{AccountCode: code, Description: desc, Side: accounts.SideDebit, Resolver: r}
}

func credit(code, desc string, r Resolver) TemplateLine {
	return TemplateLine{AccountCode: code, Description: desc, Side: accounts.SideCredit, Resolver: r}
}

func simple(key, name, desc string, source SourceModule, debitCode, creditCode string) TransactionTemplate {
	return TransactionTemplate{
		Key:          key,
		Name:         name,
		Description:  desc,
		Category:     "expense",
		Family:       FamilyQuick,
		SourceModule: source,
		Lines: []TemplateLine{
			debit(debitCode, name, Amount{}),
			credit(creditCode, name, Amount{}),
		},
	}
}

// DefaultCatalogue returns the roofing quick, wizard and advanced templates.
func DefaultCatalogue() *Catalogue {
	return NewCatalogue(append(append(wizardTemplates(), quickTemplates()...), advancedTemplates()...)...)
}

func wizardTemplates() []TransactionTemplate {
	return []TransactionTemplate{
		{
			Key: "customer-payment", Name: "Customer Payment Received",
			Description: "Record payment received from customer for invoice",
			Category:    "asset", Family: FamilyWizard, SourceModule: SourceAccountsReceivable,
			Lines: []TemplateLine{
				debit("1010", "Cash received from customer", Amount{}),
				credit("1100", "Reduce customer receivable", Amount{}),
			},
		},
		{
			Key: "cash-sale", Name: "Cash Sale",
			Description: "Record immediate cash payment for completed work",
			Category:    "revenue", Family: FamilyWizard, SourceModule: SourceAccountsReceivable,
			Lines: []TemplateLine{
				debit("1010", "Cash received for services", Amount{}),
				credit("4010", "Revenue from roofing work", Amount{}),
			},
		},
		{
			Key: "material-purchase", Name: "Material Purchase",
			Description: "Record purchase of roofing materials from supplier",
			Category:    "expense", Family: FamilyWizard, SourceModule: SourceInventory,
			Lines: []TemplateLine{
				debit("1200", "Roofing materials purchased", Amount{}),
				credit("2100", "Amount owed to supplier", Amount{}),
			},
		},
		{
			Key: "fuel-expense", Name: "Vehicle Fuel",
			Description: "Record fuel expense for company vehicles",
			Category:    "expense", Family: FamilyWizard, SourceModule: SourceManual,
			Lines: []TemplateLine{
				debit("5700", "Vehicle fuel expense", Amount{}),
				credit("1010", "Cash paid for fuel", Amount{}),
			},
		},
		{
			Key: "loan-payment", Name: "Equipment Loan Payment",
			Description: "Record monthly equipment loan payment",
			Category:    "liability", Family: FamilyWizard, SourceModule: SourceAccountsPayable,
			Lines: []TemplateLine{
				debit("7300", "Interest expense portion", Prompt{Name: "interestAmount", Label: "Interest portion of payment"}),
				debit("2300", "Principal payment", Remainder{Of: "interestAmount", Label: "Interest portion of payment"}),
				credit("1010", "Cash paid to lender", Amount{}),
			},
		},
		{
			Key: "utility-bill", Name: "Utility Bill Payment",
			Description: "Record payment of utility bills",
			Category:    "expense", Family: FamilyWizard, SourceModule: SourceAccountsPayable,
			Lines: []TemplateLine{
				debit("6400", "Utilities expense", Amount{}),
				credit("1010", "Cash paid for utilities", Amount{}),
			},
		},
		{
			Key: "payroll", Name: "Employee Payroll",
			Description: "Record employee payroll expenses",
			Category:    "expense", Family: FamilyWizard, SourceModule: SourcePayroll,
			Lines: []TemplateLine{
				debit("5100", "Gross wages", Amount{}),
				debit("6100", "Payroll taxes", Pct("7.65")),
				credit("1020", "Cash paid to employees (net)", Prompt{Name: "netPayAmount", Label: "Net pay amount"}),
				credit("2200", "Payroll taxes payable", Pct("7.65")),
			},
		},
		{
			Key: "insurance-payment", Name: "Insurance Payment",
			Description: "Record insurance premium payment",
			Category:    "expense", Family: FamilyWizard, SourceModule: SourceAccountsPayable,
			Lines: []TemplateLine{
				debit("6300", "Insurance expense", Amount{}),
				credit("1010", "Cash paid for insurance", Amount{}),
			},
		},
	}
}

func quickTemplates() []TransactionTemplate {
	return []TransactionTemplate{
		simple("truck_payment", "Vehicle loan payment", "Monthly truck or vehicle loan payment", SourceAccountsPayable, "2100", "1010"),
		simple("fuel_purchase", "Fuel purchase", "Fuel for company vehicles", SourceManual, "6250", "1010"),
		simple("customer_payment", "Customer payment received", "Payment received against an invoice", SourceAccountsReceivable, "1010", "1200"),
		simple("utility_bill", "Utility payment", "Utility bill received", SourceAccountsPayable, "6300", "2000"),
		simple("rent_payment", "Rent payment", "Monthly rent", SourceManual, "6100", "1010"),
		simple("insurance_payment", "Insurance payment", "Insurance premium", SourceManual, "6200", "1010"),
		simple("supplier_payment", "Supplier payment", "Payment made to supplier", SourceAccountsPayable, "2000", "1010"),
		simple("material_purchase", "Material purchase", "Roofing materials bought on account", SourceInventory, "1300", "2000"),
		simple("subcontractor_payment", "Subcontractor payment", "Payment to a subcontractor crew", SourceAccountsPayable, "6400", "1010"),
		simple("equipment_rental", "Equipment rental", "Rented lifts, dumpsters or tools", SourceManual, "6350", "1010"),
	}
}

func advancedTemplates() []TransactionTemplate {
	return []TransactionTemplate{
		{
			Key: "depreciation", Name: "Equipment Depreciation",
			Description: "Periodic depreciation of equipment",
			Category:    "adjustment", Family: FamilyAdvanced, SourceModule: SourceDepreciation,
			Lines: []TemplateLine{
				debit("6500", "Depreciation Expense", Amount{}),
				credit("1550", "Accumulated Depreciation", Amount{}),
			},
		},
		{
			Key: "accruals", Name: "Expense Accrual",
			Description: "Accrue an expense incurred but not yet billed",
			Category:    "adjustment", Family: FamilyAdvanced, SourceModule: SourceAccruals,
			Lines: []TemplateLine{
				debit("6000", "Expense Account", Amount{}),
				credit("2200", "Accrued Expenses", Amount{}),
			},
		},
	}
}
