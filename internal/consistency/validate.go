package consistency

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
)

var (
	phoneRegex = regexp.MustCompile(`^(\+1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}$`)
	zipRegex   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

	fieldValidator = validator.New()
	hundred        = decimal.NewFromInt(100)
)

// Result is the outcome of validating one record. Warnings never make a
// record invalid.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type collector struct {
	errors   []string
	warnings []string
}

func (c *collector) fail(msg string) { c.errors = append(c.errors, msg) }
func (c *collector) warn(msg string) { c.warnings = append(c.warnings, msg) }

func (c *collector) require(value, msg string) {
	if blank(value) {
		c.fail(msg)
	}
}

func (c *collector) result() Result {
	r := Result{IsValid: len(c.errors) == 0, Errors: c.errors, Warnings: c.warnings}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func validEmail(s string) bool { return fieldValidator.Var(s, "email") == nil }

// ValidateCustomer checks required contact fields, formats and balances.
func ValidateCustomer(c crm.Customer) Result {
	var v collector
	v.require(c.FirstName, "First name is required")
	v.require(c.LastName, "Last name is required")
	v.require(c.Email, "Email is required")
	v.require(c.Phone, "Phone number is required")

	if c.Email != "" && !validEmail(c.Email) {
		v.fail("Email format is invalid")
	}
	if c.Phone != "" && !phoneRegex.MatchString(c.Phone) {
		v.fail("Phone number format is invalid")
	}
	if c.AlternatePhone != "" && !phoneRegex.MatchString(c.AlternatePhone) {
		v.warn("Alternate phone number format is invalid")
	}

	if c.Address == nil {
		v.fail("Address is required")
	} else {
		v.require(c.Address.Street, "Street address is required")
		v.require(c.Address.City, "City is required")
		v.require(c.Address.State, "State is required")
		switch {
		case blank(c.Address.ZipCode):
			v.fail("ZIP code is required")
		case !zipRegex.MatchString(c.Address.ZipCode):
			v.fail("ZIP code format is invalid (must be 12345 or 12345-6789)")
		}
	}

	if c.Type == crm.CustomerCommercial && blank(c.CompanyName) {
		v.warn("Company name should be provided for commercial customers")
	}
	if c.CreditLimit != nil && c.CreditLimit.IsNegative() {
		v.fail("Credit limit cannot be negative")
	}
	if c.LifetimeValue.IsNegative() {
		v.fail("Total lifetime value cannot be negative")
	}
	if c.OutstandingBalance.IsNegative() {
		v.warn("Outstanding balance is negative (customer has credit)")
	}
	return v.result()
}

// ValidateEmployee checks identity, contact, compensation and hours.
func ValidateEmployee(e crm.Employee) Result {
	return validateEmployee(e, time.Now())
}

func validateEmployee(e crm.Employee, now time.Time) Result {
	var v collector
	v.require(e.EmployeeNumber, "Employee number is required")
	v.require(e.FirstName, "First name is required")
	v.require(e.LastName, "Last name is required")
	v.require(e.Position, "Position is required")
	v.require(e.Department, "Department is required")
	v.require(string(e.HireDate), "Hire date is required")
	v.require(e.Email, "Email is required")
	v.require(e.Phone, "Phone number is required")

	if e.Email != "" && !validEmail(e.Email) {
		v.fail("Email format is invalid")
	}
	if e.Phone != "" && !phoneRegex.MatchString(e.Phone) {
		v.fail("Phone number format is invalid")
	}
	if !e.HireDate.IsZero() {
		hired, err := e.HireDate.Parse()
		switch {
		case err != nil:
			v.fail("Hire date format is invalid")
		case hired.After(now):
			v.warn("Hire date is in the future")
		}
	}

	if e.HourlyRate.IsNegative() {
		v.fail("Hourly rate cannot be negative")
	}
	if e.Salary.IsNegative() {
		v.fail("Salary cannot be negative")
	}
	if e.OvertimeRate.IsNegative() {
		v.fail("Overtime rate cannot be negative")
	}

	if e.Status == crm.EmployeeTerminated && e.TerminationDate.IsZero() {
		v.warn("Termination date should be provided for terminated employees")
	}
	if e.HoursPerWeek > 80 {
		v.warn("Default hours per week seems unusually high (>80)")
	}
	return v.result()
}

// ValidateProject checks required fields, money, schedule and progress.
func ValidateProject(p crm.Project) Result {
	var v collector
	v.require(p.Name, "Project name is required")
	v.require(p.CustomerID, "Customer ID is required")
	v.require(p.Type, "Project type is required")

	if p.ContractAmount.IsNegative() {
		v.fail("Contract amount cannot be negative")
	}
	if p.EstimatedCost.IsNegative() {
		v.fail("Estimated cost cannot be negative")
	}
	if p.ActualCost.IsNegative() {
		v.fail("Actual cost cannot be negative")
	}
	if p.ProfitMargin.LessThan(hundred.Neg()) || p.ProfitMargin.GreaterThan(hundred) {
		v.warn("Profit margin should be between -100% and 100%")
	}

	schedule := func(startDate, endDate crm.Date, label string) {
		start, startErr := parseOptional(startDate)
		if startErr != nil {
			v.fail(label + " start date format is invalid")
		}
		end, endErr := parseOptional(endDate)
		if endErr != nil {
			v.fail(label + " end date format is invalid")
		}
		if startErr == nil && endErr == nil && !start.IsZero() && !end.IsZero() && !start.Before(end) {
			v.fail(label + " end date must be after " + strings.ToLower(label) + " start date")
		}
	}
	schedule(p.EstimatedStartDate, p.EstimatedEndDate, "Estimated")
	schedule(p.ActualStartDate, p.ActualEndDate, "Actual")

	// Zero means the partial entity carries no measurement yet.
	if p.SquareFootage < 0 {
		v.fail("Square footage must be greater than 0")
	}
	if p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
		v.fail("Progress percentage must be between 0 and 100")
	}
	return v.result()
}

func parseOptional(d crm.Date) (time.Time, error) {
	if d.IsZero() {
		return time.Time{}, nil
	}
	return d.Parse()
}
