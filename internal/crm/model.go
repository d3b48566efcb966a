package crm

import (
	"time"

	"github.com/shopspring/decimal"
)

// Date carries a calendar date exactly as it was entered (YYYY-MM-DD or
// RFC3339). Keeping the raw text lets validators report format errors.
type Date string

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// Parse converts the date into a time.Time.
func (d Date) Parse() (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, string(d))
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// IsZero reports whether no date was supplied.
func (d Date) IsZero() bool { return d == "" }

// DateOf formats t as a Date.
func DateOf(t time.Time) Date { return Date(t.Format("2006-01-02")) }

// CustomerType separates residential and commercial accounts.
type CustomerType string

const (
	CustomerResidential CustomerType = "Residential"
	CustomerCommercial  CustomerType = "Commercial"
)

// CustomerStatus enumerates the customer lifecycle.
type CustomerStatus string

const (
	CustomerProspect CustomerStatus = "Prospect"
	CustomerActive   CustomerStatus = "Active"
	CustomerInactive CustomerStatus = "Inactive"
)

// Address is a US postal address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	County  string `json:"county,omitempty"`
}

// IsZero reports whether the address was omitted entirely.
func (a *Address) IsZero() bool {
	return a == nil || (a.Street == "" && a.City == "" && a.State == "" && a.ZipCode == "")
}

// Customer is the unified customer snapshot shared across modules.
type Customer struct {
	ID                 string           `json:"id"`
	Type               CustomerType     `json:"type"`
	Status             CustomerStatus   `json:"status"`
	FirstName          string           `json:"firstName"`
	LastName           string           `json:"lastName"`
	CompanyName        string           `json:"companyName,omitempty"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	AlternatePhone     string           `json:"alternatePhone,omitempty"`
	Address            *Address         `json:"address,omitempty"`
	PropertyType       string           `json:"propertyType,omitempty"`
	RoofType           string           `json:"roofType,omitempty"`
	LeadSource         string           `json:"leadSource,omitempty"`
	ReferredBy         string           `json:"referredBy,omitempty"`
	PaymentTerms       string           `json:"paymentTerms,omitempty"`
	CreditLimit        *decimal.Decimal `json:"creditLimit,omitempty"`
	LifetimeValue      decimal.Decimal  `json:"totalLifetimeValue"`
	OutstandingBalance decimal.Decimal  `json:"outstandingBalance"`
	ProjectIDs         []string         `json:"projectIds"`
	Notes              string           `json:"notes,omitempty"`
	CreatedAt          time.Time        `json:"dateAdded"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// EmployeeStatus enumerates employment states.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "Active"
	EmployeeInactive   EmployeeStatus = "Inactive"
	EmployeeOnLeave    EmployeeStatus = "On Leave"
	EmployeeTerminated EmployeeStatus = "Terminated"
)

// Availability tracks whether an employee can take new work.
type Availability string

const (
	Available   Availability = "Available"
	Assigned    Availability = "Assigned"
	Unavailable Availability = "Unavailable"
)

// Employee is the unified employee snapshot.
type Employee struct {
	ID                string          `json:"id"`
	EmployeeNumber    string          `json:"employeeNumber"`
	FirstName         string          `json:"firstName"`
	LastName          string          `json:"lastName"`
	Position          string          `json:"position"`
	Department        string          `json:"department"`
	HireDate          Date            `json:"hireDate"`
	TerminationDate   Date            `json:"terminationDate,omitempty"`
	Status            EmployeeStatus  `json:"status"`
	Availability      Availability    `json:"availability"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	Salary            decimal.Decimal `json:"salary"`
	OvertimeRate      decimal.Decimal `json:"overtimeRate"`
	HoursPerWeek      float64         `json:"defaultHoursPerWeek"`
	PayrollID         string          `json:"payrollId"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Skills            []string        `json:"skills,omitempty"`
	Certifications    []string        `json:"certifications,omitempty"`
	CurrentProjectIDs []string        `json:"currentProjectIds"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// FullName joins first and last name.
func (e Employee) FullName() string { return e.FirstName + " " + e.LastName }

// ProjectStatus enumerates project phases.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "Planning"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectOnHold     ProjectStatus = "On Hold"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectCancelled  ProjectStatus = "Cancelled"
)

// Assignment links an employee to a project.
type Assignment struct {
	EmployeeID   string    `json:"employeeId"`
	Role         string    `json:"role"`
	AssignedDate time.Time `json:"assignedDate"`
	Status       string    `json:"status"`
}

// Project is the unified project snapshot.
type Project struct {
	ID                 string          `json:"id"`
	ProjectNumber      string          `json:"projectNumber"`
	Name               string          `json:"name"`
	CustomerID         string          `json:"customerId"`
	OpportunityID      string          `json:"opportunityId,omitempty"`
	Type               string          `json:"type"`
	Status             ProjectStatus   `json:"status"`
	Priority           string          `json:"priority"`
	Description        string          `json:"description,omitempty"`
	Address            *Address        `json:"address,omitempty"`
	RoofType           string          `json:"roofType,omitempty"`
	SquareFootage      int             `json:"squareFootage,omitempty"`
	EstimatedStartDate Date            `json:"estimatedStartDate,omitempty"`
	EstimatedEndDate   Date            `json:"estimatedEndDate,omitempty"`
	ActualStartDate    Date            `json:"actualStartDate,omitempty"`
	ActualEndDate      Date            `json:"actualEndDate,omitempty"`
	ContractAmount     decimal.Decimal `json:"contractAmount"`
	EstimatedCost      decimal.Decimal `json:"estimatedCost"`
	ActualCost         decimal.Decimal `json:"actualCost"`
	ProfitMargin       decimal.Decimal `json:"profitMargin"`
	ProjectManagerID   string          `json:"projectManagerId,omitempty"`
	AssignedEmployees  []Assignment    `json:"assignedEmployees"`
	ProgressPercentage int             `json:"progressPercentage"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// HasEmployee reports whether the employee is assigned to the project.
func (p Project) HasEmployee(employeeID string) bool {
	for _, a := range p.AssignedEmployees {
		if a.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// Lead is an unqualified prospect captured by sales.
type Lead struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"firstName" validate:"required"`
	LastName       string   `json:"lastName" validate:"required"`
	CompanyName    string   `json:"companyName,omitempty"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone" validate:"required"`
	AlternatePhone string   `json:"alternatePhone,omitempty"`
	Address        *Address `json:"address,omitempty"`
	PropertyType   string   `json:"propertyType"`
	RoofType       string   `json:"roofType,omitempty"`
	Source         string   `json:"source"`
	ReferredBy     string   `json:"referredBy,omitempty"`
	Campaign       string   `json:"campaign,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
