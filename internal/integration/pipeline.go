package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/money"
)

const (
	// OnboardingCourse is the safety course every new hire is enrolled in.
	OnboardingCourse = "OSHA-10-BASIC"
	// ManagerRole is the role given to the auto-assigned project lead.
	ManagerRole = "Project Manager"
)

var (
	estimatedCostRatio = decimal.RequireFromString("0.70")
	targetMargin       = decimal.NewFromInt(30)
	laborCostRatio     = decimal.RequireFromString("0.40")
)

// EmployeeInput describes a new hire.
type EmployeeInput struct {
	ID             string          `json:"id"`
	EmployeeNumber string          `json:"employeeNumber" validate:"required"`
	FirstName      string          `json:"firstName" validate:"required"`
	LastName       string          `json:"lastName" validate:"required"`
	Position       string          `json:"position" validate:"required"`
	Department     string          `json:"department"`
	HireDate       crm.Date        `json:"hireDate"`
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Phone          string          `json:"phone"`
	Skills         []string        `json:"skills"`
}

// ProjectInput describes a won opportunity that becomes a project.
type ProjectInput struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customerId" validate:"required"`
	OpportunityID      string          `json:"opportunityId"`
	Name               string          `json:"name" validate:"required"`
	Type               string          `json:"type"`
	Priority           string          `json:"priority"`
	Description        string          `json:"description"`
	Address            *crm.Address    `json:"address"`
	RoofType           string          `json:"roofType"`
	SquareFootage      int             `json:"squareFootage" validate:"gt=0"`
	Value              decimal.Decimal `json:"value"`
	EstimatedStartDate crm.Date        `json:"estimatedStartDate"`
	EstimatedEndDate   crm.Date        `json:"estimatedEndDate"`
}

// LeadResult is the outcome of ProcessLeadToProject.
type LeadResult struct {
	Customer crm.Customer `json:"customer"`
	Project  crm.Project  `json:"project"`
}

// Pipeline composes the CRM store and the event bus into the lead to
// customer to project flow.
type Pipeline struct {
	store  crm.Store
	bus    events.Emitter
	logger *slog.Logger
	now    func() time.Time
	newID  func(prefix string) string
}

// NewPipeline constructs a pipeline.
func NewPipeline(store crm.Store, bus events.Emitter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		newID: func(prefix string) string {
			return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
		},
	}
}

// WithNow overrides the clock.
func (p *Pipeline) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// WithIDs overrides id generation for leads, employees and projects.
func (p *Pipeline) WithIDs(gen func(prefix string) string) {
	if gen != nil {
		p.newID = gen
	}
}

// CaptureLead records the lead and converts it into a prospect customer.
func (p *Pipeline) CaptureLead(ctx context.Context, lead crm.Lead) (crm.Customer, error) {
	if err := shared.ValidateStruct(lead); err != nil {
		return crm.Customer{}, err
	}
	if lead.ID == "" {
		lead.ID = p.newID("LEAD")
	}
	p.emit(ctx, events.LeadCreatedPayload{Lead: lead})

	customer := customerFromLead(lead, p.now())
	if err := p.store.AddCustomer(ctx, customer); err != nil {
		return crm.Customer{}, fmt.Errorf("convert lead %s: %w", lead.ID, err)
	}
	p.emit(ctx, events.LeadConvertedPayload{LeadID: lead.ID, CustomerID: customer.ID})
	p.emit(ctx, events.CustomerCreatedPayload{Customer: customer})
	p.emit(ctx, events.Notification(
		fmt.Sprintf("Lead %s %s converted to customer", lead.FirstName, lead.LastName), events.NotifySuccess))
	p.logger.Info("lead converted", slog.String("lead", lead.ID), slog.String("customer", customer.ID))
	return customer, nil
}

func customerFromLead(lead crm.Lead, now time.Time) crm.Customer {
	kind, terms := crm.CustomerResidential, "Net 30"
	if strings.EqualFold(lead.PropertyType, string(crm.CustomerCommercial)) {
		kind, terms = crm.CustomerCommercial, "Net 15"
	}
	return crm.Customer{
		ID:                 "CUST-" + lead.ID,
		Type:               kind,
		Status:             crm.CustomerProspect,
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		CompanyName:        lead.CompanyName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		AlternatePhone:     lead.AlternatePhone,
		Address:            lead.Address,
		PropertyType:       lead.PropertyType,
		RoofType:           lead.RoofType,
		LeadSource:         lead.Source,
		ReferredBy:         lead.ReferredBy,
		PaymentTerms:       terms,
		LifetimeValue:      decimal.Zero,
		OutstandingBalance: decimal.Zero,
		ProjectIDs:         []string{},
		Notes:              lead.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// OnboardEmployee creates an active, available employee and starts the
// onboarding paperwork.
func (p *Pipeline) OnboardEmployee(ctx context.Context, in EmployeeInput) (crm.Employee, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return crm.Employee{}, err
	}
	now := p.now()
	employee := crm.Employee{
		ID:                in.ID,
		EmployeeNumber:    in.EmployeeNumber,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Position:          in.Position,
		Department:        in.Department,
		HireDate:          in.HireDate,
		Status:            crm.EmployeeActive,
		Availability:      crm.Available,
		HourlyRate:        in.HourlyRate,
		OvertimeRate:      in.HourlyRate.Mul(decimal.RequireFromString("1.5")),
		HoursPerWeek:      40,
		PayrollID:         "PR-" + in.EmployeeNumber,
		Email:             in.Email,
		Phone:             in.Phone,
		Skills:            in.Skills,
		CurrentProjectIDs: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if employee.ID == "" {
		employee.ID = p.newID("EMP")
	}
	if employee.HireDate.IsZero() {
		employee.HireDate = crm.DateOf(now)
	}
	if err := p.store.AddEmployee(ctx, employee); err != nil {
		return crm.Employee{}, fmt.Errorf("onboard employee %s: %w", in.EmployeeNumber, err)
	}
	p.emit(ctx, events.EmployeeHiredPayload{Employee: employee})
	p.emit(ctx, events.TrainingEnrolledPayload{EmployeeID: employee.ID, CourseID: OnboardingCourse})
	p.emit(ctx, events.DocumentUploadedPayload{DocumentID: "HR-" + employee.ID})
	p.emit(ctx, events.Notification(
		fmt.Sprintf("Employee %s onboarded as %s", employee.FullName(), employee.Position), events.NotifySuccess))
	return employee, nil
}

// CreateProject turns a won opportunity into a project, assigns a manager
// when one is free and kicks off costing, materials, permits and billing.
func (p *Pipeline) CreateProject(ctx context.Context, in ProjectInput) (crm.Project, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return crm.Project{}, err
	}
	if !in.Value.IsPositive() {
		return crm.Project{}, shared.Invalid("value", "must be greater than zero")
	}
	customer, err := p.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		p.emit(ctx, events.Failure(fmt.Sprintf("Customer %s not found", in.CustomerID), events.ErrorContext{
			Event: events.ProjectCreated,
			Data:  in,
			Error: err.Error(),
		}))
		return crm.Project{}, err
	}

	project, err := p.newProject(ctx, in)
	if err != nil {
		return crm.Project{}, err
	}
	if err := p.store.AddProject(ctx, project); err != nil {
		return crm.Project{}, fmt.Errorf("create project %s: %w", project.ID, err)
	}
	if project.OpportunityID != "" {
		p.emit(ctx, events.OpportunityWonPayload{OpportunityID: project.OpportunityID, ProjectID: project.ID})
	}
	p.emit(ctx, events.ProjectCreatedPayload{Project: project})

	if _, err := p.store.UpdateCustomer(ctx, customer.ID, func(c *crm.Customer) error {
		crm.LinkProject(c, project.ID)
		return nil
	}); err != nil {
		return crm.Project{}, err
	}

	if manager, ok, err := p.availableManager(ctx); err != nil {
		return crm.Project{}, err
	} else if ok {
		if project, err = p.AssignEmployee(ctx, manager.ID, project.ID, ManagerRole); err != nil {
			return crm.Project{}, err
		}
	}

	p.kickoff(ctx, project, in.Value)

	if customer.Status == crm.CustomerProspect {
		if _, err := p.store.UpdateCustomer(ctx, customer.ID, func(c *crm.Customer) error {
			c.Status = crm.CustomerActive
			return nil
		}); err != nil {
			return crm.Project{}, err
		}
		p.emit(ctx, events.CustomerStatusChangedPayload{ID: customer.ID, Status: crm.CustomerActive})
	}

	p.emit(ctx, events.Notification(
		fmt.Sprintf("Project %s created for %s (%s)", project.Name, customerName(customer), money.USD(in.Value)),
		events.NotifySuccess))
	p.logger.Info("project created",
		slog.String("project", project.ID),
		slog.String("customer", customer.ID),
		slog.String("manager", project.ProjectManagerID),
	)
	return project, nil
}

func (p *Pipeline) newProject(ctx context.Context, in ProjectInput) (crm.Project, error) {
	existing, err := p.store.ListProjects(ctx)
	if err != nil {
		return crm.Project{}, err
	}
	now := p.now()
	project := crm.Project{
		ID:                 in.ID,
		ProjectNumber:      fmt.Sprintf("RP-%d-%04d", now.Year(), len(existing)+1),
		Name:               in.Name,
		CustomerID:         in.CustomerID,
		OpportunityID:      in.OpportunityID,
		Type:               in.Type,
		Status:             crm.ProjectPlanning,
		Priority:           in.Priority,
		Description:        in.Description,
		Address:            in.Address,
		RoofType:           in.RoofType,
		SquareFootage:      in.SquareFootage,
		EstimatedStartDate: in.EstimatedStartDate,
		EstimatedEndDate:   in.EstimatedEndDate,
		ContractAmount:     in.Value,
		EstimatedCost:      in.Value.Mul(estimatedCostRatio).Round(2),
		ActualCost:         decimal.Zero,
		ProfitMargin:       targetMargin,
		AssignedEmployees:  []crm.Assignment{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if project.ID == "" {
		project.ID = p.newID("PRJ")
	}
	if project.Priority == "" {
		project.Priority = "Medium"
	}
	return project, nil
}

// availableManager returns the first active, available employee whose
// position is a manager or supervisor.
func (p *Pipeline) availableManager(ctx context.Context) (crm.Employee, bool, error) {
	employees, err := p.store.ListEmployees(ctx)
	if err != nil {
		return crm.Employee{}, false, err
	}
	for _, e := range employees {
		if e.Status != crm.EmployeeActive || e.Availability != crm.Available {
			continue
		}
		position := strings.ToLower(e.Position)
		if strings.Contains(position, "manager") || strings.Contains(position, "supervisor") {
			return e, true, nil
		}
	}
	return crm.Employee{}, false, nil
}

type materialPlan struct {
	id       string
	quantity func(sqft int) decimal.Decimal
}

var startingMaterials = []materialPlan{
	{id: "MAT-SHINGLES", quantity: func(sqft int) decimal.Decimal { return decimal.NewFromInt(int64(sqft)) }},
	{id: "MAT-UNDERLAYMENT", quantity: func(sqft int) decimal.Decimal { return decimal.NewFromInt(int64(sqft)) }},
	{id: "MAT-NAILS", quantity: func(sqft int) decimal.Decimal {
		return decimal.NewFromInt(int64(math.Ceil(float64(sqft) / 100)))
	}},
}

func (p *Pipeline) kickoff(ctx context.Context, project crm.Project, value decimal.Decimal) {
	labor := value.Mul(laborCostRatio).Round(2)
	p.emit(ctx, events.JobCostAddedPayload{
		ProjectID: project.ID,
		CostEntry: events.CostEntry{
			ID:          "COST-" + project.ID + "-LABOR",
			Category:    "Subcontractor",
			Description: "Estimated installation labor",
			Quantity:    decimal.NewFromInt(1),
			UnitCost:    labor,
			TotalCost:   labor,
			Date:        p.now(),
		},
	})
	for _, m := range startingMaterials {
		p.emit(ctx, events.MaterialAllocatedPayload{
			MaterialID: m.id,
			ProjectID:  project.ID,
			Quantity:   m.quantity(project.SquareFootage),
		})
	}
	p.emit(ctx, events.PermitAppliedPayload{ProjectID: project.ID, PermitID: "PERM-" + project.ID})
	p.emit(ctx, events.InspectionScheduledPayload{ProjectID: project.ID, InspectionID: "INSP-" + project.ID + "-INITIAL"})
	p.emit(ctx, events.DocumentUploadedPayload{
		DocumentID: "CONTRACT-" + project.ID,
		CustomerID: project.CustomerID,
		ProjectID:  project.ID,
	})
	p.emit(ctx, events.InvoiceCreatedPayload{
		InvoiceID:  "INV-" + project.ID + "-DEPOSIT",
		CustomerID: project.CustomerID,
		ProjectID:  project.ID,
	})
}

// ProcessLeadToProject captures the lead and creates its first project.
func (p *Pipeline) ProcessLeadToProject(ctx context.Context, lead crm.Lead, in ProjectInput) (LeadResult, error) {
	customer, err := p.CaptureLead(ctx, lead)
	if err != nil {
		p.failed(ctx, events.LeadCreated, lead, err)
		return LeadResult{}, err
	}
	in.CustomerID = customer.ID
	project, err := p.CreateProject(ctx, in)
	if err != nil {
		p.failed(ctx, events.ProjectCreated, in, err)
		return LeadResult{}, err
	}
	customer, err = p.store.GetCustomer(ctx, customer.ID)
	if err != nil {
		return LeadResult{}, err
	}
	return LeadResult{Customer: customer, Project: project}, nil
}

// AssignEmployee adds the employee to the project and the project to the
// employee. Assigning twice is a no-op.
func (p *Pipeline) AssignEmployee(ctx context.Context, employeeID, projectID, role string) (crm.Project, error) {
	if _, err := p.store.GetEmployee(ctx, employeeID); err != nil {
		return crm.Project{}, err
	}
	now := p.now()
	var added bool
	project, err := p.store.UpdateProject(ctx, projectID, func(pr *crm.Project) error {
		if pr.HasEmployee(employeeID) {
			return nil
		}
		added = true
		pr.AssignedEmployees = append(pr.AssignedEmployees, crm.Assignment{
			EmployeeID:   employeeID,
			Role:         role,
			AssignedDate: now,
			Status:       "Active",
		})
		if role == ManagerRole && pr.ProjectManagerID == "" {
			pr.ProjectManagerID = employeeID
		}
		return nil
	})
	if err != nil {
		return crm.Project{}, err
	}
	if _, err := p.store.UpdateEmployee(ctx, employeeID, func(e *crm.Employee) error {
		crm.AttachProject(e, projectID)
		e.Availability = crm.Assigned
		return nil
	}); err != nil {
		return crm.Project{}, err
	}
	if added {
		p.emit(ctx, events.EmployeeAssignedPayload{EmployeeID: employeeID, ProjectID: projectID, Role: role})
	}
	return project, nil
}

// UnassignEmployee removes the link from both sides. An employee left with
// no projects becomes available again.
func (p *Pipeline) UnassignEmployee(ctx context.Context, employeeID, projectID string) (crm.Project, error) {
	var removed bool
	project, err := p.store.UpdateProject(ctx, projectID, func(pr *crm.Project) error {
		kept := pr.AssignedEmployees[:0:0]
		for _, a := range pr.AssignedEmployees {
			if a.EmployeeID == employeeID {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		pr.AssignedEmployees = kept
		if pr.ProjectManagerID == employeeID {
			pr.ProjectManagerID = ""
		}
		return nil
	})
	if err != nil {
		return crm.Project{}, err
	}
	_, err = p.store.UpdateEmployee(ctx, employeeID, func(e *crm.Employee) error {
		crm.DetachProject(e, projectID)
		if len(e.CurrentProjectIDs) == 0 && e.Availability == crm.Assigned {
			e.Availability = crm.Available
		}
		return nil
	})
	if err != nil && !errors.Is(err, crm.ErrEmployeeNotFound) {
		return crm.Project{}, err
	}
	if removed {
		p.emit(ctx, events.EmployeeUnassignedPayload{EmployeeID: employeeID, ProjectID: projectID})
	}
	return project, nil
}

// SyncCustomer broadcasts a refresh request for one customer.
func (p *Pipeline) SyncCustomer(ctx context.Context, id string) error {
	_, err := p.store.GetCustomer(ctx, id)
	p.emit(ctx, events.SyncCustomerPayload{CustomerID: id})
	p.emit(ctx, events.SyncCompletedPayload{Entity: "customer", EntityID: id, Success: err == nil})
	return err
}

// SyncEmployee broadcasts a refresh request for one employee.
func (p *Pipeline) SyncEmployee(ctx context.Context, id string) error {
	_, err := p.store.GetEmployee(ctx, id)
	p.emit(ctx, events.SyncEmployeePayload{EmployeeID: id})
	p.emit(ctx, events.SyncCompletedPayload{Entity: "employee", EntityID: id, Success: err == nil})
	return err
}

// SyncProject broadcasts a refresh request for one project.
func (p *Pipeline) SyncProject(ctx context.Context, id string) error {
	_, err := p.store.GetProject(ctx, id)
	p.emit(ctx, events.SyncProjectPayload{ProjectID: id})
	p.emit(ctx, events.SyncCompletedPayload{Entity: "project", EntityID: id, Success: err == nil})
	return err
}

func (p *Pipeline) failed(ctx context.Context, stage events.Name, data any, err error) {
	p.logger.Error("lead pipeline failed", slog.String("stage", string(stage)), slog.Any("error", err))
	p.emit(ctx, events.Failure("Lead to project pipeline failed: "+err.Error(), events.ErrorContext{
		Event: stage,
		Data:  data,
		Error: err.Error(),
	}))
}

func (p *Pipeline) emit(ctx context.Context, payload events.Payload) {
	if p.bus != nil {
		p.bus.Emit(ctx, payload)
	}
}

func customerName(c crm.Customer) string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// RecordInvoicePayment announces a customer payment. The ledger hooks turn it
// into a cash receipt.
func (p *Pipeline) RecordInvoicePayment(ctx context.Context, invoiceID string, amount decimal.Decimal) error {
	if strings.TrimSpace(invoiceID) == "" {
		return shared.Invalid("invoiceId", "is required")
	}
	if !amount.IsPositive() {
		return shared.Invalid("amount", "must be greater than zero")
	}
	p.emit(ctx, events.InvoicePaidPayload{InvoiceID: invoiceID, Amount: amount})
	p.emit(ctx, events.Notification(
		fmt.Sprintf("Payment of %s received for invoice %s", money.USD(amount), invoiceID), events.NotifySuccess))
	return nil
}
