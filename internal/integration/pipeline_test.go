package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T) (*Pipeline, *crm.MemoryStore, *events.Bus) {
	t.Helper()
	store := crm.NewMemoryStore()
	store.WithNow(func() time.Time { return fixedNow })
	bus := events.NewBus(events.WithClock(func() time.Time { return fixedNow }))
	p := NewPipeline(store, bus, nil)
	p.WithNow(func() time.Time { return fixedNow })
	seq := map[string]int{}
	p.WithIDs(func(prefix string) string {
		seq[prefix]++
		return fmt.Sprintf("%s-%d", prefix, seq[prefix])
	})
	return p, store, bus
}

func names(evts []events.Event) []events.Name {
	out := make([]events.Name, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Name)
	}
	return out
}

func hillLead() crm.Lead {
	return crm.Lead{
		ID:           "L1",
		FirstName:    "Dana",
		LastName:     "Hill",
		Email:        "dana.hill@example.com",
		Phone:        "(555) 123-4567",
		PropertyType: "Residential",
		Source:       "Website",
	}
}

func roofInput(customerID string) ProjectInput {
	return ProjectInput{
		CustomerID:    customerID,
		OpportunityID: "OPP-7",
		Name:          "Hill residence re-roof",
		Type:          "Replacement",
		SquareFootage: 2450,
		Value:         decimal.NewFromInt(20000),
	}
}

func TestCaptureLeadConvertsToProspect(t *testing.T) {
	p, store, bus := newPipeline(t)

	customer, err := p.CaptureLead(context.Background(), hillLead())
	require.NoError(t, err)
	assert.Equal(t, "CUST-L1", customer.ID)
	assert.Equal(t, crm.CustomerProspect, customer.Status)
	assert.Equal(t, crm.CustomerResidential, customer.Type)
	assert.Equal(t, "Net 30", customer.PaymentTerms)
	assert.Equal(t, "Website", customer.LeadSource)

	_, err = store.GetCustomer(context.Background(), "CUST-L1")
	require.NoError(t, err)

	history := bus.GetEvents("")
	assert.Equal(t, []events.Name{
		events.LeadCreated, events.LeadConverted, events.CustomerCreated, events.SystemNotification,
	}, names(history))
	note := history[3].Payload.(events.SystemNotificationPayload)
	assert.Equal(t, "Lead Dana Hill converted to customer", note.Message)
	assert.Equal(t, events.NotifySuccess, note.Type)
}

func TestCaptureLeadCommercialTerms(t *testing.T) {
	p, _, _ := newPipeline(t)
	lead := hillLead()
	lead.ID = "L2"
	lead.PropertyType = "commercial"

	customer, err := p.CaptureLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, crm.CustomerCommercial, customer.Type)
	assert.Equal(t, "Net 15", customer.PaymentTerms)
}

func TestCaptureLeadRejectsIncompleteLead(t *testing.T) {
	p, _, bus := newPipeline(t)
	lead := hillLead()
	lead.Email = ""

	_, err := p.CaptureLead(context.Background(), lead)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, bus.GetEvents(""))
}

func TestOnboardEmployee(t *testing.T) {
	p, store, bus := newPipeline(t)

	employee, err := p.OnboardEmployee(context.Background(), EmployeeInput{
		ID:             "E1",
		EmployeeNumber: "1001",
		FirstName:      "Sam",
		LastName:       "Ortiz",
		Position:       "Roofer",
		HourlyRate:     decimal.NewFromInt(28),
	})
	require.NoError(t, err)
	assert.Equal(t, "PR-1001", employee.PayrollID)
	assert.Equal(t, crm.EmployeeActive, employee.Status)
	assert.Equal(t, crm.Available, employee.Availability)
	assert.Equal(t, 40.0, employee.HoursPerWeek)
	assert.Equal(t, crm.Date("2025-03-15"), employee.HireDate)
	assert.True(t, employee.OvertimeRate.Equal(decimal.NewFromInt(42)))

	stored, err := store.GetEmployee(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "Sam Ortiz", stored.FullName())

	history := bus.GetEvents("")
	require.Equal(t, []events.Name{
		events.EmployeeHired, events.TrainingEnrolled, events.DocumentUploaded, events.SystemNotification,
	}, names(history))
	assert.Equal(t, OnboardingCourse, history[1].Payload.(events.TrainingEnrolledPayload).CourseID)
	assert.Equal(t, "HR-E1", history[2].Payload.(events.DocumentUploadedPayload).DocumentID)
}

func onboard(t *testing.T, p *Pipeline, id, position string) {
	t.Helper()
	_, err := p.OnboardEmployee(context.Background(), EmployeeInput{
		ID: id, EmployeeNumber: id + "-N", FirstName: id, LastName: "Crew", Position: position,
	})
	require.NoError(t, err)
}

func TestCreateProjectKicksOffWork(t *testing.T) {
	ctx := context.Background()
	p, store, bus := newPipeline(t)
	customer, err := p.CaptureLead(ctx, hillLead())
	require.NoError(t, err)
	onboard(t, p, "E1", "Roofer")
	onboard(t, p, "E2", "Project Manager")
	onboard(t, p, "E3", "Site Supervisor")
	mark := len(bus.GetEvents(""))

	project, err := p.CreateProject(ctx, roofInput(customer.ID))
	require.NoError(t, err)
	assert.Equal(t, "PRJ-1", project.ID)
	assert.Equal(t, "RP-2025-0001", project.ProjectNumber)
	assert.Equal(t, crm.ProjectPlanning, project.Status)
	assert.True(t, project.EstimatedCost.Equal(decimal.NewFromInt(14000)))
	assert.True(t, project.ProfitMargin.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "E2", project.ProjectManagerID)
	require.Len(t, project.AssignedEmployees, 1)
	assert.Equal(t, ManagerRole, project.AssignedEmployees[0].Role)

	manager, err := store.GetEmployee(ctx, "E2")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRJ-1"}, manager.CurrentProjectIDs)
	assert.Equal(t, crm.Assigned, manager.Availability)

	stored, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRJ-1"}, stored.ProjectIDs)
	assert.Equal(t, crm.CustomerActive, stored.Status)

	emitted := bus.GetEvents("")[mark:]
	assert.Equal(t, []events.Name{
		events.OpportunityWon, events.ProjectCreated, events.EmployeeAssigned, events.JobCostAdded,
		events.MaterialAllocated, events.MaterialAllocated, events.MaterialAllocated,
		events.PermitApplied, events.InspectionScheduled, events.DocumentUploaded, events.InvoiceCreated,
		events.CustomerStatusChanged, events.SystemNotification,
	}, names(emitted))

	cost := emitted[3].Payload.(events.JobCostAddedPayload)
	assert.True(t, cost.CostEntry.TotalCost.Equal(decimal.NewFromInt(8000)))
	var quantities []string
	for _, e := range emitted[4:7] {
		quantities = append(quantities, e.Payload.(events.MaterialAllocatedPayload).Quantity.String())
	}
	assert.Equal(t, []string{"2450", "2450", "25"}, quantities)
	assert.Equal(t, "PERM-PRJ-1", emitted[7].Payload.(events.PermitAppliedPayload).PermitID)
	assert.Equal(t, "INSP-PRJ-1-INITIAL", emitted[8].Payload.(events.InspectionScheduledPayload).InspectionID)
	assert.Equal(t, "CONTRACT-PRJ-1", emitted[9].Payload.(events.DocumentUploadedPayload).DocumentID)
	assert.Equal(t, "INV-PRJ-1-DEPOSIT", emitted[10].Payload.(events.InvoiceCreatedPayload).InvoiceID)
	assert.Equal(t, "Project Hill residence re-roof created for Dana Hill ($20,000.00)",
		emitted[12].Payload.(events.SystemNotificationPayload).Message)
}

func TestCreateProjectWithoutFreeManager(t *testing.T) {
	ctx := context.Background()
	p, _, bus := newPipeline(t)
	customer, err := p.CaptureLead(ctx, hillLead())
	require.NoError(t, err)
	onboard(t, p, "E1", "Roofer")

	project, err := p.CreateProject(ctx, roofInput(customer.ID))
	require.NoError(t, err)
	assert.Empty(t, project.ProjectManagerID)
	assert.Empty(t, project.AssignedEmployees)
	assert.Empty(t, bus.GetEvents(string(events.EmployeeAssigned)))
}

func TestCreateProjectUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	p, store, bus := newPipeline(t)

	_, err := p.CreateProject(ctx, roofInput("CUST-404"))
	require.ErrorIs(t, err, crm.ErrCustomerNotFound)

	failures := bus.GetEvents(string(events.SystemError))
	require.Len(t, failures, 1)
	assert.Equal(t, "Customer CUST-404 not found", failures[0].Payload.(events.SystemErrorPayload).Error)
	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestCreateProjectRejectsBadInput(t *testing.T) {
	p, _, _ := newPipeline(t)
	in := roofInput("CUST-L1")
	in.Value = decimal.Zero
	_, err := p.CreateProject(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in = roofInput("CUST-L1")
	in.SquareFootage = 0
	_, err = p.CreateProject(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestProcessLeadToProject(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPipeline(t)

	result, err := p.ProcessLeadToProject(ctx, hillLead(), roofInput(""))
	require.NoError(t, err)
	assert.Equal(t, "CUST-L1", result.Customer.ID)
	assert.Equal(t, crm.CustomerActive, result.Customer.Status)
	assert.Equal(t, []string{result.Project.ID}, result.Customer.ProjectIDs)
	assert.Equal(t, "CUST-L1", result.Project.CustomerID)
}

func TestProcessLeadToProjectReportsFailure(t *testing.T) {
	ctx := context.Background()
	p, _, bus := newPipeline(t)
	lead := hillLead()
	lead.Phone = ""

	_, err := p.ProcessLeadToProject(ctx, lead, roofInput(""))
	require.Error(t, err)
	failures := bus.GetEvents(string(events.SystemError))
	require.Len(t, failures, 1)
	ctxData := failures[0].Payload.(events.SystemErrorPayload).Context
	assert.Equal(t, events.LeadCreated, ctxData.Event)
}

func TestAssignAndUnassignKeepBothSides(t *testing.T) {
	ctx := context.Background()
	p, store, bus := newPipeline(t)
	customer, err := p.CaptureLead(ctx, hillLead())
	require.NoError(t, err)
	project, err := p.CreateProject(ctx, roofInput(customer.ID))
	require.NoError(t, err)
	onboard(t, p, "E1", "Roofer")

	_, err = p.AssignEmployee(ctx, "E1", project.ID, "Installer")
	require.NoError(t, err)
	updated, err := p.AssignEmployee(ctx, "E1", project.ID, "Installer")
	require.NoError(t, err)
	assert.Len(t, updated.AssignedEmployees, 1)
	assert.Len(t, bus.GetEvents(string(events.EmployeeAssigned)), 1)

	employee, err := store.GetEmployee(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, employee.HasProject(project.ID))

	updated, err = p.UnassignEmployee(ctx, "E1", project.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.AssignedEmployees)
	employee, err = store.GetEmployee(ctx, "E1")
	require.NoError(t, err)
	assert.Empty(t, employee.CurrentProjectIDs)
	assert.Equal(t, crm.Available, employee.Availability)
	assert.Len(t, bus.GetEvents(string(events.EmployeeUnassigned)), 1)

	_, err = p.AssignEmployee(ctx, "E404", project.ID, "Installer")
	assert.ErrorIs(t, err, crm.ErrEmployeeNotFound)
}

func TestSyncEmitsCompletion(t *testing.T) {
	ctx := context.Background()
	p, _, bus := newPipeline(t)
	_, err := p.CaptureLead(ctx, hillLead())
	require.NoError(t, err)

	require.NoError(t, p.SyncCustomer(ctx, "CUST-L1"))
	assert.ErrorIs(t, p.SyncProject(ctx, "PRJ-404"), crm.ErrProjectNotFound)
	assert.ErrorIs(t, p.SyncEmployee(ctx, "E404"), crm.ErrEmployeeNotFound)

	completed := bus.GetEvents(string(events.SyncCompleted))
	require.Len(t, completed, 3)
	first := completed[0].Payload.(events.SyncCompletedPayload)
	assert.Equal(t, "customer", first.Entity)
	assert.True(t, first.Success)
	assert.False(t, completed[1].Payload.(events.SyncCompletedPayload).Success)
	assert.Len(t, bus.GetEvents("^sync:(customer|project|employee)$"), 3)
}
