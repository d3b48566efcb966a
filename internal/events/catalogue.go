package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
)

// Name identifies an event in the catalogue.
type Name string

// Event names. New kinds must be added here together with a payload type.
const (
	CustomerCreated       Name = "customer:created"
	CustomerUpdated       Name = "customer:updated"
	CustomerDeleted       Name = "customer:deleted"
	CustomerStatusChanged Name = "customer:status-changed"

	EmployeeHired                Name = "employee:hired"
	EmployeeUpdated              Name = "employee:updated"
	EmployeeDeleted              Name = "employee:deleted"
	EmployeeAssigned             Name = "employee:assigned"
	EmployeeUnassigned           Name = "employee:unassigned"
	EmployeeCertificationUpdated Name = "employee:certification-updated"

	ProjectCreated            Name = "project:created"
	ProjectUpdated            Name = "project:updated"
	ProjectDeleted            Name = "project:deleted"
	ProjectStatusChanged      Name = "project:status-changed"
	ProjectMilestoneCompleted Name = "project:milestone-completed"

	LeadCreated   Name = "lead:created"
	LeadConverted Name = "lead:converted"

	OpportunityCreated Name = "opportunity:created"
	OpportunityWon     Name = "opportunity:won"
	OpportunityLost    Name = "opportunity:lost"

	TrainingEnrolled     Name = "training:enrolled"
	TrainingCompleted    Name = "training:completed"
	CertificationExpired Name = "certification:expired"

	InvoiceCreated Name = "invoice:created"
	InvoiceSent    Name = "invoice:sent"
	InvoicePaid    Name = "invoice:paid"
	InvoiceOverdue Name = "invoice:overdue"

	DocumentUploaded Name = "document:uploaded"
	DocumentShared   Name = "document:shared"
	ContractSigned   Name = "contract:signed"

	MaterialAllocated Name = "material:allocated"
	MaterialDelivered Name = "material:delivered"
	MaterialLowStock  Name = "material:low-stock"

	JobCostAdded   Name = "job-cost:added"
	JobCostUpdated Name = "job-cost:updated"

	PermitApplied  Name = "permit:applied"
	PermitApproved Name = "permit:approved"
	PermitExpired  Name = "permit:expired"

	InspectionScheduled Name = "inspection:scheduled"
	InspectionCompleted Name = "inspection:completed"

	SyncCustomer  Name = "sync:customer"
	SyncEmployee  Name = "sync:employee"
	SyncProject   Name = "sync:project"
	SyncCompleted Name = "sync:completed"

	SystemBackup       Name = "system:backup"
	SystemError        Name = "system:error"
	SystemNotification Name = "system:notification"

	FiscalPeriodCreated  Name = "accounting:fiscal-period-created"
	JournalEntryCreated  Name = "accounting:journal-entry-created"
	JournalEntryPosted   Name = "accounting:journal-entry-posted"
	JournalEntryReversed Name = "accounting:journal-entry-reversed"
)

// Catalogue lists every known event name in declaration order.
var Catalogue = []Name{
	CustomerCreated, CustomerUpdated, CustomerDeleted, CustomerStatusChanged,
	EmployeeHired, EmployeeUpdated, EmployeeDeleted, EmployeeAssigned,
	EmployeeUnassigned, EmployeeCertificationUpdated, ProjectCreated, ProjectUpdated,
	ProjectDeleted, ProjectStatusChanged, ProjectMilestoneCompleted, LeadCreated,
	LeadConverted, OpportunityCreated, OpportunityWon, OpportunityLost,
	TrainingEnrolled, TrainingCompleted, CertificationExpired, InvoiceCreated,
	InvoiceSent, InvoicePaid, InvoiceOverdue, DocumentUploaded,
	DocumentShared, ContractSigned, MaterialAllocated, MaterialDelivered,
	MaterialLowStock, JobCostAdded, JobCostUpdated, PermitApplied,
	PermitApproved, PermitExpired, InspectionScheduled, InspectionCompleted,
	SyncCustomer, SyncEmployee, SyncProject, SyncCompleted,
	SystemBackup, SystemError, SystemNotification, FiscalPeriodCreated,
	JournalEntryCreated, JournalEntryPosted, JournalEntryReversed,
}

// Known reports whether name is part of the catalogue.
func Known(name Name) bool {
	for _, n := range Catalogue {
		if n == name {
			return true
		}
	}
	return false
}

// Payload is implemented only by the payload types declared in this package.
type Payload interface {
	EventName() Name
	sealed()
}

type catalogued struct{}

func (catalogued) sealed() {}

// NotificationType classifies user-facing notifications.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
	NotifySuccess NotificationType = "success"
)

// InspectionResult is the outcome of a site inspection.
type InspectionResult string

const (
	InspectionPassed InspectionResult = "Passed"
	InspectionFailed InspectionResult = "Failed"
)

type CustomerCreatedPayload struct {
	catalogued
	Customer crm.Customer `json:"customer"`
}

type CustomerUpdatedPayload struct {
	catalogued
	ID      string         `json:"id"`
	Updates map[string]any `json:"updates"`
}

type CustomerDeletedPayload struct {
	catalogued
	ID string `json:"id"`
}

type CustomerStatusChangedPayload struct {
	catalogued
	ID     string             `json:"id"`
	Status crm.CustomerStatus `json:"status"`
}

type EmployeeHiredPayload struct {
	catalogued
	Employee crm.Employee `json:"employee"`
}

type EmployeeUpdatedPayload struct {
	catalogued
	ID      string         `json:"id"`
	Updates map[string]any `json:"updates"`
}

type EmployeeDeletedPayload struct {
	catalogued
	ID string `json:"id"`
}

type EmployeeAssignedPayload struct {
	catalogued
	EmployeeID string `json:"employeeId"`
	ProjectID  string `json:"projectId"`
	Role       string `json:"role"`
}

type EmployeeUnassignedPayload struct {
	catalogued
	EmployeeID string `json:"employeeId"`
	ProjectID  string `json:"projectId"`
}

type EmployeeCertificationUpdatedPayload struct {
	catalogued
	EmployeeID    string `json:"employeeId"`
	Certification string `json:"certification"`
}

type ProjectCreatedPayload struct {
	catalogued
	Project crm.Project `json:"project"`
}

type ProjectUpdatedPayload struct {
	catalogued
	ID      string         `json:"id"`
	Updates map[string]any `json:"updates"`
}

type ProjectDeletedPayload struct {
	catalogued
	ID string `json:"id"`
}

type ProjectStatusChangedPayload struct {
	catalogued
	ID     string            `json:"id"`
	Status crm.ProjectStatus `json:"status"`
}

type ProjectMilestoneCompletedPayload struct {
	catalogued
	ProjectID   string `json:"projectId"`
	MilestoneID string `json:"milestoneId"`
}

type LeadCreatedPayload struct {
	catalogued
	Lead crm.Lead `json:"lead"`
}

type LeadConvertedPayload struct {
	catalogued
	LeadID     string `json:"leadId"`
	CustomerID string `json:"customerId"`
}

type OpportunityCreatedPayload struct {
	catalogued
	OpportunityID string          `json:"opportunityId"`
	CustomerID    string          `json:"customerId"`
	Value         decimal.Decimal `json:"value"`
}

type OpportunityWonPayload struct {
	catalogued
	OpportunityID string `json:"opportunityId"`
	ProjectID     string `json:"projectId"`
}

type OpportunityLostPayload struct {
	catalogued
	OpportunityID string `json:"opportunityId"`
	Reason        string `json:"reason"`
}

type TrainingEnrolledPayload struct {
	catalogued
	EmployeeID string `json:"employeeId"`
	CourseID   string `json:"courseId"`
}

type TrainingCompletedPayload struct {
	catalogued
	EmployeeID string   `json:"employeeId"`
	CourseID   string   `json:"courseId"`
	Score      *float64 `json:"score,omitempty"`
}

type CertificationExpiredPayload struct {
	catalogued
	EmployeeID      string `json:"employeeId"`
	CertificationID string `json:"certificationId"`
}

type InvoiceCreatedPayload struct {
	catalogued
	InvoiceID  string `json:"invoiceId"`
	CustomerID string `json:"customerId"`
	ProjectID  string `json:"projectId,omitempty"`
}

type InvoiceSentPayload struct {
	catalogued
	InvoiceID string `json:"invoiceId"`
}

type InvoicePaidPayload struct {
	catalogued
	InvoiceID string          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
}

type InvoiceOverduePayload struct {
	catalogued
	InvoiceID string `json:"invoiceId"`
}

type DocumentUploadedPayload struct {
	catalogued
	DocumentID string `json:"documentId"`
	CustomerID string `json:"customerId,omitempty"`
	ProjectID  string `json:"projectId,omitempty"`
}

type DocumentSharedPayload struct {
	catalogued
	DocumentID string   `json:"documentId"`
	SharedWith []string `json:"sharedWith"`
}

type ContractSignedPayload struct {
	catalogued
	ContractID string `json:"contractId"`
	ProjectID  string `json:"projectId"`
}

type MaterialAllocatedPayload struct {
	catalogued
	MaterialID string          `json:"materialId"`
	ProjectID  string          `json:"projectId"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type MaterialDeliveredPayload struct {
	catalogued
	MaterialID string          `json:"materialId"`
	ProjectID  string          `json:"projectId"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type MaterialLowStockPayload struct {
	catalogued
	MaterialID   string          `json:"materialId"`
	CurrentStock decimal.Decimal `json:"currentStock"`
	MinimumStock decimal.Decimal `json:"minimumStock"`
}

// CostEntry is a job-costing line attached to a project.
type CostEntry struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	Date        time.Time       `json:"date"`
}

type JobCostAddedPayload struct {
	catalogued
	ProjectID string    `json:"projectId"`
	CostEntry CostEntry `json:"costEntry"`
}

type JobCostUpdatedPayload struct {
	catalogued
	ProjectID   string         `json:"projectId"`
	CostEntryID string         `json:"costEntryId"`
	Updates     map[string]any `json:"updates"`
}

type PermitAppliedPayload struct {
	catalogued
	ProjectID string `json:"projectId"`
	PermitID  string `json:"permitId"`
}

type PermitApprovedPayload struct {
	catalogued
	ProjectID string `json:"projectId"`
	PermitID  string `json:"permitId"`
}

type PermitExpiredPayload struct {
	catalogued
	ProjectID string `json:"projectId"`
	PermitID  string `json:"permitId"`
}

type InspectionScheduledPayload struct {
	catalogued
	ProjectID    string `json:"projectId"`
	InspectionID string `json:"inspectionId"`
}

type InspectionCompletedPayload struct {
	catalogued
	ProjectID    string           `json:"projectId"`
	InspectionID string           `json:"inspectionId"`
	Result       InspectionResult `json:"result"`
}

type SyncCustomerPayload struct {
	catalogued
	CustomerID string `json:"customerId"`
}

type SyncEmployeePayload struct {
	catalogued
	EmployeeID string `json:"employeeId"`
}

type SyncProjectPayload struct {
	catalogued
	ProjectID string `json:"projectId"`
}

type SyncCompletedPayload struct {
	catalogued
	Entity   string `json:"entity"`
	EntityID string `json:"entityId"`
	Success  bool   `json:"success"`
}

type SystemBackupPayload struct {
	catalogued
	Timestamp time.Time `json:"timestamp"`
}

// ErrorContext bundles the failing event with its error for system:error.
type ErrorContext struct {
	Event Name   `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type SystemErrorPayload struct {
	catalogued
	Error   string       `json:"error"`
	Context ErrorContext `json:"context"`
}

type SystemNotificationPayload struct {
	catalogued
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

type FiscalPeriodCreatedPayload struct {
	catalogued
	PeriodID string `json:"periodId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Year     int    `json:"year"`
	Period   int    `json:"period"`
}

type JournalEntryCreatedPayload struct {
	catalogued
	EntryID      string          `json:"entryId"`
	Number       string          `json:"number"`
	Status       string          `json:"status"`
	SourceModule string          `json:"sourceModule"`
	Total        decimal.Decimal `json:"total"`
}

type JournalEntryPostedPayload struct {
	catalogued
	EntryID  string `json:"entryId"`
	Number   string `json:"number"`
	PostedBy string `json:"postedBy"`
}

type JournalEntryReversedPayload struct {
	catalogued
	EntryID         string `json:"entryId"`
	ReversalEntryID string `json:"reversalEntryId"`
	ReversalNumber  string `json:"reversalNumber"`
}

func (CustomerCreatedPayload) EventName() Name              { return CustomerCreated }
func (CustomerUpdatedPayload) EventName() Name              { return CustomerUpdated }
func (CustomerDeletedPayload) EventName() Name              { return CustomerDeleted }
func (CustomerStatusChangedPayload) EventName() Name        { return CustomerStatusChanged }
func (EmployeeHiredPayload) EventName() Name                { return EmployeeHired }
func (EmployeeUpdatedPayload) EventName() Name              { return EmployeeUpdated }
func (EmployeeDeletedPayload) EventName() Name              { return EmployeeDeleted }
func (EmployeeAssignedPayload) EventName() Name             { return EmployeeAssigned }
func (EmployeeUnassignedPayload) EventName() Name           { return EmployeeUnassigned }
func (EmployeeCertificationUpdatedPayload) EventName() Name { return EmployeeCertificationUpdated }
func (ProjectCreatedPayload) EventName() Name               { return ProjectCreated }
func (ProjectUpdatedPayload) EventName() Name               { return ProjectUpdated }
func (ProjectDeletedPayload) EventName() Name               { return ProjectDeleted }
func (ProjectStatusChangedPayload) EventName() Name         { return ProjectStatusChanged }
func (ProjectMilestoneCompletedPayload) EventName() Name    { return ProjectMilestoneCompleted }
func (LeadCreatedPayload) EventName() Name                  { return LeadCreated }
func (LeadConvertedPayload) EventName() Name                { return LeadConverted }
func (OpportunityCreatedPayload) EventName() Name           { return OpportunityCreated }
func (OpportunityWonPayload) EventName() Name               { return OpportunityWon }
func (OpportunityLostPayload) EventName() Name              { return OpportunityLost }
func (TrainingEnrolledPayload) EventName() Name             { return TrainingEnrolled }
func (TrainingCompletedPayload) EventName() Name            { return TrainingCompleted }
func (CertificationExpiredPayload) EventName() Name         { return CertificationExpired }
func (InvoiceCreatedPayload) EventName() Name               { return InvoiceCreated }
func (InvoiceSentPayload) EventName() Name                  { return InvoiceSent }
func (InvoicePaidPayload) EventName() Name                  { return InvoicePaid }
func (InvoiceOverduePayload) EventName() Name               { return InvoiceOverdue }
func (DocumentUploadedPayload) EventName() Name             { return DocumentUploaded }
func (DocumentSharedPayload) EventName() Name               { return DocumentShared }
func (ContractSignedPayload) EventName() Name               { return ContractSigned }
func (MaterialAllocatedPayload) EventName() Name            { return MaterialAllocated }
func (MaterialDeliveredPayload) EventName() Name            { return MaterialDelivered }
func (MaterialLowStockPayload) EventName() Name             { return MaterialLowStock }
func (JobCostAddedPayload) EventName() Name                 { return JobCostAdded }
func (JobCostUpdatedPayload) EventName() Name               { return JobCostUpdated }
func (PermitAppliedPayload) EventName() Name                { return PermitApplied }
func (PermitApprovedPayload) EventName() Name               { return PermitApproved }
func (PermitExpiredPayload) EventName() Name                { return PermitExpired }
func (InspectionScheduledPayload) EventName() Name          { return InspectionScheduled }
func (InspectionCompletedPayload) EventName() Name          { return InspectionCompleted }
func (SyncCustomerPayload) EventName() Name                 { return SyncCustomer }
func (SyncEmployeePayload) EventName() Name                 { return SyncEmployee }
func (SyncProjectPayload) EventName() Name                  { return SyncProject }
func (SyncCompletedPayload) EventName() Name                { return SyncCompleted }
func (SystemBackupPayload) EventName() Name                 { return SystemBackup }
func (SystemErrorPayload) EventName() Name                  { return SystemError }
func (SystemNotificationPayload) EventName() Name           { return SystemNotification }
func (FiscalPeriodCreatedPayload) EventName() Name          { return FiscalPeriodCreated }
func (JournalEntryCreatedPayload) EventName() Name          { return JournalEntryCreated }
func (JournalEntryPostedPayload) EventName() Name           { return JournalEntryPosted }
func (JournalEntryReversedPayload) EventName() Name         { return JournalEntryReversed }

// Notification builds a system:notification payload.
func Notification(message string, kind NotificationType) SystemNotificationPayload {
	return SystemNotificationPayload{Message: message, Type: kind}
}

// Failure builds a system:error payload.
func Failure(message string, ctx ErrorContext) SystemErrorPayload {
	return SystemErrorPayload{Error: message, Context: ctx}
}
