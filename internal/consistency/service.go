package consistency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/money"
)

// IssueType classifies a cross-record inconsistency.
type IssueType string

const (
	MissingReference    IssueType = "missing_reference"
	DataMismatch        IssueType = "data_mismatch"
	DuplicateEntry      IssueType = "duplicate_entry"
	ConstraintViolation IssueType = "constraint_violation"
)

// Severity ranks issues for triage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Entity names the collection an issue was found in.
type Entity string

const (
	EntityCustomer Entity = "customer"
	EntityEmployee Entity = "employee"
	EntityProject  Entity = "project"
)

// Fix identifies the mechanical repair an issue admits. The zero value
// means the issue needs a person.
type Fix string

const (
	FixNone             Fix = ""
	FixRelinkProject    Fix = "relink_project_customer"
	FixLinkCustomer     Fix = "link_customer_project"
	FixClearTermination Fix = "clear_termination_date"
)

// Issue is one finding of CheckDataConsistency. RelatedID carries the
// other side of the relationship, when there is one.
type Issue struct {
	Type                IssueType `json:"type"`
	Entity              Entity    `json:"entity"`
	EntityID            string    `json:"entityId"`
	RelatedID           string    `json:"relatedId,omitempty"`
	Description         string    `json:"description"`
	Severity            Severity  `json:"severity"`
	SuggestedResolution string    `json:"suggestedResolution"`
	Fix                 Fix       `json:"fix,omitempty"`
}

// Snapshot is the set of records checked together.
type Snapshot struct {
	Customers []crm.Customer `json:"customers"`
	Employees []crm.Employee `json:"employees"`
	Projects  []crm.Project  `json:"projects"`
}

// Report is the outcome of a consistency check.
type Report struct {
	IsConsistent bool      `json:"isConsistent"`
	Issues       []Issue   `json:"issues"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// HasCritical reports whether any issue is critical.
func (r Report) HasCritical() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// FixResult partitions the issues handed to AutoFixIssues.
type FixResult struct {
	Fixed   []Issue `json:"fixed"`
	Skipped []Issue `json:"skipped"`
	Failed  []Issue `json:"failed"`
}

// ErrNotRepairable is returned by a Repairer when the record no longer
// matches the issue, e.g. the employee is not Active any more.
var ErrNotRepairable = errors.New("consistency: issue no longer applies")

// Repairer applies the mechanical fixes.
type Repairer interface {
	SetProjectCustomer(ctx context.Context, projectID, customerID string) error
	LinkCustomerProject(ctx context.Context, customerID, projectID string) error
	ClearTerminationDate(ctx context.Context, employeeID string) error
}

// Service checks and repairs cross-module record consistency.
type Service struct {
	bus      events.Emitter
	repairer Repairer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. repairer may be nil, in which case every
// issue is skipped by AutoFixIssues.
func NewService(bus events.Emitter, repairer Repairer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bus: bus, repairer: repairer, logger: logger, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CheckDataConsistency cross-checks customers, employees and projects and
// announces the outcome on the bus.
func (s *Service) CheckDataConsistency(ctx context.Context, snap Snapshot) Report {
	customers := make(map[string]crm.Customer, len(snap.Customers))
	for _, c := range snap.Customers {
		if _, ok := customers[c.ID]; !ok {
			customers[c.ID] = c
		}
	}
	employees := make(map[string]crm.Employee, len(snap.Employees))
	for _, e := range snap.Employees {
		if _, ok := employees[e.ID]; !ok {
			employees[e.ID] = e
		}
	}
	projects := make(map[string]crm.Project, len(snap.Projects))
	for _, p := range snap.Projects {
		if _, ok := projects[p.ID]; !ok {
			projects[p.ID] = p
		}
	}

	issues := []Issue{}
	add := func(i Issue) { issues = append(issues, i) }

	for _, c := range snap.Customers {
		for _, pid := range c.ProjectIDs {
			p, ok := projects[pid]
			switch {
			case !ok:
				add(Issue{
					Type: MissingReference, Entity: EntityCustomer, EntityID: c.ID, RelatedID: pid,
					Description:         fmt.Sprintf("Customer references non-existent project: %s", pid),
					Severity:            SeverityMedium,
					SuggestedResolution: fmt.Sprintf("Remove project ID %s from customer %s or create the missing project", pid, c.ID),
				})
			case p.CustomerID != c.ID:
				add(Issue{
					Type: DataMismatch, Entity: EntityCustomer, EntityID: c.ID, RelatedID: pid,
					Description:         fmt.Sprintf("Project %s customer ID mismatch", pid),
					Severity:            SeverityHigh,
					SuggestedResolution: fmt.Sprintf("Update project %s customer ID to %s or remove from customer project list", pid, c.ID),
					Fix:                 FixRelinkProject,
				})
			}
		}
	}

	for _, p := range snap.Projects {
		c, ok := customers[p.CustomerID]
		switch {
		case !ok:
			add(Issue{
				Type: MissingReference, Entity: EntityProject, EntityID: p.ID, RelatedID: p.CustomerID,
				Description:         fmt.Sprintf("Project references non-existent customer: %s", p.CustomerID),
				Severity:            SeverityCritical,
				SuggestedResolution: fmt.Sprintf("Create customer %s or assign project to existing customer", p.CustomerID),
			})
		case !c.HasProject(p.ID):
			add(Issue{
				Type: DataMismatch, Entity: EntityProject, EntityID: p.ID, RelatedID: p.CustomerID,
				Description:         fmt.Sprintf("Customer %s doesn't reference project %s", p.CustomerID, p.ID),
				Severity:            SeverityMedium,
				SuggestedResolution: fmt.Sprintf("Add project %s to customer %s project list", p.ID, p.CustomerID),
				Fix:                 FixLinkCustomer,
			})
		}
	}

	for _, p := range snap.Projects {
		for _, a := range p.AssignedEmployees {
			e, ok := employees[a.EmployeeID]
			switch {
			case !ok:
				add(Issue{
					Type: MissingReference, Entity: EntityProject, EntityID: p.ID, RelatedID: a.EmployeeID,
					Description:         fmt.Sprintf("Project assigns non-existent employee: %s", a.EmployeeID),
					Severity:            SeverityHigh,
					SuggestedResolution: fmt.Sprintf("Remove employee assignment or create employee %s", a.EmployeeID),
				})
			case !e.HasProject(p.ID):
				add(Issue{
					Type: DataMismatch, Entity: EntityProject, EntityID: p.ID, RelatedID: a.EmployeeID,
					Description:         fmt.Sprintf("Employee %s not assigned to project %s", a.EmployeeID, p.ID),
					Severity:            SeverityMedium,
					SuggestedResolution: fmt.Sprintf("Add project %s to employee %s current projects", p.ID, a.EmployeeID),
				})
			}
		}
	}

	for _, dup := range duplicates(snap.Customers, func(c crm.Customer) string { return c.ID }) {
		add(duplicateIssue(EntityCustomer, dup, "customers"))
	}
	for _, dup := range duplicates(snap.Employees, func(e crm.Employee) string { return e.ID }) {
		add(duplicateIssue(EntityEmployee, dup, "employees"))
	}
	for _, dup := range duplicates(snap.Projects, func(p crm.Project) string { return p.ID }) {
		add(duplicateIssue(EntityProject, dup, "projects"))
	}

	for _, c := range snap.Customers {
		if c.CreditLimit != nil && c.OutstandingBalance.GreaterThan(*c.CreditLimit) {
			add(Issue{
				Type: ConstraintViolation, Entity: EntityCustomer, EntityID: c.ID,
				Description: fmt.Sprintf("Customer outstanding balance (%s) exceeds credit limit (%s)",
					money.USD(c.OutstandingBalance), money.USD(*c.CreditLimit)),
				Severity:            SeverityHigh,
				SuggestedResolution: "Contact customer for payment or increase credit limit",
			})
		}
	}
	for _, e := range snap.Employees {
		if e.Status == crm.EmployeeActive && !e.TerminationDate.IsZero() {
			add(Issue{
				Type: ConstraintViolation, Entity: EntityEmployee, EntityID: e.ID,
				Description:         fmt.Sprintf("Active employee has termination date: %s", e.TerminationDate),
				Severity:            SeverityMedium,
				SuggestedResolution: "Update employee status to Terminated or remove termination date",
				Fix:                 FixClearTermination,
			})
		}
	}

	report := Report{IsConsistent: len(issues) == 0, Issues: issues, CheckedAt: s.now().UTC()}
	kind := events.NotifySuccess
	switch {
	case report.HasCritical():
		kind = events.NotifyError
	case len(issues) > 0:
		kind = events.NotifyWarning
	}
	s.emit(ctx, events.Notification(fmt.Sprintf("Consistency check completed: %d issues found", len(issues)), kind))
	s.logger.Info("consistency check completed",
		slog.Int("customers", len(snap.Customers)),
		slog.Int("employees", len(snap.Employees)),
		slog.Int("projects", len(snap.Projects)),
		slog.Int("issues", len(issues)),
	)
	return report
}

// AutoFixIssues applies the mechanical repairs. Issues without a Fix, or
// whose record no longer matches, are skipped; repair errors are reported on
// the bus and collected in Failed.
func (s *Service) AutoFixIssues(ctx context.Context, issues []Issue) FixResult {
	result := FixResult{Fixed: []Issue{}, Skipped: []Issue{}, Failed: []Issue{}}
	for _, issue := range issues {
		if issue.Fix == FixNone || s.repairer == nil {
			result.Skipped = append(result.Skipped, issue)
			continue
		}
		err := s.apply(ctx, issue)
		switch {
		case err == nil:
			result.Fixed = append(result.Fixed, issue)
			s.emit(ctx, events.Notification("Auto-fixed: "+issue.Description, events.NotifySuccess))
		case errors.Is(err, ErrNotRepairable):
			result.Skipped = append(result.Skipped, issue)
		default:
			result.Failed = append(result.Failed, issue)
			s.logger.Warn("auto-fix failed", slog.String("description", issue.Description), slog.Any("error", err))
			s.emit(ctx, events.Failure("Failed to auto-fix issue: "+issue.Description, events.ErrorContext{
				Data:  issue,
				Error: err.Error(),
			}))
		}
	}
	s.logger.Info("auto-fix completed",
		slog.Int("fixed", len(result.Fixed)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("failed", len(result.Failed)),
	)
	return result
}

func (s *Service) apply(ctx context.Context, issue Issue) error {
	switch issue.Fix {
	case FixRelinkProject:
		return s.repairer.SetProjectCustomer(ctx, issue.RelatedID, issue.EntityID)
	case FixLinkCustomer:
		return s.repairer.LinkCustomerProject(ctx, issue.RelatedID, issue.EntityID)
	case FixClearTermination:
		return s.repairer.ClearTerminationDate(ctx, issue.EntityID)
	}
	return ErrNotRepairable
}

func (s *Service) emit(ctx context.Context, payload events.Payload) {
	if s.bus != nil {
		s.bus.Emit(ctx, payload)
	}
}

func duplicates[T any](items []T, id func(T) string) []string {
	seen := make(map[string]int, len(items))
	var out []string
	for _, item := range items {
		key := id(item)
		seen[key]++
		if seen[key] == 2 {
			out = append(out, key)
		}
	}
	return out
}

func duplicateIssue(entity Entity, id, plural string) Issue {
	return Issue{
		Type: DuplicateEntry, Entity: entity, EntityID: id,
		Description:         fmt.Sprintf("Duplicate %s ID: %s", entity, id),
		Severity:            SeverityCritical,
		SuggestedResolution: fmt.Sprintf("Merge duplicate %s or assign unique IDs", plural),
	}
}
