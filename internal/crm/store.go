package crm

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
)

var (
	// ErrCustomerNotFound indicates the customer id is unknown.
	ErrCustomerNotFound = errors.New("crm: customer not found")
	// ErrEmployeeNotFound indicates the employee id is unknown.
	ErrEmployeeNotFound = errors.New("crm: employee not found")
	// ErrProjectNotFound indicates the project id is unknown.
	ErrProjectNotFound = errors.New("crm: project not found")
	// ErrDuplicateID indicates an insert collided with an existing id.
	ErrDuplicateID = errors.New("crm: duplicate id")
)

// Store persists the unified customer, employee and project records.
type Store interface {
	AddCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id string) (Customer, error)
	UpdateCustomer(ctx context.Context, id string, fn func(*Customer) error) (Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomers(ctx context.Context) ([]Customer, error)

	AddEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id string) (Employee, error)
	UpdateEmployee(ctx context.Context, id string, fn func(*Employee) error) (Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	ListEmployees(ctx context.Context) ([]Employee, error)

	AddProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	UpdateProject(ctx context.Context, id string, fn func(*Project) error) (Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]Project, error)
}

// MemoryStore keeps records ordered by id in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	customers *treemap.Map
	employees *treemap.Map
	projects  *treemap.Map
	now       func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: treemap.NewWithStringComparator(),
		employees: treemap.NewWithStringComparator(),
		projects:  treemap.NewWithStringComparator(),
		now:       time.Now,
	}
}

// WithNow overrides the clock used for UpdatedAt stamps.
func (s *MemoryStore) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *MemoryStore) AddCustomer(_ context.Context, c Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers.Get(c.ID); ok {
		return ErrDuplicateID
	}
	s.customers.Put(c.ID, cloneCustomer(c))
	return nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.customers.Get(id)
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return cloneCustomer(v.(Customer)), nil
}

func (s *MemoryStore) UpdateCustomer(_ context.Context, id string, fn func(*Customer) error) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.customers.Get(id)
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	c := cloneCustomer(v.(Customer))
	if err := fn(&c); err != nil {
		return Customer{}, err
	}
	c.ID = id
	c.UpdatedAt = s.now()
	s.customers.Put(id, c)
	return cloneCustomer(c), nil
}

func (s *MemoryStore) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers.Get(id); !ok {
		return ErrCustomerNotFound
	}
	s.customers.Remove(id)
	return nil
}

func (s *MemoryStore) ListCustomers(_ context.Context) ([]Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Customer, 0, s.customers.Size())
	for _, v := range s.customers.Values() {
		out = append(out, cloneCustomer(v.(Customer)))
	}
	return out, nil
}

func (s *MemoryStore) AddEmployee(_ context.Context, e Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees.Get(e.ID); ok {
		return ErrDuplicateID
	}
	s.employees.Put(e.ID, cloneEmployee(e))
	return nil
}

func (s *MemoryStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.employees.Get(id)
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return cloneEmployee(v.(Employee)), nil
}

func (s *MemoryStore) UpdateEmployee(_ context.Context, id string, fn func(*Employee) error) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.employees.Get(id)
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	e := cloneEmployee(v.(Employee))
	if err := fn(&e); err != nil {
		return Employee{}, err
	}
	e.ID = id
	e.UpdatedAt = s.now()
	s.employees.Put(id, e)
	return cloneEmployee(e), nil
}

func (s *MemoryStore) DeleteEmployee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees.Get(id); !ok {
		return ErrEmployeeNotFound
	}
	s.employees.Remove(id)
	return nil
}

func (s *MemoryStore) ListEmployees(_ context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Employee, 0, s.employees.Size())
	for _, v := range s.employees.Values() {
		out = append(out, cloneEmployee(v.(Employee)))
	}
	return out, nil
}

func (s *MemoryStore) AddProject(_ context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects.Get(p.ID); ok {
		return ErrDuplicateID
	}
	s.projects.Put(p.ID, cloneProject(p))
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.projects.Get(id)
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return cloneProject(v.(Project)), nil
}

func (s *MemoryStore) UpdateProject(_ context.Context, id string, fn func(*Project) error) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.projects.Get(id)
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	p := cloneProject(v.(Project))
	if err := fn(&p); err != nil {
		return Project{}, err
	}
	p.ID = id
	p.UpdatedAt = s.now()
	s.projects.Put(id, p)
	return cloneProject(p), nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects.Get(id); !ok {
		return ErrProjectNotFound
	}
	s.projects.Remove(id)
	return nil
}

func (s *MemoryStore) ListProjects(_ context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, s.projects.Size())
	for _, v := range s.projects.Values() {
		out = append(out, cloneProject(v.(Project)))
	}
	return out, nil
}

// LinkProject appends projectID to the customer's project list when missing.
func LinkProject(c *Customer, projectID string) bool {
	if contains(c.ProjectIDs, projectID) {
		return false
	}
	c.ProjectIDs = append(c.ProjectIDs, projectID)
	return true
}

// UnlinkProject removes projectID from the customer's project list.
func UnlinkProject(c *Customer, projectID string) {
	c.ProjectIDs = without(c.ProjectIDs, projectID)
}

// AttachProject adds projectID to the employee and marks them assigned.
func AttachProject(e *Employee, projectID string) {
	if !contains(e.CurrentProjectIDs, projectID) {
		e.CurrentProjectIDs = append(e.CurrentProjectIDs, projectID)
	}
	e.Availability = Assigned
}

// DetachProject removes projectID from the employee, freeing them when no
// projects remain.
func DetachProject(e *Employee, projectID string) {
	e.CurrentProjectIDs = without(e.CurrentProjectIDs, projectID)
	if len(e.CurrentProjectIDs) == 0 {
		e.Availability = Available
	}
}

// HasProject reports whether the employee carries projectID.
func (e Employee) HasProject(projectID string) bool { return contains(e.CurrentProjectIDs, projectID) }

// HasProject reports whether the customer lists projectID.
func (c Customer) HasProject(projectID string) bool { return contains(c.ProjectIDs, projectID) }

func cloneCustomer(c Customer) Customer {
	c.ProjectIDs = slices.Clone(c.ProjectIDs)
	if c.Address != nil {
		addr := *c.Address
		c.Address = &addr
	}
	if c.CreditLimit != nil {
		limit := *c.CreditLimit
		c.CreditLimit = &limit
	}
	return c
}

func cloneEmployee(e Employee) Employee {
	e.CurrentProjectIDs = slices.Clone(e.CurrentProjectIDs)
	e.Skills = slices.Clone(e.Skills)
	e.Certifications = slices.Clone(e.Certifications)
	return e
}

func cloneProject(p Project) Project {
	p.AssignedEmployees = slices.Clone(p.AssignedEmployees)
	if p.Address != nil {
		addr := *p.Address
		p.Address = &addr
	}
	return p
}

var _ Store = (*MemoryStore)(nil)
