package consistency

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
)

// StoreRepairer applies fixes directly to a crm.Store.
type StoreRepairer struct {
	store crm.Store
}

func NewStoreRepairer(store crm.Store) *StoreRepairer {
	return &StoreRepairer{store: store}
}

func (r *StoreRepairer) SetProjectCustomer(ctx context.Context, projectID, customerID string) error {
	if _, err := r.store.GetCustomer(ctx, customerID); err != nil {
		return err
	}
	_, err := r.store.UpdateProject(ctx, projectID, func(p *crm.Project) error {
		p.CustomerID = customerID
		return nil
	})
	return err
}

func (r *StoreRepairer) LinkCustomerProject(ctx context.Context, customerID, projectID string) error {
	_, err := r.store.UpdateCustomer(ctx, customerID, func(c *crm.Customer) error {
		if !crm.LinkProject(c, projectID) {
			return ErrNotRepairable
		}
		return nil
	})
	return err
}

func (r *StoreRepairer) ClearTerminationDate(ctx context.Context, employeeID string) error {
	_, err := r.store.UpdateEmployee(ctx, employeeID, func(e *crm.Employee) error {
		if e.Status != crm.EmployeeActive || e.TerminationDate.IsZero() {
			return ErrNotRepairable
		}
		e.TerminationDate = ""
		return nil
	})
	return err
}

var _ Repairer = (*StoreRepairer)(nil)

// LoadSnapshot reads the three collections concurrently.
func LoadSnapshot(ctx context.Context, store crm.Store) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := store.ListCustomers(ctx)
		snap.Customers = list
		return err
	})
	g.Go(func() error {
		list, err := store.ListEmployees(ctx)
		snap.Employees = list
		return err
	})
	g.Go(func() error {
		list, err := store.ListProjects(ctx)
		snap.Projects = list
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
