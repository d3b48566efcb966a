package accounts

import (
	"context"
	"fmt"
)

// Lookup is the read-only chart port consumed by the journal engine.
type Lookup interface {
	GetByCode(ctx context.Context, code string) (Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ Lookup = (*Service)(nil)

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// GetByCode returns the account for code or shared.ErrAccountNotFound.
func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	a, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Account{}, fmt.Errorf("account %s: %w", code, err)
	}
	return a, nil
}
