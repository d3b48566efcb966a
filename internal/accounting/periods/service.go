package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
)

// Service manages the accounting calendar.
type Service struct {
	repo   Repository
	bus    events.Emitter
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewService wires a period service. bus and logger may be nil.
func NewService(repo Repository, bus events.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bus: bus, logger: logger, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateFiscalPeriod validates and stores a new period.
func (s *Service) CreateFiscalPeriod(ctx context.Context, input CreateInput) (FiscalPeriod, error) {
	period, err := s.build(ctx, input)
	if err != nil {
		return FiscalPeriod{}, err
	}
	if err := s.repo.Insert(ctx, period); err != nil {
		if errors.Is(err, shared.ErrDuplicatePeriod) {
			return FiscalPeriod{}, duplicate(period.Key())
		}
		return FiscalPeriod{}, err
	}
	s.created(ctx, period)
	return period, nil
}

func (s *Service) build(ctx context.Context, input CreateInput) (FiscalPeriod, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return FiscalPeriod{}, err
	}
	if input.Period > input.Type.MaxPeriod() {
		return FiscalPeriod{}, shared.Invalid("period", "must be between 1 and %d for %s periods", input.Type.MaxPeriod(), input.Type)
	}
	start, end := truncateDay(input.StartDate), truncateDay(input.EndDate)
	if !start.Before(end) {
		return FiscalPeriod{}, shared.Invalid("endDate", "start date must be before end date")
	}
	key := Key{Type: input.Type, Year: input.Year, Period: input.Period}
	if _, err := s.repo.FindByKey(ctx, key); err == nil {
		return FiscalPeriod{}, duplicate(key)
	} else if !errors.Is(err, shared.ErrPeriodNotFound) {
		return FiscalPeriod{}, err
	}
	sameType, err := s.repo.List(ctx, ListFilter{Type: input.Type})
	if err != nil {
		return FiscalPeriod{}, err
	}
	for _, existing := range sameType {
		if existing.Overlaps(start, end) {
			return FiscalPeriod{}, shared.Invalid("startDate", "overlaps existing period %s", existing.Name)
		}
	}
	ts := s.now().UTC()
	return FiscalPeriod{
		ID:        uuid.New(),
		Name:      input.Name,
		Type:      input.Type,
		Year:      input.Year,
		Period:    input.Period,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// GetCurrentFiscalPeriod returns the open period covering now, or
// shared.ErrPeriodNotFound.
func (s *Service) GetCurrentFiscalPeriod(ctx context.Context) (FiscalPeriod, error) {
	return s.repo.FindOpenPeriodByDate(ctx, s.now())
}

// EnsureCurrentPeriod returns the current period, creating the monthly
// period for now when none exists. Concurrent callers share one creation.
func (s *Service) EnsureCurrentPeriod(ctx context.Context) (FiscalPeriod, error) {
	current, err := s.GetCurrentFiscalPeriod(ctx)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, shared.ErrPeriodNotFound) {
		return FiscalPeriod{}, err
	}
	now := s.now().UTC()
	input := MonthInput(now.Year(), now.Month())
	key := Key{Type: input.Type, Year: input.Year, Period: input.Period}
	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		if p, err := s.repo.FindByKey(ctx, key); err == nil {
			return p, nil
		}
		s.logger.Info("creating default fiscal period", slog.String("name", input.Name))
		return s.CreateFiscalPeriod(ctx, input)
	})
	select {
	case <-ctx.Done():
		return FiscalPeriod{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return FiscalPeriod{}, res.Err
		}
		period := res.Val.(FiscalPeriod)
		if !period.IsOpen() {
			return FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: period.ID.String(), Reason: "current period is closed"}
		}
		return period, nil
	}
}

// OpenPeriodForDate returns the narrowest open period containing date. Only
// a date in the current month may create its period on demand.
func (s *Service) OpenPeriodForDate(ctx context.Context, date time.Time) (FiscalPeriod, error) {
	period, err := s.repo.FindOpenPeriodByDate(ctx, date)
	if err == nil {
		return period, nil
	}
	if !errors.Is(err, shared.ErrPeriodNotFound) {
		return FiscalPeriod{}, err
	}
	day, now := date.UTC(), s.now().UTC()
	if day.Year() == now.Year() && day.Month() == now.Month() {
		return s.EnsureCurrentPeriod(ctx)
	}
	return FiscalPeriod{}, &shared.FiscalPeriodError{Reason: "no open period contains " + day.Format(time.DateOnly)}
}

// GenerateFiscalPeriodsForYear creates every missing month, quarter and
// year period for year and returns all 17 periods.
func (s *Service) GenerateFiscalPeriodsForYear(ctx context.Context, year int) ([]FiscalPeriod, error) {
	if year < 1900 || year > 9999 {
		return nil, shared.Invalid("year", "must be between 1900 and 9999")
	}
	inputs := make([]CreateInput, 0, 17)
	for m := time.January; m <= time.December; m++ {
		inputs = append(inputs, MonthInput(year, m))
	}
	for q := 1; q <= 4; q++ {
		inputs = append(inputs, QuarterInput(year, q))
	}
	inputs = append(inputs, YearInput(year))

	all := make([]FiscalPeriod, 0, len(inputs))
	var missing []FiscalPeriod
	for _, input := range inputs {
		key := Key{Type: input.Type, Year: input.Year, Period: input.Period}
		existing, err := s.repo.FindByKey(ctx, key)
		if err == nil {
			all = append(all, existing)
			continue
		}
		if !errors.Is(err, shared.ErrPeriodNotFound) {
			return nil, err
		}
		period, err := s.build(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", input.Name, err)
		}
		missing = append(missing, period)
		all = append(all, period)
	}
	if len(missing) > 0 {
		if err := s.repo.InsertMany(ctx, missing); err != nil {
			return nil, err
		}
		for _, p := range missing {
			s.created(ctx, p)
		}
	}
	s.logger.Info("fiscal periods generated",
		slog.Int("year", year),
		slog.Int("created", len(missing)),
		slog.Int("existing", len(all)-len(missing)),
	)
	return all, nil
}

// ClosePeriod marks a period closed. Closing is irreversible.
func (s *Service) ClosePeriod(ctx context.Context, id uuid.UUID) (FiscalPeriod, error) {
	period, err := s.repo.Get(ctx, id)
	if err != nil {
		return FiscalPeriod{}, err
	}
	if period.IsClosed {
		return FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: id.String(), Reason: "already closed"}
	}
	ts := s.now().UTC()
	period.IsClosed = true
	period.IsActive = false
	period.ClosedAt = &ts
	period.UpdatedAt = ts
	if err := s.repo.Update(ctx, period); err != nil {
		return FiscalPeriod{}, err
	}
	s.logger.Info("fiscal period closed", slog.String("period_id", id.String()), slog.String("name", period.Name))
	return period, nil
}

// EnsureOpenForPosting fails with a FiscalPeriodError unless the period
// exists, is active and is not closed.
func (s *Service) EnsureOpenForPosting(ctx context.Context, id uuid.UUID) (FiscalPeriod, error) {
	period, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: id.String(), Reason: "not found"}
		}
		return FiscalPeriod{}, err
	}
	switch {
	case period.IsClosed:
		return FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: id.String(), Reason: "period is closed"}
	case !period.IsActive:
		return FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: id.String(), Reason: "period is not active"}
	}
	return period, nil
}

// Get fetches a period by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (FiscalPeriod, error) {
	return s.repo.Get(ctx, id)
}

// List returns periods ordered by type, year and period.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]FiscalPeriod, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) created(ctx context.Context, p FiscalPeriod) {
	s.logger.Info("fiscal period created",
		slog.String("period_id", p.ID.String()),
		slog.String("name", p.Name),
		slog.String("type", string(p.Type)),
	)
	if s.bus == nil {
		return
	}
	s.bus.Emit(ctx, events.FiscalPeriodCreatedPayload{
		PeriodID: p.ID.String(),
		Name:     p.Name,
		Type:     string(p.Type),
		Year:     p.Year,
		Period:   p.Period,
	})
}

func duplicate(key Key) error {
	return fmt.Errorf("%w: %w", shared.ErrDuplicatePeriod,
		shared.Invalid("period", "fiscal period %s already exists", key))
}
