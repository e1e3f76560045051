package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/manifest"
	"github.com/essodond/Evexticket/internal/repository"
)

type Store interface {
	Dashboard(ctx context.Context, today time.Time) (domain.Dashboard, error)
	TicketLines(ctx context.Context, f domain.TicketFilter) ([]domain.TicketLine, error)
}

type Catalog interface {
	GetRoute(ctx context.Context, id int64) (domain.Route, error)
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
}

type Service struct {
	store   Store
	catalog Catalog
	clock   clock.Clock
	now     func() time.Time
	logger  *slog.Logger
}

func New(store Store, catalog Catalog, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		clock:   clk,
		now:     time.Now,
		logger:  logger,
	}
}

// Dashboard returns marketplace totals. Staff only.
func (s *Service) Dashboard(ctx context.Context, caller domain.Identity) (domain.Dashboard, error) {
	const op = "service.reports.Dashboard"

	if !caller.Staff {
		return domain.Dashboard{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	d, err := s.store.Dashboard(ctx, s.clock.Today())
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

// ExportTickets renders the reservations matching f as a PDF. Company
// administrators may export their own company's tickets; staff may export
// anything.
//
// Returns:
//   - []byte: the PDF document.
//   - error: reports.ErrForbidden, reports.ErrInvalidRange.
func (s *Service) ExportTickets(ctx context.Context, caller domain.Identity, f domain.TicketFilter) ([]byte, error) {
	const op = "service.reports.ExportTickets"

	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRange)
	}

	if err := s.authorize(ctx, caller, f.CompanyID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lines, err := s.store.TicketLines(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pdf, err := manifest.RenderExport(manifest.Export{Filter: f, Lines: lines, Generated: s.now()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("tickets exported", "subject", caller.Subject, "tickets", len(lines))

	return pdf, nil
}

// RunManifest renders the boarding list of one run: every reservation that
// holds a seat on that date, plus those already completed.
func (s *Service) RunManifest(ctx context.Context, caller domain.Identity, routeID int64, date time.Time) ([]byte, error) {
	const op = "service.reports.RunManifest"

	route, err := s.catalog.GetRoute(ctx, routeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.authorize(ctx, caller, route.CompanyID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	date = domain.CivilDate(date)
	lines, err := s.store.TicketLines(ctx, domain.TicketFilter{From: date, To: date, RouteID: routeID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var aboard []domain.TicketLine
	company := ""
	for _, l := range lines {
		company = l.CompanyName
		if l.Reservation.Status.Occupies() || l.Reservation.Status == domain.StatusCompleted {
			aboard = append(aboard, l)
		}
	}

	pdf, err := manifest.RenderRun(manifest.Run{
		Route:     route,
		Date:      date,
		Company:   company,
		Lines:     aboard,
		Generated: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pdf, nil
}

// authorize lets staff through, and company administrators for their own
// company. A company-wide view requires staff.
func (s *Service) authorize(ctx context.Context, caller domain.Identity, companyID int64) error {
	if caller.Staff {
		return nil
	}
	if caller.Anonymous() || companyID == 0 {
		return ErrForbidden
	}

	c, err := s.catalog.GetCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !c.CanManage(caller) {
		return ErrForbidden
	}
	return nil
}
