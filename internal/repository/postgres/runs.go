package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essodond/Evexticket/internal/domain"
)

// RunRepo stores the dated instances of routes.
type RunRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RunRepo) With(db DB) *RunRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RunRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const runColumns = `id, route_id, date, is_active, available_seats, created_at`

func scanRun(row pgx.Row) (domain.Run, error) {
	var run domain.Run
	err := row.Scan(&run.ID, &run.RouteID, &run.Date, &run.Active, &run.AvailableSeats, &run.CreatedAt)
	return run, err
}

// Get returns the run of a route on a date.
//
// Returns:
//   - error: repository.ErrNotFound if no run exists for that date.
func (r *RunRepo) Get(ctx context.Context, routeID int64, date time.Time) (domain.Run, error) {
	const op = "postgres.RunRepo.Get"

	run, err := scanRun(r.handle().QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE route_id = $1 AND date = $2`,
		routeID, domain.CivilDate(date),
	))
	if err != nil {
		return domain.Run{}, wrapDBErr(op, err)
	}

	return run, nil
}

// Dates lists the dates within [from, to] that already have a run.
func (r *RunRepo) Dates(ctx context.Context, routeID int64, from, to time.Time) ([]time.Time, error) {
	const op = "postgres.RunRepo.Dates"

	rows, err := r.handle().Query(ctx,
		`SELECT date FROM runs
		 WHERE route_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date`,
		routeID, domain.CivilDate(from), domain.CivilDate(to),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateMany creates a run per date unless one already exists and reports
// how many rows were inserted.
func (r *RunRepo) CreateMany(ctx context.Context, routeID int64, dates []time.Time, seats int) (int, error) {
	const op = "postgres.RunRepo.CreateMany"

	if len(dates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, d := range dates {
		batch.Queue(
			`INSERT INTO runs(route_id, date, is_active, available_seats)
			 VALUES ($1, $2, TRUE, $3)
			 ON CONFLICT (route_id, date) DO NOTHING`,
			routeID, domain.CivilDate(d), seats,
		)
	}

	br := r.handle().SendBatch(ctx, batch)
	defer br.Close()

	created := 0
	for range dates {
		tag, err := br.Exec()
		if err != nil {
			return created, wrapDBErr(op, err)
		}
		created += int(tag.RowsAffected())
	}

	return created, nil
}

// DeleteBefore removes the route's runs dated strictly before date and
// returns the dates it removed.
func (r *RunRepo) DeleteBefore(ctx context.Context, routeID int64, date time.Time) ([]time.Time, error) {
	const op = "postgres.RunRepo.DeleteBefore"

	rows, err := r.handle().Query(ctx,
		`DELETE FROM runs WHERE route_id = $1 AND date < $2 RETURNING date`,
		routeID, domain.CivilDate(date),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return dates, nil
}

// SetActive opens or closes the run of a route on a date. A missing run is
// created with seats available seats and the requested state.
func (r *RunRepo) SetActive(ctx context.Context, routeID int64, date time.Time, active bool, seats int) (domain.Run, error) {
	const op = "postgres.RunRepo.SetActive"

	run, err := scanRun(r.handle().QueryRow(ctx,
		`INSERT INTO runs(route_id, date, is_active, available_seats)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (route_id, date) DO UPDATE SET is_active = EXCLUDED.is_active
		 RETURNING `+runColumns,
		routeID, domain.CivilDate(date), active, seats,
	))
	if err != nil {
		return domain.Run{}, wrapDBErr(op, err)
	}

	return run, nil
}

// ActiveRouteIDs lists the routes that should carry runs.
func (r *RunRepo) ActiveRouteIDs(ctx context.Context) ([]int64, error) {
	const op = "postgres.RunRepo.ActiveRouteIDs"

	rows, err := r.handle().Query(ctx, `SELECT id FROM routes WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}
