package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essodond/Evexticket/internal/domain"
)

// CatalogRepo stores companies, cities, routes and their stops.
type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateCompany inserts a company together with its administrators.
//
// Returns:
//   - int64: the company ID.
//   - error: repository.ErrConflict if the name is taken.
func (r *CatalogRepo) CreateCompany(ctx context.Context, c domain.Company) (int64, error) {
	const op = "postgres.CatalogRepo.CreateCompany"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO companies(name, description, address, phone, email, website, logo, is_active, admin_user)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		c.Name, c.Description, c.Address, c.Phone, c.Email, c.Website, c.Logo, c.Active, c.LegacyAdminID,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if len(c.Admins) == 0 {
		return id, nil
	}

	batch := &pgx.Batch{}
	for _, a := range c.Admins {
		batch.Queue(
			`INSERT INTO company_admins(company_id, user_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			id, a,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// GetCompany loads a company and its administrators set.
//
// Returns:
//   - error: repository.ErrNotFound if the company does not exist.
func (r *CatalogRepo) GetCompany(ctx context.Context, id int64) (domain.Company, error) {
	const op = "postgres.CatalogRepo.GetCompany"

	db := r.handle()

	var c domain.Company
	err := db.QueryRow(ctx,
		`SELECT c.id, c.name, c.description, c.address, c.phone, c.email, c.website, c.logo,
		        c.is_active, c.admin_user, c.created_at,
		        COALESCE(array_agg(a.user_id ORDER BY a.user_id) FILTER (WHERE a.user_id IS NOT NULL), '{}')
		 FROM companies c
		 LEFT JOIN company_admins a ON a.company_id = c.id
		 WHERE c.id = $1
		 GROUP BY c.id`,
		id,
	).Scan(
		&c.ID, &c.Name, &c.Description, &c.Address, &c.Phone, &c.Email, &c.Website, &c.Logo,
		&c.Active, &c.LegacyAdminID, &c.CreatedAt,
		&c.Admins,
	)
	if err != nil {
		return domain.Company{}, wrapDBErr(op, err)
	}

	c.NormalizeAdmins()

	return c, nil
}

// AddCompanyAdmin grants userID administration of the company and fills the
// legacy single-admin column when it is empty.
func (r *CatalogRepo) AddCompanyAdmin(ctx context.Context, companyID int64, userID string) error {
	const op = "postgres.CatalogRepo.AddCompanyAdmin"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO company_admins(company_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		companyID, userID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE companies SET admin_user = $2
		 WHERE id = $1 AND admin_user = ''`,
		companyID, userID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// CreateCity inserts a city.
//
// Returns:
//   - error: repository.ErrConflict if a city with the same name exists.
func (r *CatalogRepo) CreateCity(ctx context.Context, c domain.City) (int64, error) {
	const op = "postgres.CatalogRepo.CreateCity"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO cities(name, region, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		c.Name, c.Region, c.Active,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) ListCities(ctx context.Context, activeOnly bool) ([]domain.City, error) {
	const op = "postgres.CatalogRepo.ListCities"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, region, is_active
		 FROM cities
		 WHERE is_active OR NOT $1
		 ORDER BY name`,
		activeOnly,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.Active); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateRoute inserts a route and its stops.
//
// Returns:
//   - int64: the route ID.
//   - error: repository.ErrNotFound if the company or a city does not exist.
//   - error: repository.ErrConflict if two stops share a sequence.
func (r *CatalogRepo) CreateRoute(ctx context.Context, route domain.Route, stops []domain.Stop) (int64, error) {
	const op = "postgres.CatalogRepo.CreateRoute"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO routes(company_id, departure_city_id, arrival_city_id, departure_time, arrival_time,
		                    price, duration_min, bus_type, capacity, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		route.CompanyID, route.DepartureCityID, route.ArrivalCityID, route.DepartureTime, route.ArrivalTime,
		route.Price, route.DurationMin, string(route.BusType), route.Capacity, route.Active,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if err := insertStops(ctx, db, id, stops); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// ReplaceStops deletes the route's stops and inserts the given ones.
// Reservations that referenced a deleted stop keep the row with a NULL
// reference.
func (r *CatalogRepo) ReplaceStops(ctx context.Context, routeID int64, stops []domain.Stop) error {
	const op = "postgres.CatalogRepo.ReplaceStops"

	db := r.handle()

	if _, err := db.Exec(ctx, `DELETE FROM stops WHERE route_id = $1`, routeID); err != nil {
		return wrapDBErr(op, err)
	}

	if err := insertStops(ctx, db, routeID, stops); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func insertStops(ctx context.Context, db DB, routeID int64, stops []domain.Stop) error {
	if len(stops) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stops {
		batch.Queue(
			`INSERT INTO stops(route_id, city_id, sequence, segment_price)
			 VALUES ($1, $2, $3, $4)`,
			routeID, s.CityID, s.Sequence, s.SegmentPrice,
		)
	}

	return db.SendBatch(ctx, batch).Close()
}

// GetRoute loads a route with its city names.
//
// Returns:
//   - error: repository.ErrNotFound if the route does not exist.
func (r *CatalogRepo) GetRoute(ctx context.Context, id int64) (domain.Route, error) {
	const op = "postgres.CatalogRepo.GetRoute"

	route, err := scanRoute(r.handle().QueryRow(ctx,
		`SELECT `+routeColumns+routeFrom+` WHERE r.id = $1`,
		id,
	))
	if err != nil {
		return domain.Route{}, wrapDBErr(op, err)
	}

	return route, nil
}

// ListStops returns the route's stops ordered by sequence.
func (r *CatalogRepo) ListStops(ctx context.Context, routeID int64) ([]domain.Stop, error) {
	const op = "postgres.CatalogRepo.ListStops"

	rows, err := r.handle().Query(ctx,
		`SELECT `+stopColumns+`
		 FROM stops s
		 JOIN cities c ON c.id = s.city_id
		 WHERE s.route_id = $1
		 ORDER BY s.sequence`,
		routeID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListRoutes lists a company's routes, or every route when companyID is 0.
func (r *CatalogRepo) ListRoutes(ctx context.Context, companyID int64, activeOnly bool) ([]domain.Route, error) {
	const op = "postgres.CatalogRepo.ListRoutes"

	rows, err := r.handle().Query(ctx,
		`SELECT `+routeColumns+routeFrom+`
		 WHERE ($1 = 0 OR r.company_id = $1)
		   AND (r.is_active OR NOT $2)
		 ORDER BY r.departure_time, r.id`,
		companyID, activeOnly,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, route)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// SetRouteActive toggles whether a route is bookable.
//
// Returns:
//   - error: repository.ErrNotFound if the route does not exist.
func (r *CatalogRepo) SetRouteActive(ctx context.Context, id int64, active bool) error {
	const op = "postgres.CatalogRepo.SetRouteActive"

	tag, err := r.handle().Exec(ctx, `UPDATE routes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}
