// Package lru keeps recently used routes and their stop lists in process.
package lru

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/essodond/Evexticket/internal/domain"
)

// RouteSource is the backing store of the cache.
type RouteSource interface {
	GetRoute(ctx context.Context, id int64) (domain.Route, error)
	ListStops(ctx context.Context, routeID int64) ([]domain.Stop, error)
}

type entry struct {
	route domain.Route
	stops domain.StopList
}

// Routes caches routes with their ordered stops. Entries are dropped by
// Invalidate when the catalog changes and expire after ttl regardless.
type Routes struct {
	src   RouteSource
	cache gcache.Cache
}

func NewRoutes(src RouteSource, size int, ttl time.Duration) *Routes {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Routes{
		src:   src,
		cache: gcache.New(size).LRU().Expiration(ttl).Build(),
	}
}

// RouteWithStops returns the route and its stop list.
//
// Returns:
//   - error: wraps the source's error, e.g. repository.ErrNotFound.
//   - error: domain.ErrDuplicateSequence if stored stops are inconsistent.
func (r *Routes) RouteWithStops(ctx context.Context, id int64) (domain.Route, domain.StopList, error) {
	const op = "lru.Routes.RouteWithStops"

	v, err := r.cache.Get(id)
	if err == nil {
		e := v.(entry)
		return e.route, e.stops, nil
	}
	if !errors.Is(err, gcache.KeyNotFoundError) {
		return domain.Route{}, domain.StopList{}, fmt.Errorf("%s: %w", op, err)
	}

	route, err := r.src.GetRoute(ctx, id)
	if err != nil {
		return domain.Route{}, domain.StopList{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := r.src.ListStops(ctx, id)
	if err != nil {
		return domain.Route{}, domain.StopList{}, fmt.Errorf("%s: %w", op, err)
	}

	stops, err := domain.NewStopList(raw)
	if err != nil {
		return domain.Route{}, domain.StopList{}, fmt.Errorf("%s: %w", op, err)
	}

	_ = r.cache.Set(id, entry{route: route, stops: stops})

	return route, stops, nil
}

func (r *Routes) Invalidate(id int64) {
	r.cache.Remove(id)
}

func (r *Routes) Len() int {
	return r.cache.Len(false)
}
