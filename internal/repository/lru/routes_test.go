package lru

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
)

type source struct {
	routes map[int64]domain.Route
	stops  map[int64][]domain.Stop
	loads  int
}

func (s *source) GetRoute(_ context.Context, id int64) (domain.Route, error) {
	s.loads++
	r, ok := s.routes[id]
	if !ok {
		return domain.Route{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *source) ListStops(_ context.Context, routeID int64) ([]domain.Stop, error) {
	return s.stops[routeID], nil
}

func newSource() *source {
	return &source{
		routes: map[int64]domain.Route{1: {ID: 1, Capacity: 30, Active: true}},
		stops: map[int64][]domain.Stop{1: {
			{ID: 12, RouteID: 1, CityName: "Kara", Sequence: 2},
			{ID: 11, RouteID: 1, CityName: "Lomé", Sequence: 0},
		}},
	}
}

func TestRoutesCachesAndOrdersStops(t *testing.T) {
	src := newSource()
	c := NewRoutes(src, 8, time.Minute)

	route, stops, err := c.RouteWithStops(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 30, route.Capacity)
	require.Equal(t, 2, stops.Len())
	assert.Equal(t, "Lomé", stops.At(0).CityName)

	_, _, err = c.RouteWithStops(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, 1, c.Len())
}

func TestRoutesInvalidate(t *testing.T) {
	src := newSource()
	c := NewRoutes(src, 8, time.Minute)

	_, _, err := c.RouteWithStops(context.Background(), 1)
	require.NoError(t, err)

	c.Invalidate(1)
	src.routes[1] = domain.Route{ID: 1, Capacity: 40}

	route, _, err := c.RouteWithStops(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 40, route.Capacity)
	assert.Equal(t, 2, src.loads)
}

func TestRoutesNotFound(t *testing.T) {
	c := NewRoutes(newSource(), 8, time.Minute)

	_, _, err := c.RouteWithStops(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoutesRejectsDuplicateSequence(t *testing.T) {
	src := newSource()
	src.stops[1] = append(src.stops[1], domain.Stop{ID: 13, RouteID: 1, Sequence: 2})
	c := NewRoutes(src, 8, time.Minute)

	_, _, err := c.RouteWithStops(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrDuplicateSequence)
	assert.Equal(t, 0, c.Len())
}
