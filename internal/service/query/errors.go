package query

import "errors"

var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrInvalidPassenger = errors.New("passenger count must be positive")
)
