package runs

import "errors"

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrForbidden     = errors.New("forbidden")
)
