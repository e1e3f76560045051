package reports

import "errors"

var (
	ErrForbidden     = errors.New("not allowed to read this report")
	ErrRouteNotFound = errors.New("route not found")
	ErrInvalidRange  = errors.New("export range ends before it starts")
)
