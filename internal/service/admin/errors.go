package admin

import "errors"

var (
	ErrCompanyConflict  = errors.New("company already exists")
	ErrCompanyNotFound  = errors.New("company not found")
	ErrCityConflict     = errors.New("city already exists")
	ErrRouteNotFound    = errors.New("route not found")
	ErrUnknownReference = errors.New("company or city does not exist")
	ErrForbidden        = errors.New("not allowed to manage this company")
	ErrInvalidInput     = errors.New("invalid catalog input")
)
