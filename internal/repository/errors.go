package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrRetryable = errors.New("retryable transaction failure")
	ErrStale     = errors.New("row changed concurrently")
)
