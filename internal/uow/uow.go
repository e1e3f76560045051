package uow

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	postgres "github.com/essodond/Evexticket/internal/repository/postgres"
)

// AfterCommit runs after a successful commit. Its error is logged and never
// reaches the caller of Do: the transaction has already succeeded.
type AfterCommit func(ctx context.Context) error

// TxRunner opens a transaction around fn.
type TxRunner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgres.DB) error) error
}

// UoW represents a unit of work.
type UoW struct {
	runner TxRunner
	logger *slog.Logger
}

func NewUoW(runner TxRunner, logger *slog.Logger) *UoW {
	if logger == nil {
		logger = slog.Default()
	}
	return &UoW{runner: runner, logger: logger}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(name string, h AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a
// successful commit, it executes all after-commit hooks in registration
// order; a failing hook does not stop the next one.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(name string, h AfterCommit)) error,
) error {
	type hook struct {
		name string
		fn   AfterCommit
	}
	var hooks []hook

	err := u.runner.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		hooks = hooks[:0]
		return fn(ctx, tx, func(name string, h AfterCommit) {
			hooks = append(hooks, hook{name: name, fn: h})
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		if herr := h.fn(ctx); herr != nil {
			u.logger.Warn("after-commit hook failed", "hook", h.name, "error", herr)
		}
	}

	return nil
}
