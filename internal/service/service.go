package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxBeginner is the slice of *pgxpool.Pool the services need. Every write
// workflow runs inside a single transaction started here.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
