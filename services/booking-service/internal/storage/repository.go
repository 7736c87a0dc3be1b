package storage

import (
	"context"
	_ "embed"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/vetbook/libs/db"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

//go:embed schema.sql
var schemaSQL string

const dialectPostgres = "postgres"

// Repository is the Postgres backend for slots, appointments, payments,
// notifications and the directory.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	qb     goqu.DialectWrapper
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo, qb: goqu.Dialect(dialectPostgres)}
}

// EnsureSchema creates missing tables and indexes. Statements are idempotent.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var newID = uuid.NewString

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
