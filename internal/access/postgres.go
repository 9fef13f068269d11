package access

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/socialchef/scribe/internal/errors"
)

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps the allow-list in the allowed_users table.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) (IDSet, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM allowed_users`)
	if err != nil {
		return nil, errors.NewStorageError("failed to query allowed users", "ALLOWLIST_READ_ERROR", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.NewStorageError("failed to scan allowed users", "ALLOWLIST_READ_ERROR", err)
	}

	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *PostgresStore) Append(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO allowed_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, id)
	if err != nil {
		return false, errors.NewStorageError("failed to insert allowed user", "ALLOWLIST_WRITE_ERROR", err)
	}
	return tag.RowsAffected() == 1, nil
}
