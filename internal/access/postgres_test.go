package access

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/socialchef/scribe/internal/errors"
)

// fakeRows serves a single int64 column.
type fakeRows struct {
	values []int64
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.values[r.pos-1]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.values[r.pos-1]}, nil
}

type fakeDB struct {
	rows     []int64
	queryErr error
	execTag  string
	execErr  error
	execSQL  string
	execArgs []any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag(f.execTag), f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{values: f.rows}, nil
}

func TestPostgresStoreLoad(t *testing.T) {
	store := NewPostgresStore(&fakeDB{rows: []int64{9, 7}})

	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids.Sorted())
}

func TestPostgresStoreLoadError(t *testing.T) {
	store := NewPostgresStore(&fakeDB{queryErr: errors.New("connection refused")})

	_, err := store.Load(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
}

func TestPostgresStoreAppend(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		wantAdded bool
	}{
		{name: "inserted", tag: "INSERT 0 1", wantAdded: true},
		{name: "conflict", tag: "INSERT 0 0", wantAdded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{execTag: tt.tag}
			store := NewPostgresStore(db)

			added, err := store.Append(context.Background(), 100)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, added)
			assert.Contains(t, db.execSQL, "ON CONFLICT")
			assert.Equal(t, []any{int64(100)}, db.execArgs)
		})
	}
}
