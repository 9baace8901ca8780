package introspect

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows serves canned rows through the pgx.Rows interface.
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d values, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeQuerier answers the column query first and the index query second.
type fakeQuerier struct {
	responses []*fakeRows
	calls     int
	err       error
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if q.err != nil {
		return nil, q.err
	}
	r := q.responses[q.calls]
	q.calls++
	return r, nil
}

func TestLive(t *testing.T) {
	q := &fakeQuerier{responses: []*fakeRows{
		{data: [][]any{
			{"id", "bigint", false},
			{"title", "character varying", false},
			{"published_at", "timestamp without time zone", true},
		}},
		{data: [][]any{
			{"posts_pkey", "id", true},
			{"posts_title_published_at_index", "title,published_at", false},
		}},
	}}

	h, err := Live(context.Background(), q, "posts")
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if got := h.Columns.Sorted(); !reflect.DeepEqual(got, []string{"id", "published_at", "title"}) {
		t.Errorf("columns = %v", got)
	}
	if !h.Created || !h.HasIndex("posts_title_published_at_index") {
		t.Errorf("history = %+v", h)
	}
}

func TestLiveIndexesSplitsColumns(t *testing.T) {
	q := &fakeQuerier{responses: []*fakeRows{
		{data: [][]any{{"posts_a_b_index", "a, b", false}}},
	}}
	indexes, err := LiveIndexes(context.Background(), q, "posts")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indexes[0].Columns, []string{"a", "b"}) {
		t.Errorf("columns = %v", indexes[0].Columns)
	}
}

func TestLiveErrors(t *testing.T) {
	boom := errors.New("connection refused")
	if _, err := Live(context.Background(), &fakeQuerier{err: boom}, "posts"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}

	iterErr := errors.New("broken pipe")
	q := &fakeQuerier{responses: []*fakeRows{{err: iterErr}}}
	if _, err := LiveColumns(context.Background(), q, "posts"); !errors.Is(err, iterErr) {
		t.Errorf("err = %v, want wrapped %v", err, iterErr)
	}
}
