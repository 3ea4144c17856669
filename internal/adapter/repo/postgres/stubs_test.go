package postgres

import (
	"context"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txStub overrides the pgx.Tx methods the archive calls; the embedded
// interface panics if anything else is touched.
type txStub struct {
	pgx.Tx
	failOn     int
	execErr    error
	commitErr  error
	execs      int
	args       [][]any
	committed  bool
	rolledBack bool
}

func (t *txStub) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	t.execs++
	t.args = append(t.args, args)
	if t.failOn == t.execs {
		return pgconn.CommandTag{}, t.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *txStub) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *txStub) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type rowsStub struct {
	pgx.Rows
	data   [][]any
	i      int
	err    error
	closed bool
}

func (r *rowsStub) Next() bool {
	if r.i < len(r.data) {
		r.i++
		return true
	}
	return false
}

func (r *rowsStub) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for k := range dest {
		reflect.ValueOf(dest[k]).Elem().Set(reflect.ValueOf(row[k]))
	}
	return nil
}

func (r *rowsStub) Err() error { return r.err }
func (r *rowsStub) Close()     { r.closed = true }

type poolStub struct {
	mu        sync.Mutex
	execSQL   []string
	execArgs  [][]any
	execTag   pgconn.CommandTag
	execErr   error
	tx        *txStub
	beginErr  error
	rows      *rowsStub
	queryErr  error
	queryArgs []any
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	return p.execTag, p.execErr
}

func (p *poolStub) execCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.execSQL)
}

func (p *poolStub) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	p.queryArgs = args
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.rows, nil
}

func (p *poolStub) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}
