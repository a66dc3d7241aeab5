package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB simulates commit visibility for pool-level statements,
// transactions and savepoints.
type fakeDB struct {
	committedRows int
	ddl           []string
	failID        map[string]error
	beginErr      error
	ddlErr        error
	rollbacks     int
}

func newFakeDB() *fakeDB {
	return &fakeDB{failID: map[string]error{}}
}

// exec decides the outcome of one statement; inserts fail when their _id
// argument is registered in failID.
func (d *fakeDB) exec(sql string, args []any) (isInsert bool, err error) {
	if strings.HasPrefix(sql, "INSERT") {
		if id, ok := args[10].(string); ok {
			if e, found := d.failID[id]; found {
				return true, e
			}
		}
		return true, nil
	}
	if d.ddlErr != nil {
		return false, d.ddlErr
	}
	return false, nil
}

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	isInsert, err := d.exec(sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if isInsert {
		d.committedRows++
	} else {
		d.ddl = append(d.ddl, sql)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &fakeTx{db: d}, nil
}

// fakeTx embeds pgx.Tx so it satisfies the interface; only the methods the
// loader calls are implemented.
type fakeTx struct {
	pgx.Tx
	db      *fakeDB
	parent  *fakeTx
	pending int
	ddl     []string
	closed  bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	isInsert, err := t.db.exec(sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if isInsert {
		t.pending++
	} else {
		t.ddl = append(t.ddl, sql)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{db: t.db, parent: t}, nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.parent != nil {
		t.parent.pending += t.pending
		t.parent.ddl = append(t.parent.ddl, t.ddl...)
		return nil
	}
	t.db.committedRows += t.pending
	t.db.ddl = append(t.db.ddl, t.ddl...)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.parent == nil {
		t.db.rollbacks++
	}
	return nil
}

var errBadInt = &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type integer: "abc"`}

var errConnLost = &pgconn.PgError{Code: "08006", Message: "connection failure"}

var errPlain = errors.New("something odd")
