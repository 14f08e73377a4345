package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"testing"
)

// Scripted database/sql driver for storage-layer tests: queued query results,
// queued exec row counts and an injectable commit error. Every opened
// connection is the same shared object, so tests stay single-threaded and
// deterministic without a running Postgres.

type fakeResult struct {
	ncols int
	rows  [][]driver.Value
}

type fakeConn struct {
	queries   []fakeResult
	execs     []int64
	commitErr error
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{c: c, query: query}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return &fakeTx{c: c}, nil }

type fakeTx struct{ c *fakeConn }

func (t *fakeTx) Commit() error   { return t.c.commitErr }
func (t *fakeTx) Rollback() error { return nil }

type fakeStmt struct {
	c     *fakeConn
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(s.c.execs) > 0 {
		n := s.c.execs[0]
		s.c.execs = s.c.execs[1:]
		return driver.RowsAffected(n), nil
	}
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(s.c.queries) == 0 {
		return nil, fmt.Errorf("no scripted result for query: %s", s.query)
	}
	res := s.c.queries[0]
	s.c.queries = s.c.queries[1:]
	cols := make([]string, res.ncols)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i+1)
	}
	return &fakeRows{cols: cols, rows: res.rows}, nil
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
	pos  int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

var fake = &fakeConn{}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return fake, nil }

func init() { sql.Register("storefake", fakeDriver{}) }

// setupFakeDB points the package-level DB at the scripted driver for one test
// and restores the previous handle afterwards.
func setupFakeDB(t *testing.T) *fakeConn {
	t.Helper()
	fake.queries = nil
	fake.execs = nil
	fake.commitErr = nil
	handle, err := sql.Open("storefake", "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	prev := DB
	DB = handle
	t.Cleanup(func() {
		DB = prev
		handle.Close()
	})
	return fake
}

func queued(ncols int, rows ...[]driver.Value) fakeResult {
	return fakeResult{ncols: ncols, rows: rows}
}
