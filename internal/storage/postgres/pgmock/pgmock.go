// Package pgmock simula o pool e as transações do pgx para os testes dos
// repositórios PostgreSQL.
//
// Tx e Rows embutem as interfaces do pgx que substituem; um método que o
// teste não esperava entra em pânico com nil.
package pgmock

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// Pool simula o pool de conexões PostgreSQL
type Pool struct {
	mock.Mock
}

func (m *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, sql, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, sql, args)
	if mockArgs.Get(0) == nil {
		return nil, mockArgs.Error(1)
	}
	return mockArgs.Get(0).(pgx.Rows), mockArgs.Error(1)
}

func (m *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	mockArgs := m.Called(ctx, sql, args)
	return mockArgs.Get(0).(pgx.Row)
}

// Tx simula uma transação pgx
type Tx struct {
	pgx.Tx
	mock.Mock
}

func (m *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, sql, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, sql, args)
	if mockArgs.Get(0) == nil {
		return nil, mockArgs.Error(1)
	}
	return mockArgs.Get(0).(pgx.Rows), mockArgs.Error(1)
}

func (m *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	mockArgs := m.Called(ctx, sql, args)
	return mockArgs.Get(0).(pgx.Row)
}

func (m *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	mockArgs := m.Called(ctx, b)
	return mockArgs.Get(0).(pgx.BatchResults)
}

func (m *Tx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Tx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// BatchResults devolve err ao fechar o lote
type BatchResults struct {
	pgx.BatchResults
	Err error
}

func (b *BatchResults) Close() error {
	return b.Err
}

// Row simula uma linha de resultado
type Row struct {
	scanFunc func(dest ...any) error
}

func (r *Row) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// RowOf returns a row that scans values into the destinations in order.
func RowOf(values ...any) *Row {
	return &Row{scanFunc: func(dest ...any) error {
		return assign(dest, values)
	}}
}

// ErrRow returns a row whose Scan fails with err.
func ErrRow(err error) *Row {
	return &Row{scanFunc: func(...any) error { return err }}
}

// Rows simula um cursor sobre linhas fixas
type Rows struct {
	pgx.Rows
	values [][]any
	next   int
	Closed bool
}

// RowsOf returns a cursor over the given rows.
func RowsOf(rows ...[]any) *Rows {
	return &Rows{values: rows}
}

func (r *Rows) Next() bool {
	if r.next >= len(r.values) {
		return false
	}
	r.next++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	return assign(dest, r.values[r.next-1])
}

func (r *Rows) Err() error { return nil }

func (r *Rows) Close() { r.Closed = true }

// Tag builds a command tag such as "UPDATE 1".
func Tag(s string) pgconn.CommandTag {
	return pgconn.NewCommandTag(s)
}

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: column %d is %s, destination is %s", i, v.Type(), target.Type())
		}
		target.Set(v)
	}
	return nil
}
