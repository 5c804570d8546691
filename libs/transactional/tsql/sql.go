// Package tsql wraps database/sql so that code written against the DB
// interface works identically inside and outside of a transaction.
package tsql

import (
	"database/sql"
	"errors"
)

// DB defines the sql.DB methods that exist on both the DB and Tx structs.
type DB interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	Begin() (Tx, error)
}

// Tx defines the transaction interface.
type Tx interface {
	DB
	Rollback() error
	Commit() error
}

// AsDB wraps a sql.DB to conform to the tsql interfaces.
func AsDB(s *sql.DB) DB {
	return &db{s}
}

type db struct {
	*sql.DB
}

func (d *db) Begin() (Tx, error) {
	t, err := d.DB.Begin()
	if err != nil {
		return nil, err
	}
	return &tx{t}, nil
}

type tx struct {
	*sql.Tx
}

func (t *tx) Begin() (Tx, error) {
	return nil, errors.New("tsql: cannot call Begin() on an existing transaction")
}

// AsSafeTx wraps a Tx so that nested Begin/Commit/Rollback calls noop. This
// lets transactional code compose with code that manages its own transactions.
func AsSafeTx(t Tx) Tx {
	return &safeTx{t}
}

type safeTx struct {
	Tx
}

func (t *safeTx) Begin() (Tx, error) {
	return t, nil
}

func (t *safeTx) Rollback() error {
	return nil
}

func (t *safeTx) Commit() error {
	return nil
}
