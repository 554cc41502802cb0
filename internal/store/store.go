// Package store is the Postgres persistence layer: users, player profiles,
// games, matches, the matchmaking queue, and invitations.
package store

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store wraps a sqlx connection pool.
type Store struct {
	DB *sqlx.DB
}

// Connect opens and verifies a Postgres connection pool.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// New wraps an already-connected pool.
func New(db *sqlx.DB) *Store {
	return &Store{DB: db}
}
