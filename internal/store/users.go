package store

import (
	"database/sql"
	"errors"

	"github.com/playpong/backend/internal/models"
)

// ErrNotFound is returned when a lookup by id/username finds no row.
var ErrNotFound = errors.New("not found")

// CreateUser inserts a new user and its empty player profile in one transaction.
func (s *Store) CreateUser(username, passwordHash string) (*models.User, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var u models.User
	err = tx.Get(&u, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`INSERT INTO player_profiles (user_id, updated_at) VALUES ($1, NOW())`, u.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	err := s.DB.Get(&u, `SELECT id, username, password_hash, created_at FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(id int) (*models.User, error) {
	var u models.User
	err := s.DB.Get(&u, `SELECT id, username, password_hash, created_at FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetProfile(userID int) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	err := s.DB.Get(&p, `
		SELECT user_id, matches_played, matches_won, matches_lost, games_played, games_won,
		       experience, level, first_win, pure_win, triple_win, updated_at
		FROM player_profiles WHERE user_id=$1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
