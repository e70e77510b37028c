package session

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore guarda o token em users.session_token
type PostgresStore struct{ db *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Token(ctx context.Context, userID string) (string, error) {
	var tok string
	err := s.db.QueryRowContext(ctx, `SELECT session_token FROM users WHERE id=$1`, userID).Scan(&tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownUser
	}
	return tok, err
}

func (s *PostgresStore) SetToken(ctx context.Context, userID, token string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET session_token=$2 WHERE id=$1`, userID, token)
	if err != nil {
		return err
	}
	return mustTouch(res)
}

func (s *PostgresStore) Adopt(ctx context.Context, userID, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET session_token=$2 WHERE id=$1 AND session_token=''`, userID, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *PostgresStore) RevokeIf(ctx context.Context, userID, expected, marker string) error {
	if expected == "" {
		_, err := s.db.ExecContext(ctx, `UPDATE users SET session_token=$2 WHERE id=$1`, userID, marker)
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET session_token=$3 WHERE id=$1 AND session_token=$2`, userID, expected, marker)
	return err
}

func mustTouch(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}
