package betaudit

import (
	"context"
	"database/sql"
)

type PostgresStore struct{ db *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// Record é idempotente por (slip, novo status): reentregas do Kafka não duplicam o histórico
func (s *PostgresStore) Record(ctx context.Context, t Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bet_transactions (bet_id, old_status, new_status, reason)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (bet_id, new_status) DO NOTHING`,
		t.SlipID, t.OldStatus, t.NewStatus, t.Reason)
	return err
}
