package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/betting-engine/internal/bet-service/cancel"
	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/ledger"
)

// cancelStore são os passos de banco do cancelamento, todos na mesma transação
type cancelStore interface {
	lockUser(ctx context.Context, userID string) error
	lockSlip(ctx context.Context, userID, slipID string) (betting.BetSlip, error)
	cancelsBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	// markCancelled só vira o slip se ainda estiver pending; false = perdeu a corrida
	markCancelled(ctx context.Context, slipID string, at time.Time) (bool, error)
	refund(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	decrementStats(ctx context.Context, userID string, c betting.Category, stake int64) error
}

func cancelIn(ctx context.Context, st cancelStore, loc *time.Location, userID, slipID string, pol cancel.Policy, now time.Time) (CancelResult, error) {
	if err := st.lockUser(ctx, userID); err != nil {
		return CancelResult{}, err
	}
	s, err := st.lockSlip(ctx, userID, slipID)
	if err != nil {
		return CancelResult{}, err
	}
	if s.Status != betting.SlipPending {
		return CancelResult{}, cancel.ErrConflict
	}

	dayStart, dayEnd := cancel.DayBounds(now, loc)
	today, err := st.cancelsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return CancelResult{}, err
	}
	starts := make([]time.Time, len(s.Details))
	for i, d := range s.Details {
		starts[i] = d.StartTime
	}
	if r := pol.Evaluate(cancel.Input{PlacedAt: s.PlacedAt, LegStarts: starts, CancelledToday: today, Now: now}); r.Refused() {
		return CancelResult{Refusal: r, Slip: s}, nil
	}

	ok, err := st.markCancelled(ctx, s.ID, now)
	if err != nil {
		return CancelResult{}, err
	}
	if !ok {
		return CancelResult{}, cancel.ErrConflict
	}
	bal, err := st.refund(ctx, userID, s.Stake, "cancel:"+s.ID)
	if err != nil {
		return CancelResult{}, err
	}
	if err := st.decrementStats(ctx, userID, s.Category, s.Stake); err != nil {
		return CancelResult{}, err
	}

	s.Status = betting.SlipCancelled
	for i := range s.Details {
		s.Details[i].Status = betting.SlipCancelled
	}
	return CancelResult{Slip: s, BalanceAfter: bal}, nil
}

type txCancel struct {
	tx *sql.Tx
}

func (t txCancel) lockUser(ctx context.Context, userID string) error {
	var uid string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return cancel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (t txCancel) lockSlip(ctx context.Context, userID, slipID string) (betting.BetSlip, error) {
	s, err := scanSlip(t.tx.QueryRowContext(ctx, slipSelect+` WHERE id=$1 AND user_id=$2 FOR UPDATE`, slipID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return s, cancel.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("lock slip: %w", err)
	}
	details, err := loadDetails(ctx, t.tx, []string{s.ID})
	if err != nil {
		return s, err
	}
	s.Details = details[s.ID]
	return s, nil
}

func (t txCancel) cancelsBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bet_slips
		WHERE user_id=$1 AND status='cancelled' AND cancelled_at >= $2 AND cancelled_at < $3`,
		userID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cancels: %w", err)
	}
	return n, nil
}

func (t txCancel) markCancelled(ctx context.Context, slipID string, at time.Time) (bool, error) {
	out, err := t.tx.ExecContext(ctx, `
		UPDATE bet_slips SET status='cancelled', cancelled_at=$2
		WHERE id=$1 AND status='pending'`, slipID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("cancel slip: %w", err)
	}
	if n, _ := out.RowsAffected(); n != 1 {
		return false, nil
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE bet_details SET status='cancelled' WHERE slip_id=$1`, slipID); err != nil {
		return false, fmt.Errorf("cancel details: %w", err)
	}
	return true, nil
}

func (t txCancel) refund(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	e, err := ledger.Credit(ctx, t.tx, userID, amount, reason)
	if err != nil {
		return 0, err
	}
	return e.BalanceAfter, nil
}

func (t txCancel) decrementStats(ctx context.Context, userID string, c betting.Category, stake int64) error {
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE user_bet_stats
		SET total_stake = total_stake - $3, bet_count = bet_count - 1
		WHERE user_id=$1 AND category=$2`, userID, c, stake); err != nil {
		return fmt.Errorf("decrement stats: %w", err)
	}
	return nil
}
