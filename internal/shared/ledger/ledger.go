package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Querier é satisfeito por *sql.DB e *sql.Tx
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Entry é a linha gravada em balance_ledger a cada movimentação
type Entry struct {
	UserID        string
	Operation     string // DEBIT | CREDIT
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Reason        string
}

// Debit bloqueia a linha do usuário (FOR UPDATE), debita e registra no ledger.
// Deve rodar dentro da mesma transação que cria o registro que justifica o débito.
func Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64, reason string) (Entry, error) {
	return move(ctx, tx, userID, -amount, amount, "DEBIT", reason)
}

// Credit é o inverso de Debit, com as mesmas garantias
func Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64, reason string) (Entry, error) {
	return move(ctx, tx, userID, amount, amount, "CREDIT", reason)
}

func move(ctx context.Context, tx *sql.Tx, userID string, delta, amount int64, op, reason string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}

	var before int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&before)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrUserNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lock balance: %w", err)
	}

	after := before + delta
	if after < 0 {
		return Entry{}, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance=$1 WHERE id=$2`, after, userID); err != nil {
		return Entry{}, fmt.Errorf("update balance: %w", err)
	}

	e := Entry{
		UserID:        userID,
		Operation:     op,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reason:        reason,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_ledger(user_id, operation_type, amount, balance_before, balance_after, reason)
		VALUES($1,$2,$3,$4,$5,$6)`,
		e.UserID, e.Operation, e.Amount, e.BalanceBefore, e.BalanceAfter, e.Reason); err != nil {
		return Entry{}, fmt.Errorf("insert ledger: %w", err)
	}
	return e, nil
}

// ReadBalance lê o saldo atual sem lock
func ReadBalance(ctx context.Context, q Querier, userID string) (int64, error) {
	var bal int64
	err := q.QueryRowContext(ctx, `SELECT balance FROM users WHERE id=$1`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return bal, err
}
