package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/betting-engine/internal/shared/db"
	"github.com/radieske/betting-engine/internal/shared/ledger"
	"github.com/radieske/betting-engine/internal/wallet-service/rolling"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyConfirmed = errors.New("deposit already confirmed")
)

// Postgres implementa operações de carteira; o saldo vive em users.balance
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type Deposit struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Money       int64      `json:"money"`
	BonusPoint  int64      `json:"bonusPoint"`
	Confirmed   bool       `json:"confirmed"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

type Withdrawal struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Amount    int64               `json:"amount"`
	Rolling   rolling.Percentages `json:"rolling"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

type LedgerEntry struct {
	Operation     string    `json:"operation"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balanceBefore"`
	BalanceAfter  int64     `json:"balanceAfter"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	return ledger.ReadBalance(ctx, p.db, userID)
}

// RequestDeposit registra um pedido de depósito ainda não confirmado; não mexe no saldo
func (p *Postgres) RequestDeposit(ctx context.Context, userID string, money, bonus int64) (Deposit, error) {
	d := Deposit{ID: uuid.NewString(), UserID: userID, Money: money, BonusPoint: bonus}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO deposits (id, user_id, money, bonus_point)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`, d.ID, d.UserID, d.Money, d.BonusPoint).Scan(&d.CreatedAt)
	if err != nil {
		return Deposit{}, fmt.Errorf("insert deposit: %w", err)
	}
	return d, nil
}

// ConfirmDeposit confirma uma única vez e credita dinheiro + bônus com entrada no ledger
func (p *Postgres) ConfirmDeposit(ctx context.Context, depositID string, now time.Time) (Deposit, int64, error) {
	var (
		d     Deposit
		after int64
	)
	err := db.Tx(ctx, p.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, user_id, money, bonus_point, confirm, created_at
			FROM deposits WHERE id=$1 FOR UPDATE`, depositID).
			Scan(&d.ID, &d.UserID, &d.Money, &d.BonusPoint, &d.Confirmed, &d.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock deposit: %w", err)
		}
		if d.Confirmed {
			return ErrAlreadyConfirmed
		}

		at := now.UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE deposits SET confirm=TRUE, confirmed_at=$2 WHERE id=$1`, d.ID, at); err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}
		e, err := ledger.Credit(ctx, tx, d.UserID, d.Money+d.BonusPoint, "deposit:"+d.ID)
		if err != nil {
			return err
		}
		d.Confirmed, d.ConfirmedAt, after = true, &at, e.BalanceAfter
		return nil
	})
	return d, after, err
}

// RequestWithdrawal debita o saldo e guarda o rolling do momento junto do pedido
func (p *Postgres) RequestWithdrawal(ctx context.Context, userID string, amount int64, roll rolling.Percentages) (Withdrawal, int64, error) {
	w := Withdrawal{ID: uuid.NewString(), UserID: userID, Amount: amount, Rolling: roll, Status: "requested"}
	var after int64
	err := db.Tx(ctx, p.db, func(tx *sql.Tx) error {
		e, err := ledger.Debit(ctx, tx, userID, amount, "withdrawal:"+w.ID)
		if err != nil {
			return err
		}
		after = e.BalanceAfter
		return tx.QueryRowContext(ctx, `
			INSERT INTO withdrawals (id, user_id, amount, sports_rolling, minigame_rolling, casino_rolling, slot_rolling, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING created_at`,
			w.ID, w.UserID, w.Amount, roll.Sports, roll.MiniGame, roll.Casino, roll.Slot, w.Status).Scan(&w.CreatedAt)
	})
	return w, after, err
}

// Ledger lista as últimas movimentações do usuário
func (p *Postgres) Ledger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT operation_type, amount, balance_before, balance_after, reason, created_at
		FROM balance_ledger
		WHERE user_id=$1
		ORDER BY id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	out := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.Operation, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
