package rolling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

// Deposit é o depósito confirmado que serve de base do rolling
type Deposit struct {
	ID         string
	UserID     string
	Money      int64
	BonusPoint int64
	CreatedAt  time.Time
}

func (d Deposit) Base() int64 { return d.Money + d.BonusPoint }

// Stake é o valor apostado em um slip e sua categoria
type Stake struct {
	Category betting.Category
	Amount   int64
}

// Percentages é o giro por tipo de jogo, em pontos percentuais inteiros
type Percentages struct {
	Sports   int64 `json:"sports"`
	MiniGame int64 `json:"miniGame"`
	Casino   int64 `json:"casino"`
	Slot     int64 `json:"slot"`
}

// Compute acumula floor(stake*100/base) por slip no balde da categoria.
// Sem depósito ou com base zero devolve zeros.
func Compute(dep *Deposit, stakes []Stake) Percentages {
	var p Percentages
	if dep == nil {
		return p
	}
	base := dep.Base()
	if base <= 0 {
		return p
	}
	for _, s := range stakes {
		c := s.Amount * 100 / base
		switch s.Category.Kind() {
		case betting.KindSports:
			p.Sports += c
		case betting.KindMiniGame:
			p.MiniGame += c
		case betting.KindCasino:
			p.Casino += c
		case betting.KindSlot:
			p.Slot += c
		}
	}
	return p
}

// Calculator lê depósitos e slips do Postgres
type Calculator struct {
	DB *sql.DB
}

func NewCalculator(db *sql.DB) *Calculator { return &Calculator{DB: db} }

// LatestDeposit devolve o depósito confirmado mais recente do usuário, ou nil
func (c *Calculator) LatestDeposit(ctx context.Context, userID string) (*Deposit, error) {
	var d Deposit
	err := c.DB.QueryRowContext(ctx, `
		SELECT id, user_id, money, bonus_point, created_at
		FROM deposits
		WHERE user_id=$1 AND confirm
		ORDER BY created_at DESC
		LIMIT 1`, userID).Scan(&d.ID, &d.UserID, &d.Money, &d.BonusPoint, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest deposit: %w", err)
	}
	return &d, nil
}

// CountsTowardRolling diz se um slip entra no giro. Slip cancelado teve o
// stake devolvido e não conta; anulado/ganho/perdido contam pelo stake apostado.
func CountsTowardRolling(status betting.SlipStatus) bool {
	return status != betting.SlipCancelled
}

// StakesSince devolve os slips feitos em [from, to] que contam para o rolling
func (c *Calculator) StakesSince(ctx context.Context, userID string, from, to time.Time) ([]Stake, error) {
	// o filtro de cancelados fica em CountsTowardRolling, não no WHERE
	rows, err := c.DB.QueryContext(ctx, `
		SELECT category, stake, status
		FROM bet_slips
		WHERE user_id=$1 AND placed_at >= $2 AND placed_at <= $3`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query stakes: %w", err)
	}
	defer rows.Close()

	var out []Stake
	for rows.Next() {
		var (
			s      Stake
			status betting.SlipStatus
		)
		if err := rows.Scan(&s.Category, &s.Amount, &status); err != nil {
			return nil, fmt.Errorf("scan stake: %w", err)
		}
		if CountsTowardRolling(status) {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

// ForUser calcula o rolling do usuário desde o último depósito confirmado
func (c *Calculator) ForUser(ctx context.Context, userID string, now time.Time) (Percentages, error) {
	dep, err := c.LatestDeposit(ctx, userID)
	if err != nil || dep == nil {
		return Percentages{}, err
	}
	stakes, err := c.StakesSince(ctx, userID, dep.CreatedAt, now)
	if err != nil {
		return Percentages{}, err
	}
	return Compute(dep, stakes), nil
}
