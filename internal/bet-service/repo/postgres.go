package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/bet-service/cancel"
	"github.com/radieske/betting-engine/internal/bet-service/slip"
	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/db"
	"github.com/radieske/betting-engine/internal/shared/ledger"
)

// ErrStillPending: slips pendentes não podem ser ocultados do histórico
var ErrStillPending = errors.New("slip is still pending")

// Postgres implementa a persistência de slips; toda mudança de saldo passa pelo ledger
type Postgres struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgres retorna o repositório; loc define o "hoje" do limite diário de cancelamentos
func NewPostgres(db *sql.DB, loc *time.Location) *Postgres {
	return &Postgres{db: db, loc: loc}
}

// PlaceInput é o pedido de aposta já decodificado
type PlaceInput struct {
	UserID   string
	Category betting.Category
	Stake    int64
	Lines    []betting.CartLine
	Policy   config.Policy
	Now      time.Time
}

type PlaceResult struct {
	Slip         betting.BetSlip
	BalanceAfter int64
}

// PlaceSlip valida limites e odds, debita o saldo e grava slip + pernas numa única transação
func (p *Postgres) PlaceSlip(ctx context.Context, in PlaceInput) (PlaceResult, error) {
	built, err := slip.Build(in.Category, in.Lines)
	if err != nil {
		return PlaceResult{}, err
	}

	var res PlaceResult
	err = db.Tx(ctx, p.db, func(tx *sql.Tx) error {
		var level int
		err := tx.QueryRowContext(ctx, `SELECT level FROM users WHERE id=$1 FOR UPDATE`, in.UserID).Scan(&level)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		for i := range built.Details {
			d := &built.Details[i]
			_, id, _ := d.Refs.Populated()
			m, err := readMarket(ctx, tx, in.Category, id)
			if err != nil {
				return fmt.Errorf("leg %d: %w", i, err)
			}
			if _, err := verifyLeg(in.Category, *d, m, in.Now); err != nil {
				return fmt.Errorf("leg %d (market %d): %w", i, id, err)
			}
			// horário de início vem do banco, não do carrinho
			d.StartTime = m.StartTime
		}

		total := slip.TotalOdds(built.Details)
		payout := slip.PotentialPayout(in.Stake, total)
		if err := slip.CheckLimits(in.Policy.LimitFor(level), in.Stake, len(built.Details), payout); err != nil {
			return err
		}

		s := betting.BetSlip{
			ID:              uuid.NewString(),
			UserID:          in.UserID,
			Category:        in.Category,
			Details:         built.Details,
			TotalOdds:       total,
			Stake:           in.Stake,
			PotentialPayout: payout,
			Status:          betting.SlipPending,
			Memo:            built.Memo,
			PlacedAt:        in.Now.UTC(),
		}

		entry, err := ledger.Debit(ctx, tx, in.UserID, in.Stake, "bet:"+s.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bet_slips (id, user_id, category, total_odds, stake, potential_payout, status, memo, placed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			s.ID, s.UserID, s.Category, s.TotalOdds, s.Stake, s.PotentialPayout, s.Status, s.Memo, s.PlacedAt); err != nil {
			return fmt.Errorf("insert slip: %w", err)
		}
		for i := range s.Details {
			d := &s.Details[i]
			d.ID = uuid.NewString()
			d.SlipID = s.ID
			if err := insertDetail(ctx, tx, i, *d); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_bet_stats (user_id, category, total_stake, bet_count)
			VALUES ($1,$2,$3,1)
			ON CONFLICT (user_id, category) DO UPDATE
			SET total_stake = user_bet_stats.total_stake + EXCLUDED.total_stake,
			    bet_count   = user_bet_stats.bet_count + 1`,
			s.UserID, s.Category, s.Stake); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}

		res = PlaceResult{Slip: s, BalanceAfter: entry.BalanceAfter}
		return nil
	})
	return res, err
}

func readMarket(ctx context.Context, tx *sql.Tx, c betting.Category, id int64) (marketState, error) {
	var (
		m     marketState
		state string
		err   error
	)
	if c.IsMiniGame() {
		m.Active = true
		err = tx.QueryRowContext(ctx, `
			SELECT result_state, closes_at, pick, odds
			FROM minigame_markets WHERE id=$1 AND category=$2
			FOR SHARE`, id, c).Scan(&state, &m.StartTime, &m.MiniPick, &m.MiniOdds)
	} else {
		var tie decimal.NullDecimal
		err = tx.QueryRowContext(ctx, `
			SELECT active, result_state, start_time, home_odds, tie_odds, away_odds
			FROM markets WHERE id=$1 AND category=$2
			FOR SHARE`, id, c).Scan(&m.Active, &state, &m.StartTime, &m.Home, &tie, &m.Away)
		if tie.Valid {
			m.Tie = &tie.Decimal
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMarketClosed
	}
	if err != nil {
		return m, fmt.Errorf("read market %d: %w", id, err)
	}
	m.ResultState = betting.ResultState(state)
	return m, nil
}

func insertDetail(ctx context.Context, tx *sql.Tx, pos int, d betting.BetDetail) error {
	r := d.Refs
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bet_details (
			id, slip_id, position,
			cross_game_id, special_game_id, live_game_id,
			powerball_game_id, power_ladder_game_id, ladder_game_id,
			market_type, pick_label, pick_odds,
			home_team, away_team, league_name, handicap_line,
			game_event, round_label, start_time, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		d.ID, d.SlipID, pos,
		r.CrossGameID, r.SpecialGameID, r.LiveGameID,
		r.PowerballGameID, r.PowerLadderGameID, r.LadderGameID,
		d.MarketType, d.PickLabel, d.PickOdds,
		d.HomeTeam, d.AwayTeam, d.LeagueName, nullDecimal(d.HandicapLine),
		d.GameEvent, d.RoundLabel, d.StartTime, d.Status)
	if err != nil {
		return fmt.Errorf("insert detail %d: %w", pos, err)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// CancelResult traz a recusa de negócio (se houver) ou o slip cancelado
type CancelResult struct {
	Refusal      cancel.Refusal
	Slip         betting.BetSlip
	BalanceAfter int64
}

// CancelSlip aplica a política e, se permitido, cancela, estorna e decrementa contadores
// na mesma transação. A linha do usuário é travada primeiro para serializar o limite diário.
func (p *Postgres) CancelSlip(ctx context.Context, userID, slipID string, pol cancel.Policy, now time.Time) (CancelResult, error) {
	var res CancelResult
	err := db.Tx(ctx, p.db, func(tx *sql.Tx) error {
		var err error
		res, err = cancelIn(ctx, txCancel{tx: tx}, p.loc, userID, slipID, pol, now)
		return err
	})
	return res, err
}

const slipSelect = `
	SELECT id, user_id, category, total_odds, stake, potential_payout,
	       settlement_amount, status, memo, placed_at, user_deleted
	FROM bet_slips`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlip(r rowScanner) (betting.BetSlip, error) {
	var s betting.BetSlip
	err := r.Scan(&s.ID, &s.UserID, &s.Category, &s.TotalOdds, &s.Stake, &s.PotentialPayout,
		&s.SettlementAmount, &s.Status, &s.Memo, &s.PlacedAt, &s.UserDeleted)
	return s, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadDetails devolve as pernas agrupadas por slip, na ordem de inserção
func loadDetails(ctx context.Context, q queryer, slipIDs []string) (map[string][]betting.BetDetail, error) {
	out := make(map[string][]betting.BetDetail, len(slipIDs))
	if len(slipIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, slip_id,
		       cross_game_id, special_game_id, live_game_id,
		       powerball_game_id, power_ladder_game_id, ladder_game_id,
		       market_type, pick_label, pick_odds,
		       home_team, away_team, league_name, handicap_line,
		       game_event, round_label, start_time, status
		FROM bet_details
		WHERE slip_id = ANY($1)
		ORDER BY slip_id, position`, pq.Array(slipIDs))
	if err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d        betting.BetDetail
			refs     [6]sql.NullInt64
			handicap decimal.NullDecimal
		)
		if err := rows.Scan(&d.ID, &d.SlipID,
			&refs[0], &refs[1], &refs[2], &refs[3], &refs[4], &refs[5],
			&d.MarketType, &d.PickLabel, &d.PickOdds,
			&d.HomeTeam, &d.AwayTeam, &d.LeagueName, &handicap,
			&d.GameEvent, &d.RoundLabel, &d.StartTime, &d.Status); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		d.Refs = betting.Refs{
			CrossGameID:       ptr(refs[0]),
			SpecialGameID:     ptr(refs[1]),
			LiveGameID:        ptr(refs[2]),
			PowerballGameID:   ptr(refs[3]),
			PowerLadderGameID: ptr(refs[4]),
			LadderGameID:      ptr(refs[5]),
		}
		if handicap.Valid {
			d.HandicapLine = &handicap.Decimal
		}
		out[d.SlipID] = append(out[d.SlipID], d)
	}
	return out, rows.Err()
}

func ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ListFilter filtra o histórico do usuário
type ListFilter struct {
	Category betting.Category // vazio = todas
	Limit    int
	Offset   int
}

// ListSlips devolve o histórico mais recente primeiro, sem os slips ocultados pelo usuário
func (p *Postgres) ListSlips(ctx context.Context, userID string, f ListFilter) ([]betting.BetSlip, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	rows, err := p.db.QueryContext(ctx, slipSelect+`
		WHERE user_id=$1 AND NOT user_deleted AND ($2 = '' OR category = $2)
		ORDER BY placed_at DESC
		LIMIT $3 OFFSET $4`, userID, string(f.Category), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query slips: %w", err)
	}
	defer rows.Close()

	var (
		slips []betting.BetSlip
		ids   []string
	)
	for rows.Next() {
		s, err := scanSlip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slip: %w", err)
		}
		slips = append(slips, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	details, err := loadDetails(ctx, p.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range slips {
		slips[i].Details = details[slips[i].ID]
	}
	return slips, nil
}

// GetSlip devolve um slip do próprio usuário
func (p *Postgres) GetSlip(ctx context.Context, userID, slipID string) (betting.BetSlip, error) {
	s, err := scanSlip(p.db.QueryRowContext(ctx, slipSelect+` WHERE id=$1 AND user_id=$2`, slipID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return s, cancel.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("get slip: %w", err)
	}
	details, err := loadDetails(ctx, p.db, []string{s.ID})
	if err != nil {
		return s, err
	}
	s.Details = details[s.ID]
	return s, nil
}

// HideSlip marca o slip como removido pelo usuário; o registro permanece para auditoria
func (p *Postgres) HideSlip(ctx context.Context, userID, slipID string) error {
	out, err := p.db.ExecContext(ctx, `
		UPDATE bet_slips SET user_deleted = TRUE
		WHERE id=$1 AND user_id=$2 AND status <> 'pending'`, slipID, userID)
	if err != nil {
		return fmt.Errorf("hide slip: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 1 {
		return nil
	}

	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM bet_slips WHERE id=$1 AND user_id=$2`, slipID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return cancel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("hide slip: %w", err)
	}
	return ErrStillPending
}
