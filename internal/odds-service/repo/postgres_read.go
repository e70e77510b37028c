package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

// ReadRepo lê os mercados que o feed externo gravou em markets
type ReadRepo struct {
	DB *sql.DB
}

func NewReadRepo(db *sql.DB) *ReadRepo { return &ReadRepo{DB: db} }

// ListOpenMarkets devolve os mercados ativos e pendentes de uma categoria
// com início dentro de [from, to]. Anulados e excluídos ficam de fora.
func (r *ReadRepo) ListOpenMarkets(ctx context.Context, c betting.Category, from, to time.Time) ([]betting.MarketRow, error) {
	const q = `
		SELECT m.id, m.category, m.market_type, m.league_id, COALESCE(l.name, ''),
		       m.home_team_id, COALESCE(ht.name, ''), m.away_team_id, COALESCE(at.name, ''),
		       m.start_time, m.home_odds, m.tie_odds, m.away_odds, m.handicap_line, m.result_state
		FROM markets m
		LEFT JOIN leagues l ON l.id = m.league_id
		LEFT JOIN teams ht ON ht.id = m.home_team_id
		LEFT JOIN teams at ON at.id = m.away_team_id
		WHERE m.category = $1
		  AND m.active
		  AND m.result_state = 'pending'
		  AND m.start_time BETWEEN $2 AND $3
	`
	rows, err := r.DB.QueryContext(ctx, q, string(c), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []betting.MarketRow
	for rows.Next() {
		var (
			m         betting.MarketRow
			tie, line decimal.NullDecimal
		)
		if err := rows.Scan(
			&m.ID, &m.Category, &m.MarketType, &m.LeagueID, &m.LeagueName,
			&m.HomeTeamID, &m.HomeTeam, &m.AwayTeamID, &m.AwayTeam,
			&m.StartTime, &m.HomeOdds, &tie, &m.AwayOdds, &line, &m.ResultState,
		); err != nil {
			return nil, err
		}
		if tie.Valid {
			m.TieOdds = &tie.Decimal
		}
		if line.Valid {
			m.HandicapLine = &line.Decimal
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
