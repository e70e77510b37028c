package rolling

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/db"
)

func TestCompute(t *testing.T) {
	dep := &Deposit{Money: 100000, BonusPoint: 0}

	tests := []struct {
		name   string
		dep    *Deposit
		stakes []Stake
		want   Percentages
	}{
		{
			name: "floors each slip before summing",
			dep:  dep,
			// 3.3 + 3.3 + 0.9 -> 3 + 3 + 0 = 6; soma exata daria 7
			stakes: []Stake{
				{betting.CategoryCross, 3300},
				{betting.CategoryLive, 3300},
				{betting.CategorySpecial, 900},
			},
			want: Percentages{Sports: 6},
		},
		{
			name: "buckets by kind",
			dep:  &Deposit{Money: 40000, BonusPoint: 10000},
			stakes: []Stake{
				{betting.CategoryCross, 5000},
				{betting.CategoryPowerball, 10000},
				{betting.CategoryLadder, 2500},
				{betting.CategoryCasino, 50000},
				{betting.CategorySlot, 500},
			},
			want: Percentages{Sports: 10, MiniGame: 25, Casino: 100, Slot: 1},
		},
		{
			name:   "no deposit",
			dep:    nil,
			stakes: []Stake{{betting.CategoryCross, 1000}},
			want:   Percentages{},
		},
		{
			name:   "zero base short-circuits",
			dep:    &Deposit{},
			stakes: []Stake{{betting.CategoryCross, 1000}},
			want:   Percentages{},
		},
		{
			name:   "unknown category ignored",
			dep:    dep,
			stakes: []Stake{{"darts", 50000}},
			want:   Percentages{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.dep, tt.stakes); got != tt.want {
				t.Fatalf("Compute=%+v want %+v", got, tt.want)
			}
		})
	}
}

func TestCompute_DepositWithBonus(t *testing.T) {
	// 100000 + bônus 10000; 5000, 3000 e 2000 em esportes -> 4 + 2 + 1 = 7
	got := Compute(&Deposit{Money: 100000, BonusPoint: 10000}, []Stake{
		{betting.CategoryCross, 5000},
		{betting.CategorySpecial, 3000},
		{betting.CategoryLive, 2000},
	})
	if got != (Percentages{Sports: 7}) {
		t.Fatalf("got %+v want sports=7", got)
	}
}

func TestCountsTowardRolling(t *testing.T) {
	tests := []struct {
		status betting.SlipStatus
		want   bool
	}{
		{betting.SlipPending, true},
		{betting.SlipWon, true},
		{betting.SlipLost, true},
		{betting.SlipVoided, true},
		{betting.SlipCancelled, false},
	}
	for _, tt := range tests {
		if got := CountsTowardRolling(tt.status); got != tt.want {
			t.Errorf("CountsTowardRolling(%s)=%v want %v", tt.status, got, tt.want)
		}
	}
}

// Integração: roda só com TEST_POSTGRES_DSN apontando para um banco descartável
func TestCalculator_ForUserSkipsCancelledSlips(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	pg, err := db.ConnectPostgres(dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pg.Close()
	ctx := context.Background()
	if err := db.Migrate(ctx, pg); err != nil {
		t.Fatal(err)
	}

	user := uuid.NewString()
	if _, err := pg.Exec(`INSERT INTO users (id, username, password_hash, balance) VALUES ($1,$1,'x',0)`, user); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	depAt := now.Add(-time.Hour)
	// depósito não confirmado mais novo é ignorado
	if _, err := pg.Exec(`INSERT INTO deposits (id, user_id, money, bonus_point, confirm, created_at) VALUES ($1,$2,100000,0,TRUE,$3), ($4,$2,1,0,FALSE,$5)`,
		uuid.NewString(), user, depAt, uuid.NewString(), now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	slips := []struct {
		category betting.Category
		stake    int64
		status   betting.SlipStatus
		at       time.Time
	}{
		{betting.CategoryCross, 5000, betting.SlipPending, depAt.Add(time.Minute)},
		{betting.CategoryCross, 3000, betting.SlipVoided, depAt.Add(2 * time.Minute)},
		{betting.CategoryCross, 40000, betting.SlipCancelled, depAt.Add(3 * time.Minute)},
		{betting.CategoryCross, 20000, betting.SlipLost, depAt.Add(-time.Minute)},
	}
	for _, s := range slips {
		if _, err := pg.Exec(`
			INSERT INTO bet_slips (id, user_id, category, total_odds, stake, potential_payout, status, placed_at)
			VALUES ($1,$2,$3,1.85,$4,$4,$5,$6)`, uuid.NewString(), user, s.category, s.stake, s.status, s.at); err != nil {
			t.Fatal(err)
		}
	}

	got, err := NewCalculator(pg).ForUser(ctx, user, now)
	if err != nil {
		t.Fatal(err)
	}
	// 5 + 3; o cancelado e o anterior ao depósito ficam de fora
	if got != (Percentages{Sports: 8}) {
		t.Fatalf("ForUser=%+v want sports=8", got)
	}
}
