package cancel

import (
	"errors"
	"time"

	"github.com/radieske/betting-engine/internal/shared/config"
)

var (
	// ErrConflict: o slip não está mais pending (cancelado ou liquidado em paralelo)
	ErrConflict = errors.New("slip is no longer pending")
	ErrNotFound = errors.New("slip not found")
)

// Refusal é uma recusa de negócio; não é erro
type Refusal string

const (
	Allowed           Refusal = ""
	TooCloseToStart   Refusal = "too_close_to_start"
	TooOld            Refusal = "too_old"
	DailyLimitReached Refusal = "daily_limit_reached"
)

func (r Refusal) Refused() bool { return r != Allowed }

// Message é o texto exibido ao usuário
func (r Refusal) Message() string {
	switch r {
	case TooCloseToStart:
		return "경기 시작 임박으로 배팅 취소가 불가능합니다."
	case TooOld:
		return "배팅 후 취소 가능 시간이 지났습니다."
	case DailyLimitReached:
		return "오늘 배팅 취소 가능 횟수를 모두 사용하셨습니다."
	}
	return ""
}

type Policy struct {
	MaxCancelsPerDay int
	CancelWindow     time.Duration
	MinBeforeStart   time.Duration
}

func FromConfig(p config.CancelPolicy) Policy {
	return Policy{
		MaxCancelsPerDay: p.MaxPerDay,
		CancelWindow:     time.Duration(p.WindowMinutes) * time.Minute,
		MinBeforeStart:   time.Duration(p.MinMinutesBeforeStart) * time.Minute,
	}
}

// Input é o estado lido (com lock) dentro da transação de cancelamento
type Input struct {
	PlacedAt       time.Time
	LegStarts      []time.Time
	CancelledToday int
	Now            time.Time
}

// Evaluate aplica as guardas na ordem: início do evento, janela desde a aposta, limite diário.
// Uma perna perto demais do início bloqueia o slip inteiro.
func (p Policy) Evaluate(in Input) Refusal {
	for _, start := range in.LegStarts {
		if start.Sub(in.Now) < p.MinBeforeStart {
			return TooCloseToStart
		}
	}
	if in.Now.Sub(in.PlacedAt) > p.CancelWindow {
		return TooOld
	}
	if in.CancelledToday >= p.MaxCancelsPerDay {
		return DailyLimitReached
	}
	return Allowed
}

// DayBounds devolve [início, fim) do dia corrente no fuso informado
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
