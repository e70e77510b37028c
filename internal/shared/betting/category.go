package betting

import (
	"errors"
	"fmt"
)

// Category identifica a origem de uma aposta. O conjunto é fechado:
// qualquer string fora dele é rejeitada por ParseCategory.
type Category string

const (
	CategoryCross   Category = "cross"
	CategorySpecial Category = "special"
	CategoryLive    Category = "live"

	CategoryPowerball   Category = "powerball"
	CategoryPowerLadder Category = "power_ladder"
	CategoryLadder      Category = "ladder"

	// casino e slot chegam ao ledger por sistemas externos; o engine não monta slips para eles
	CategoryCasino Category = "casino"
	CategorySlot   Category = "slot"
)

// Kind agrupa categorias para o cálculo de rolling
type Kind string

const (
	KindSports   Kind = "sports"
	KindMiniGame Kind = "mini_game"
	KindCasino   Kind = "casino"
	KindSlot     Kind = "slot"
)

var ErrUnknownCategory = errors.New("unknown category")

// AllCategories lista todas as categorias conhecidas, na ordem de exibição
var AllCategories = []Category{
	CategoryCross, CategorySpecial, CategoryLive,
	CategoryPowerball, CategoryPowerLadder, CategoryLadder,
	CategoryCasino, CategorySlot,
}

// SlipCategories são as categorias que podem virar BetSlip via BetSlipBuilder
var SlipCategories = []Category{
	CategoryCross, CategorySpecial, CategoryLive,
	CategoryPowerball, CategoryPowerLadder, CategoryLadder,
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryCross, CategorySpecial, CategoryLive,
		CategoryPowerball, CategoryPowerLadder, CategoryLadder,
		CategoryCasino, CategorySlot:
		return true
	}
	return false
}

func (c Category) Kind() Kind {
	switch c {
	case CategoryCross, CategorySpecial, CategoryLive:
		return KindSports
	case CategoryPowerball, CategoryPowerLadder, CategoryLadder:
		return KindMiniGame
	case CategoryCasino:
		return KindCasino
	case CategorySlot:
		return KindSlot
	}
	return ""
}

func (c Category) IsMiniGame() bool { return c.Kind() == KindMiniGame }

// Label retorna o nome exibido ao usuário (memo, cabeçalhos)
func (c Category) Label() string {
	switch c {
	case CategoryCross:
		return "크로스"
	case CategorySpecial:
		return "스페셜"
	case CategoryLive:
		return "라이브"
	case CategoryPowerball:
		return "파워볼"
	case CategoryPowerLadder:
		return "파워사다리"
	case CategoryLadder:
		return "사다리"
	case CategoryCasino:
		return "카지노"
	case CategorySlot:
		return "슬롯"
	}
	return string(c)
}
