package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy reúne os limites de negócio ajustáveis sem rebuild
type Policy struct {
	Cancel  CancelPolicy  `yaml:"cancel"`
	Levels  []LevelLimit  `yaml:"levels"`
	Catalog CatalogPolicy `yaml:"catalog"`
}

type CancelPolicy struct {
	MaxPerDay             int `yaml:"max_per_day"`
	WindowMinutes         int `yaml:"window_minutes"`
	MinMinutesBeforeStart int `yaml:"min_minutes_before_start"`
}

// LevelLimit define os limites de aposta de um nível de usuário
type LevelLimit struct {
	Level     int   `yaml:"level"`
	MinStake  int64 `yaml:"min_stake"`
	MaxStake  int64 `yaml:"max_stake"`
	MaxPayout int64 `yaml:"max_payout"`
	MaxLegs   int   `yaml:"max_legs"`
}

type CatalogPolicy struct {
	Window      time.Duration `yaml:"window"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	RebuildSpec string        `yaml:"rebuild_spec"` // cron com segundos
}

func DefaultPolicy() Policy {
	return Policy{
		Cancel: CancelPolicy{
			MaxPerDay:             3,
			WindowMinutes:         5,
			MinMinutesBeforeStart: 10,
		},
		Levels: []LevelLimit{
			{Level: 1, MinStake: 5000, MaxStake: 1000000, MaxPayout: 5000000, MaxLegs: 10},
		},
		Catalog: CatalogPolicy{
			Window:      48 * time.Hour,
			CacheTTL:    2 * time.Minute,
			RebuildSpec: "0 * * * * *",
		},
	}
}

// LoadPolicy lê o YAML por cima dos defaults; caminho vazio devolve os defaults
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if len(p.Levels) == 0 {
		return Policy{}, fmt.Errorf("policy file %s: no levels", path)
	}
	return p, nil
}

// LimitFor devolve o limite do maior nível configurado <= level.
// Abaixo de todos os níveis vale o menor deles.
func (p Policy) LimitFor(level int) LevelLimit {
	var (
		best  LevelLimit
		found bool
	)
	lowest := p.Levels[0]
	for _, l := range p.Levels {
		if l.Level < lowest.Level {
			lowest = l
		}
		if l.Level <= level && (!found || l.Level > best.Level) {
			best, found = l, true
		}
	}
	if !found {
		return lowest
	}
	return best
}
