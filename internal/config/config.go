package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/diplomacy.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	WebDir   string     `env:"WEB_DIR"`

	Game GameConfig
	AI   AIConfig

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

// GameConfig holds the rules applied to newly created games.
type GameConfig struct {
	NumberOfRounds    int `env:"NUMBER_OF_ROUNDS" envDefault:"10"`
	ProposalsPerRound int `env:"PROPOSALS_PER_ROUND" envDefault:"2"`
	StartingMight     int `env:"STARTING_MIGHT" envDefault:"50"`
	StartingEconomy   int `env:"STARTING_ECONOMY" envDefault:"50"`
}

type AIConfig struct {
	Civilizations  []string `env:"AI_CIVILIZATIONS" envSeparator:"," envDefault:"Centauri Republic,Sirius Confederation,Proxima Alliance,Vega Dominion"`
	ProposalChance float64  `env:"AI_PROPOSAL_CHANCE" envDefault:"0.5"`
	AnthropicKey   string   `env:"ANTHROPIC_API_KEY"`
	AnthropicModel string   `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku-4-5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the game cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Game.NumberOfRounds < 1:
		return fmt.Errorf("NUMBER_OF_ROUNDS must be at least 1, got %d", c.Game.NumberOfRounds)
	case c.Game.ProposalsPerRound < 0:
		return fmt.Errorf("PROPOSALS_PER_ROUND must not be negative, got %d", c.Game.ProposalsPerRound)
	case len(c.AI.Civilizations) == 0:
		return fmt.Errorf("AI_CIVILIZATIONS must name at least one civilization")
	case c.AI.ProposalChance < 0 || c.AI.ProposalChance > 1:
		return fmt.Errorf("AI_PROPOSAL_CHANCE must be within [0,1], got %v", c.AI.ProposalChance)
	}
	return nil
}
