// Package idgen produces primary keys for stored entities.
package idgen

import (
	"fmt"
	"strings"
)

// Strategies understood by New.
const (
	StrategyUUID   = "uuid"
	StrategyULID   = "ulid"
	StrategyKSUID  = "ksuid"
	StrategyNanoID = "nanoid"
	StrategyCUID2  = "cuid2"
)

// Generator creates string IDs.
type Generator interface {
	Generate() (string, error)
	Strategy() string
}

// Config selects and tunes the ID strategy.
type Config struct {
	Strategy string `mapstructure:"strategy"`
	Length   int    `mapstructure:"length"` // nanoid and cuid2 only
}

// New returns the generator for cfg.Strategy. An empty strategy means uuid.
// IDs never exceed 36 characters so they fit the varchar(36) key columns.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategyUUID:
		return NewUUIDGenerator(), nil
	case StrategyULID:
		return NewULIDGenerator(), nil
	case StrategyKSUID:
		return NewKSUIDGenerator(), nil
	case StrategyNanoID:
		size := cfg.Length
		if size == 0 {
			size = DefaultNanoIDSize
		}
		return NewNanoIDGenerator(size, DefaultNanoIDAlphabet)
	case StrategyCUID2:
		length := cfg.Length
		if length == 0 {
			length = DefaultCUID2Length
		}
		return NewCUID2Generator(length)
	default:
		return nil, fmt.Errorf("unknown id strategy: %s", cfg.Strategy)
	}
}
