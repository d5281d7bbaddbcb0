package holdem

import (
	"fmt"
)

// MaxSeatsLimit keeps 2 hole cards per seat plus a 5 card board within 52.
const MaxSeatsLimit = 9

type Config struct {
	// Table
	MaxSeats      int
	StartingStack int64

	// Blinds
	SmallBlind int64
	BigBlind   int64

	// RNG seed (0 => time-based)
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		MaxSeats:      MaxSeatsLimit,
		StartingStack: 1000,
		SmallBlind:    5,
		BigBlind:      10,
	}
}

func (c Config) validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > MaxSeatsLimit {
		return fmt.Errorf("MaxSeats must be in [2, %d], got %d", MaxSeatsLimit, c.MaxSeats)
	}
	if c.StartingStack <= 0 {
		return fmt.Errorf("StartingStack must be > 0")
	}
	if c.SmallBlind < 0 || c.BigBlind <= 0 || c.SmallBlind > c.BigBlind {
		return fmt.Errorf("invalid blinds: sb=%d bb=%d", c.SmallBlind, c.BigBlind)
	}
	return nil
}
