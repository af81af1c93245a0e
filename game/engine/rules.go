package engine

import (
	"fmt"
	"time"
)

// Rules are the per-server tunables loaded from a rule-set file
type Rules struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	BoardSize    int    `json:"board_size" yaml:"board_size"`
	GraceSeconds int    `json:"grace_seconds" yaml:"grace_seconds"`
	// StrictTurns rejects out-of-turn shots and repeated cells. Off by default.
	StrictTurns bool `json:"strict_turns" yaml:"strict_turns"`
}

// DefaultRules returns the classic 10x10 rule set with a 15 second grace period
func DefaultRules() Rules {
	return Rules{
		Name:         "classic",
		Description:  "Classic 10x10 naval duel",
		BoardSize:    DefaultBoardSize,
		GraceSeconds: DefaultGraceSeconds,
	}
}

// GracePeriod returns the reconnect window as a duration
func (r Rules) GracePeriod() time.Duration {
	return time.Duration(r.GraceSeconds) * time.Second
}

// ValidateRules checks a rule set for usable values
func ValidateRules(r *Rules) error {
	if r.Name == "" {
		return fmt.Errorf("rules validation: name is required")
	}
	if r.BoardSize < MinBoardSize || r.BoardSize > MaxBoardSize {
		return fmt.Errorf("rules validation: board_size must be between %d and %d, got %d",
			MinBoardSize, MaxBoardSize, r.BoardSize)
	}
	if r.GraceSeconds < 1 || r.GraceSeconds > MaxGraceSeconds {
		return fmt.Errorf("rules validation: grace_seconds must be between 1 and %d, got %d",
			MaxGraceSeconds, r.GraceSeconds)
	}

	// The carrier must fit on the board in at least one orientation
	if r.BoardSize < Carrier.Size() {
		return fmt.Errorf("rules validation: board_size %d cannot hold a %s", r.BoardSize, Carrier)
	}

	return nil
}
