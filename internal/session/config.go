package session

import (
	"time"

	"contest-service/internal/domain"
)

// Mode is how a round paces its questions.
type Mode string

const (
	// ModePerQuestion restarts the clock for every question and advances on expiry.
	ModePerQuestion Mode = "per_question"
	// ModeBatched shows every question under one round budget.
	ModeBatched Mode = "batched"
	// ModeChallenge collects Round 3 payloads under one round budget.
	ModeChallenge Mode = "challenge"
)

// RoundSettings configures pacing for one round.
type RoundSettings struct {
	Mode            Mode
	QuestionSeconds int
	BudgetSeconds   int
}

// Config holds the session runtime settings.
type Config struct {
	Rounds map[domain.Round]RoundSettings
	// Variants lists the language or track choices offered on entry per round.
	Variants map[domain.Round][]string
	// ActivePoll is the gate poll interval during a session, IdlePoll before it starts.
	ActivePoll   time.Duration
	IdlePoll     time.Duration
	TickInterval time.Duration
	// CallTimeout bounds each backend round-trip.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Rounds: map[domain.Round]RoundSettings{
			domain.Round1: {Mode: ModePerQuestion, QuestionSeconds: 60},
			domain.Round2: {Mode: ModeBatched, QuestionSeconds: 60, BudgetSeconds: 1200},
			domain.Round3: {Mode: ModeChallenge, BudgetSeconds: 5400},
		},
		Variants: map[domain.Round][]string{
			domain.Round1: {"python", "c"},
			domain.Round3: {string(domain.TrackDSA), string(domain.TrackWeb)},
		},
		ActivePoll:   5 * time.Second,
		IdlePoll:     10 * time.Second,
		TickInterval: time.Second,
		CallTimeout:  10 * time.Second,
	}
}

func (c Config) settings(round domain.Round) RoundSettings {
	s, ok := c.Rounds[round]
	if !ok {
		s = DefaultConfig().Rounds[round]
	}
	if s.Mode == "" {
		s.Mode = ModePerQuestion
	}
	if s.Mode == ModePerQuestion && s.QuestionSeconds <= 0 {
		s.QuestionSeconds = 60
	}
	if s.Mode != ModePerQuestion && s.BudgetSeconds <= 0 {
		s.BudgetSeconds = 1200
	}
	return s
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Rounds == nil {
		c.Rounds = d.Rounds
	}
	if c.Variants == nil {
		c.Variants = d.Variants
	}
	if c.ActivePoll <= 0 {
		c.ActivePoll = d.ActivePoll
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = d.IdlePoll
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}
