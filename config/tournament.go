package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gosimple/slug"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPrizeSplit pays 1st/2nd/3rd place 40/20/10 percent of the pool.
var DefaultPrizeSplit = []int64{40, 20, 10}

// TournamentConfig drives window derivation and settlement.
type TournamentConfig struct {
	HourlyEntryFee   int64
	HourlyJoinWindow time.Duration
	DailyEntryFee    int64
	DailyJoinWindow  time.Duration

	PrizeSplit          []int64
	LeaderboardSize     int
	SettlementBatchSize int

	Events []EventConfig
}

// EventConfig is a named tournament with a fixed window and a pre-set pool.
type EventConfig struct {
	Slug         string    `toml:"slug"`
	Title        string    `toml:"title"`
	StartsAt     time.Time `toml:"starts_at"`
	JoinDeadline time.Time `toml:"join_deadline"`
	EndsAt       time.Time `toml:"ends_at"`
	EntryFee     int64     `toml:"entry_fee"`
	PrizePool    int64     `toml:"prize_pool"`
	PrizeSplit   []int64   `toml:"prize_split"`
}

type eventsFile struct {
	Events []EventConfig `toml:"event"`
}

func DefaultTournamentConfig() TournamentConfig {
	return TournamentConfig{
		HourlyEntryFee:      1,
		HourlyJoinWindow:    50 * time.Minute,
		DailyEntryFee:       5,
		DailyJoinWindow:     23 * time.Hour,
		PrizeSplit:          DefaultPrizeSplit,
		LeaderboardSize:     50,
		SettlementBatchSize: 50,
	}
}

// Event returns the configured event for a normalised slug.
func (c TournamentConfig) Event(s string) (EventConfig, bool) {
	for _, e := range c.Events {
		if e.Slug == s {
			return e, true
		}
	}
	return EventConfig{}, false
}

func (c TournamentConfig) Validate() error {
	if err := validateSplit(c.PrizeSplit); err != nil {
		return fmt.Errorf("prize split: %w", err)
	}
	if c.HourlyJoinWindow > time.Hour {
		return fmt.Errorf("hourly join window %s exceeds the hour", c.HourlyJoinWindow)
	}
	if c.DailyJoinWindow > 24*time.Hour {
		return fmt.Errorf("daily join window %s exceeds the day", c.DailyJoinWindow)
	}
	seen := make(map[string]bool, len(c.Events))
	for _, e := range c.Events {
		if seen[e.Slug] {
			return fmt.Errorf("event %q defined twice", e.Slug)
		}
		seen[e.Slug] = true
		if !e.StartsAt.Before(e.EndsAt) {
			return fmt.Errorf("event %q: starts_at must be before ends_at", e.Slug)
		}
		if e.JoinDeadline.Before(e.StartsAt) || e.JoinDeadline.After(e.EndsAt) {
			return fmt.Errorf("event %q: join_deadline must fall inside the window", e.Slug)
		}
		if e.EntryFee < 0 || e.PrizePool < 0 {
			return fmt.Errorf("event %q: fee and pool must be non-negative", e.Slug)
		}
		if len(e.PrizeSplit) > 0 {
			if err := validateSplit(e.PrizeSplit); err != nil {
				return fmt.Errorf("event %q prize split: %w", e.Slug, err)
			}
		}
	}
	return nil
}

func validateSplit(split []int64) error {
	var total int64
	for _, p := range split {
		if p < 0 {
			return fmt.Errorf("negative percentage %d", p)
		}
		total += p
	}
	if total > 100 {
		return fmt.Errorf("percentages sum to %d", total)
	}
	return nil
}

// LoadEvents decodes a TOML file of [[event]] tables. Slugs are normalised.
func LoadEvents(path string) ([]EventConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	var f eventsFile
	if err := toml.NewDecoder(file).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode events file: %w", err)
	}
	for i := range f.Events {
		e := &f.Events[i]
		if e.Slug == "" {
			e.Slug = e.Title
		}
		e.Slug = slug.Make(e.Slug)
		if e.Title == "" {
			e.Title = e.Slug
		}
		e.StartsAt = e.StartsAt.UTC()
		e.JoinDeadline = e.JoinDeadline.UTC()
		e.EndsAt = e.EndsAt.UTC()
		if e.JoinDeadline.IsZero() {
			e.JoinDeadline = e.EndsAt
		}
	}
	return f.Events, nil
}
