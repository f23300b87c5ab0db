package services

import (
	"fmt"
	"strings"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"

	"github.com/gosimple/slug"
)

// Window is the fixed shape of a tournament, derived once from config and time.
type Window struct {
	Key          string
	Kind         models.TournamentKind
	Slug         string
	StartsAt     time.Time
	JoinDeadline time.Time
	EndsAt       time.Time
	EntryFee     int64
	PrizePool    int64
	Rules        models.TournamentRules
}

// ResolveWindow maps "hourly", "daily" or an event slug to the window live at now.
func ResolveWindow(cfg config.TournamentConfig, windowOrSlug string, now time.Time) (Window, error) {
	now = now.UTC()
	key := strings.ToLower(strings.TrimSpace(windowOrSlug))

	switch models.TournamentKind(key) {
	case models.TournamentHourly:
		start := now.Truncate(time.Hour)
		return Window{
			Key:          "hourly:" + start.Format("2006010215"),
			Kind:         models.TournamentHourly,
			StartsAt:     start,
			JoinDeadline: start.Add(cfg.HourlyJoinWindow),
			EndsAt:       start.Add(time.Hour),
			EntryFee:     cfg.HourlyEntryFee,
			Rules: models.TournamentRules{
				Title:      "Hourly tournament " + start.Format("15:04") + " UTC",
				PrizeSplit: cfg.PrizeSplit,
			},
		}, nil
	case models.TournamentDaily:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return Window{
			Key:          "daily:" + start.Format("20060102"),
			Kind:         models.TournamentDaily,
			StartsAt:     start,
			JoinDeadline: start.Add(cfg.DailyJoinWindow),
			EndsAt:       start.Add(24 * time.Hour),
			EntryFee:     cfg.DailyEntryFee,
			Rules: models.TournamentRules{
				Title:      "Daily tournament " + start.Format("Jan 2"),
				PrizeSplit: cfg.PrizeSplit,
			},
		}, nil
	}

	s := slug.Make(key)
	if s == "" {
		return Window{}, newError(KindInvalidPayload, "tournament window or slug is required")
	}
	event, ok := cfg.Event(s)
	if !ok {
		return Window{}, newError(KindNotFound, "no event %q", s)
	}
	split := event.PrizeSplit
	if len(split) == 0 {
		split = cfg.PrizeSplit
	}
	return Window{
		Key:          fmt.Sprintf("event:%s:%d", event.Slug, event.StartsAt.Unix()),
		Kind:         models.TournamentEvent,
		Slug:         event.Slug,
		StartsAt:     event.StartsAt,
		JoinDeadline: event.JoinDeadline,
		EndsAt:       event.EndsAt,
		EntryFee:     event.EntryFee,
		PrizePool:    event.PrizePool,
		Rules: models.TournamentRules{
			Title:      event.Title,
			PrizeSplit: split,
		},
	}, nil
}

// StatusAt is the status a freshly created tournament for w gets at now.
func (w Window) StatusAt(now time.Time) models.TournamentStatus {
	if now.Before(w.StartsAt) {
		return models.TournamentPlanned
	}
	return models.TournamentActive
}
