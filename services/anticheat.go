package services

import (
	"time"

	"game-economy-service/config"
)

// CheatRule names the bot signature that fired.
type CheatRule string

const (
	RuleTooFast           CheatRule = "too_fast"
	RuleTooManyClicks     CheatRule = "too_many_clicks"
	RuleTooManyEpic       CheatRule = "too_many_epic"
	RuleEpicExceedsClicks CheatRule = "epic_exceeds_clicks"
	RuleEpicRatio         CheatRule = "epic_ratio"
)

// CheckRound applies the timing and volume rules to a finished round.
// A non-empty rule means the user must be blocked. A round that simply ran
// past its allotted time returns ErrRoundExpired and no rule.
func CheckRound(cfg config.AntiCheatConfig, duration time.Duration, clicks, epic int64) (CheatRule, error) {
	if duration < cfg.MinDuration {
		return RuleTooFast, nil
	}
	if duration > cfg.RoundLength+cfg.Grace {
		return "", newError(KindRoundExpired, "round lasted %s, limit is %s", duration.Round(time.Millisecond), cfg.RoundLength+cfg.Grace)
	}

	switch {
	case clicks > cfg.MaxClicks:
		return RuleTooManyClicks, nil
	case epic > cfg.MaxEpic:
		return RuleTooManyEpic, nil
	case epic > clicks:
		return RuleEpicExceedsClicks, nil
	case clicks > 0 && float64(epic)/float64(clicks) > cfg.MaxEpicRatio:
		return RuleEpicRatio, nil
	}
	return "", nil
}
