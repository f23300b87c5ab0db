package config

import "time"

// AntiCheatConfig holds the thresholds a finished round is checked against.
type AntiCheatConfig struct {
	MinDuration  time.Duration // faster than this is a bot or a replay
	RoundLength  time.Duration
	Grace        time.Duration
	MaxClicks    int64
	MaxEpic      int64
	MaxEpicRatio float64
}

func DefaultAntiCheatConfig() AntiCheatConfig {
	return AntiCheatConfig{
		MinDuration:  8 * time.Second,
		RoundLength:  30 * time.Second,
		Grace:        5 * time.Second,
		MaxClicks:    600,
		MaxEpic:      60,
		MaxEpicRatio: 0.25,
	}
}

// RewardTier adds Bonus stars once the server score reaches MinScore.
type RewardTier struct {
	MinScore int64
	Bonus    int64
}

// RewardConfig holds scoring weights, reward clamps and the level curve.
type RewardConfig struct {
	ClickWeight int64
	EpicWeight  int64

	RewardScale   int64
	MinReward     int64
	MaxBaseReward int64
	Tiers         []RewardTier // ascending MinScore, every reached tier applies
	MaxReward     int64

	XPDivisor           int64
	LevelBaseXP         int64
	LevelStepXP         int64
	MaxLevelUpsPerRound int

	ReferralTickets int
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		ClickWeight:   1,
		EpicWeight:    10,
		RewardScale:   12,
		MinReward:     3,
		MaxBaseReward: 40,
		Tiers: []RewardTier{
			{MinScore: 300, Bonus: 5},
			{MinScore: 600, Bonus: 10},
		},
		MaxReward:           60,
		XPDivisor:           10,
		LevelBaseXP:         100,
		LevelStepXP:         50,
		MaxLevelUpsPerRound: 10,
		ReferralTickets:     5,
	}
}
