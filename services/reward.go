package services

import "game-economy-service/config"

// ServerScore is the only score rewards are computed from.
func ServerScore(cfg config.RewardConfig, clicks, epic int64) int64 {
	return clicks*cfg.ClickWeight + epic*cfg.EpicWeight
}

// StarsReward: floor(score/scale) clamped to [MinReward, MaxBaseReward], plus every
// reached tier bonus, capped at MaxReward.
func StarsReward(cfg config.RewardConfig, score int64) int64 {
	base := int64(0)
	if cfg.RewardScale > 0 {
		base = score / cfg.RewardScale
	}
	if base < cfg.MinReward {
		base = cfg.MinReward
	}
	if base > cfg.MaxBaseReward {
		base = cfg.MaxBaseReward
	}

	reward := base
	for _, tier := range cfg.Tiers {
		if score >= tier.MinScore {
			reward += tier.Bonus
		}
	}
	if reward > cfg.MaxReward {
		reward = cfg.MaxReward
	}
	return reward
}

func XPGain(cfg config.RewardConfig, score int64) int64 {
	if cfg.XPDivisor <= 0 {
		return 0
	}
	return score / cfg.XPDivisor
}
