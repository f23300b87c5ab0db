package services

import "game-economy-service/config"

// xpForNextLevel returns the XP needed to go from level to level+1.
// e.g. with base 100 and step 50: L1→L2 = 100, L2→L3 = 150
func xpForNextLevel(cfg config.RewardConfig, level int) int64 {
	if level < 1 {
		level = 1
	}
	return cfg.LevelBaseXP + int64(level-1)*cfg.LevelStepXP
}

// Progress is a user's level and the XP carried toward the next one.
type Progress struct {
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// ApplyXP adds gained XP and levels up while the carried XP exceeds the next
// threshold. The loop is bounded by MaxLevelUpsPerRound; any excess XP stays
// carried and is spent on the next award.
func ApplyXP(cfg config.RewardConfig, p Progress, gained int64) (Progress, int) {
	if p.Level < 1 {
		p.Level = 1
	}
	p.XP += gained

	ups := 0
	for ups < cfg.MaxLevelUpsPerRound {
		need := xpForNextLevel(cfg, p.Level)
		if need <= 0 || p.XP <= need {
			break
		}
		p.XP -= need
		p.Level++
		ups++
	}
	return p, ups
}
