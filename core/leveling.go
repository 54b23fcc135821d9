package core

import "math"

const (
	// BaseLevelXP is the XP needed to go from level 1 to level 2.
	BaseLevelXP int64 = 100

	// LevelGrowthFactor multiplies the threshold on every level-up.
	LevelGrowthFactor = 1.5
)

// NextLevelThreshold returns the threshold that follows current.
// The result is floored and always strictly greater than current.
func NextLevelThreshold(current int64) int64 {
	if current <= 0 {
		return BaseLevelXP
	}
	next := int64(math.Floor(float64(current) * LevelGrowthFactor))
	if next <= current {
		next = current + 1
	}
	return next
}

// ApplyXP credits delta XP and rolls over as many level-ups as needed so that
// the returned xp is strictly below the returned threshold.
func ApplyXP(level int, xp, next, delta int64) (newLevel int, newXP, newNext int64, gained int) {
	if level < 1 {
		level = 1
	}
	if next <= 0 {
		next = BaseLevelXP
	}
	xp += delta
	if xp < 0 {
		xp = 0
	}
	for xp >= next {
		xp -= next
		level++
		gained++
		next = NextLevelThreshold(next)
	}
	return level, xp, next, gained
}

// ThresholdForLevel returns nextLevelXp of a profile that has just reached level.
func ThresholdForLevel(level int) int64 {
	t := BaseLevelXP
	for i := 1; i < level; i++ {
		t = NextLevelThreshold(t)
	}
	return t
}
