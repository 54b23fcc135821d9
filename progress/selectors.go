package progress

import (
	"finquest/catalog"
	"finquest/core"
)

// LevelProgress is the display form of a profile's level state.
type LevelProgress struct {
	Level       int     `json:"level"`
	XP          int64   `json:"xp"`
	NextLevelXP int64   `json:"next_level_xp"`
	XPToNext    int64   `json:"xp_to_next"`
	Percent     float64 `json:"percent"`
}

// XPPercent is xp / nextLevelXp as a percentage in [0, 100].
func XPPercent(u core.UserProfile) float64 {
	if u.NextLevelXP <= 0 || u.XP <= 0 {
		return 0
	}
	pct := float64(u.XP) / float64(u.NextLevelXP) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func LevelProgressOf(u core.UserProfile) LevelProgress {
	toNext := u.NextLevelXP - u.XP
	if toNext < 0 {
		toNext = 0
	}
	return LevelProgress{
		Level:       u.Level,
		XP:          u.XP,
		NextLevelXP: u.NextLevelXP,
		XPToNext:    toNext,
		Percent:     XPPercent(u),
	}
}

// LessonStatus pairs a lesson with its availability.
type LessonStatus struct {
	Lesson    catalog.Lesson `json:"lesson"`
	Available bool           `json:"available"`
	Completed bool           `json:"completed"`
}

// Lessons returns every catalog lesson with its status, in catalog order.
func Lessons(cat *catalog.Catalog, s Snapshot) []LessonStatus {
	ls := cat.Lessons()
	out := make([]LessonStatus, 0, len(ls))
	for _, l := range ls {
		out = append(out, LessonStatus{
			Lesson:    l,
			Available: IsLessonAvailable(l, s),
			Completed: IsLessonCompleted(l.ID, s),
		})
	}
	return out
}

// ChallengeStatus pairs a challenge with its availability.
type ChallengeStatus struct {
	Challenge catalog.Challenge `json:"challenge"`
	Available bool              `json:"available"`
	Completed bool              `json:"completed"`
}

func Challenges(cat *catalog.Catalog, s Snapshot) []ChallengeStatus {
	cs := cat.Challenges()
	out := make([]ChallengeStatus, 0, len(cs))
	for _, c := range cs {
		out = append(out, ChallengeStatus{
			Challenge: c,
			Available: IsChallengeAvailable(c, s),
			Completed: IsChallengeCompleted(c.ID, s),
		})
	}
	return out
}

// RewardStatus pairs a reward with its unlock and equip state.
type RewardStatus struct {
	Item     catalog.RewardItem `json:"item"`
	Unlocked bool               `json:"unlocked"`
	Equipped bool               `json:"equipped"`
}

// Rewards returns every catalog reward with its status for the profile.
func Rewards(cat *catalog.Catalog, u core.UserProfile, s Snapshot) []RewardStatus {
	rs := cat.Rewards()
	out := make([]RewardStatus, 0, len(rs))
	for _, r := range rs {
		out = append(out, RewardStatus{
			Item:     r,
			Unlocked: IsRewardUnlocked(r, s),
			Equipped: isEquipped(r, u),
		})
	}
	return out
}

func isEquipped(r catalog.RewardItem, u core.UserProfile) bool {
	switch r.Kind {
	case catalog.KindAvatar:
		return u.Avatar == r.ID
	case catalog.KindBanner:
		return u.Banner == r.ID
	case catalog.KindTheme:
		return u.Theme == r.ID
	case catalog.KindTitle:
		return u.ActiveTitle == r.ID
	}
	return false
}

// View is the aggregate progress page for a player.
type View struct {
	Level      LevelProgress     `json:"level"`
	Streak     int               `json:"streak"`
	Coins      int64             `json:"coins"`
	Lessons    []LessonStatus    `json:"lessons"`
	Challenges []ChallengeStatus `json:"challenges"`
	Quests     []core.Quest      `json:"quests"`
}

// ViewOf builds the progress page from a state.
func ViewOf(cat *catalog.Catalog, st core.State) View {
	s := SnapshotOf(st)
	return View{
		Level:      LevelProgressOf(st.User),
		Streak:     st.User.Streak,
		Coins:      st.User.Coins,
		Lessons:    Lessons(cat, s),
		Challenges: Challenges(cat, s),
		Quests:     append([]core.Quest(nil), st.Quests.Quests...),
	}
}
