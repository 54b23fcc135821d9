// Package catalog holds the static, read-only content registries: lessons,
// challenges, quest templates, expense categories and reward items.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"finquest/core"
)

// Difficulty tiers gate lessons and challenges by player level.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// DifficultyUnlockLevels maps a tier to the player level required to access it.
var DifficultyUnlockLevels = map[Difficulty]int{
	Beginner:     1,
	Intermediate: 3,
	Advanced:     7,
}

// Lesson is a unit of learning content.
type Lesson struct {
	ID         core.LessonID `json:"id"`
	Title      string        `json:"title"`
	Topic      string        `json:"topic"`
	Difficulty Difficulty    `json:"difficulty"`
	Minutes    int           `json:"minutes"`
	XPReward   int64         `json:"xp_reward"`
	CoinReward int64         `json:"coin_reward"`
}

// Challenge is a practical task that completes once.
type Challenge struct {
	ID          core.ChallengeID `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Difficulty  Difficulty       `json:"difficulty"`
	XPReward    int64            `json:"xp_reward"`
	CoinReward  int64            `json:"coin_reward"`
}

// QuestTemplate describes a quest that can be issued for a period.
type QuestTemplate struct {
	ID          core.QuestID     `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Period      core.QuestPeriod `json:"type"`
	Metric      core.Metric      `json:"metric"`
	Requirement int64            `json:"requirement"`
	Reward      core.QuestReward `json:"reward"`
	Rarity      core.Rarity      `json:"rarity"`
}

// Issue instantiates the template as a fresh quest.
func (t QuestTemplate) Issue() core.Quest {
	return core.Quest{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Period:      t.Period,
		Metric:      t.Metric,
		Reward:      t.Reward,
		Requirement: t.Requirement,
		Rarity:      t.Rarity,
	}
}

// Category is an expense or income category.
type Category struct {
	ID    core.CategoryID `json:"id"`
	Label string          `json:"label"`
	Color string          `json:"color"`
	Icon  string          `json:"icon"`
}

// UnknownCategory is returned for ids missing from the catalog.
var UnknownCategory = Category{ID: "unknown", Label: "Unknown", Color: "#9E9E9E", Icon: "help"}

// RewardKind is the slot a reward item occupies.
type RewardKind string

const (
	KindAvatar RewardKind = "avatar"
	KindBanner RewardKind = "banner"
	KindTheme  RewardKind = "theme"
	KindTitle  RewardKind = "title"
)

// UnlockRule is a numeric threshold on a progress metric.
type UnlockRule struct {
	Metric    core.Metric `json:"metric"`
	Threshold int64       `json:"threshold"`
}

// RewardItem is a cosmetic or status reward.
type RewardItem struct {
	ID     core.RewardID `json:"id"`
	Kind   RewardKind    `json:"kind"`
	Name   string        `json:"name"`
	Rarity core.Rarity   `json:"rarity"`
	Cost   int64         `json:"cost"`
	// Unlocked marks items available from the start.
	Unlocked bool `json:"unlocked"`
	// Rules are OR-composed: any satisfied rule unlocks the item.
	Rules             []UnlockRule `json:"rules,omitempty"`
	UnlockRequirement string       `json:"unlock_requirement"`
}

// Catalog is an immutable set of registries with lookup indexes.
type Catalog struct {
	lessons    []Lesson
	challenges []Challenge
	quests     []QuestTemplate
	categories []Category
	rewards    []RewardItem

	lessonIdx    map[core.LessonID]int
	challengeIdx map[core.ChallengeID]int
	questIdx     map[core.QuestID]int
	categoryIdx  map[core.CategoryID]int
	rewardIdx    map[core.RewardID]int
}

// Content is the raw material a Catalog is built from.
type Content struct {
	Lessons    []Lesson
	Challenges []Challenge
	Quests     []QuestTemplate
	Categories []Category
	Rewards    []RewardItem
}

// New validates content and builds a catalog.
func New(c Content) (*Catalog, error) {
	cat := &Catalog{
		lessons:      append([]Lesson(nil), c.Lessons...),
		challenges:   append([]Challenge(nil), c.Challenges...),
		quests:       append([]QuestTemplate(nil), c.Quests...),
		categories:   append([]Category(nil), c.Categories...),
		rewards:      append([]RewardItem(nil), c.Rewards...),
		lessonIdx:    make(map[core.LessonID]int, len(c.Lessons)),
		challengeIdx: make(map[core.ChallengeID]int, len(c.Challenges)),
		questIdx:     make(map[core.QuestID]int, len(c.Quests)),
		categoryIdx:  make(map[core.CategoryID]int, len(c.Categories)),
		rewardIdx:    make(map[core.RewardID]int, len(c.Rewards)),
	}

	var errs []string
	for i, l := range cat.lessons {
		if err := index(cat.lessonIdx, l.ID, i); err != nil {
			errs = append(errs, "lesson: "+err.Error())
		}
		if _, ok := DifficultyUnlockLevels[l.Difficulty]; !ok {
			errs = append(errs, fmt.Sprintf("lesson %s: invalid difficulty %q", l.ID, l.Difficulty))
		}
	}
	for i, ch := range cat.challenges {
		if err := index(cat.challengeIdx, ch.ID, i); err != nil {
			errs = append(errs, "challenge: "+err.Error())
		}
		if _, ok := DifficultyUnlockLevels[ch.Difficulty]; !ok {
			errs = append(errs, fmt.Sprintf("challenge %s: invalid difficulty %q", ch.ID, ch.Difficulty))
		}
	}
	for i, q := range cat.quests {
		if err := index(cat.questIdx, q.ID, i); err != nil {
			errs = append(errs, "quest: "+err.Error())
		}
		if q.Requirement < 1 {
			errs = append(errs, fmt.Sprintf("quest %s: requirement must be >= 1", q.ID))
		}
		if !q.Metric.Valid() {
			errs = append(errs, fmt.Sprintf("quest %s: unknown metric %q", q.ID, q.Metric))
		}
	}
	for i, cg := range cat.categories {
		if err := index(cat.categoryIdx, cg.ID, i); err != nil {
			errs = append(errs, "category: "+err.Error())
		}
	}
	for i, r := range cat.rewards {
		if err := index(cat.rewardIdx, r.ID, i); err != nil {
			errs = append(errs, "reward: "+err.Error())
		}
		if r.Cost < 0 {
			errs = append(errs, fmt.Sprintf("reward %s: cost must be >= 0", r.ID))
		}
		for _, rule := range r.Rules {
			if !rule.Metric.Valid() {
				errs = append(errs, fmt.Sprintf("reward %s: unknown metric %q", r.ID, rule.Metric))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return cat, nil
}

func index[K ~string](m map[K]int, id K, i int) error {
	if err := core.ValidateID(string(id)); err != nil {
		return fmt.Errorf("%q: %w", id, err)
	}
	if _, dup := m[id]; dup {
		return fmt.Errorf("duplicate id %q", id)
	}
	m[id] = i
	return nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in catalog. It is shared and must not be modified.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(Content{
			Lessons:    defaultLessons,
			Challenges: defaultChallenges,
			Quests:     defaultQuests,
			Categories: defaultCategories,
			Rewards:    defaultRewards,
		})
		if err != nil {
			panic("catalog: invalid built-in content: " + err.Error())
		}
		defaultCat = c
	})
	return defaultCat
}

func (c *Catalog) Lesson(id core.LessonID) (Lesson, bool) {
	i, ok := c.lessonIdx[id]
	if !ok {
		return Lesson{}, false
	}
	return c.lessons[i], true
}

func (c *Catalog) Challenge(id core.ChallengeID) (Challenge, bool) {
	i, ok := c.challengeIdx[id]
	if !ok {
		return Challenge{}, false
	}
	return c.challenges[i], true
}

func (c *Catalog) QuestTemplate(id core.QuestID) (QuestTemplate, bool) {
	i, ok := c.questIdx[id]
	if !ok {
		return QuestTemplate{}, false
	}
	return c.quests[i], true
}

func (c *Catalog) Reward(id core.RewardID) (RewardItem, bool) {
	i, ok := c.rewardIdx[id]
	if !ok {
		return RewardItem{}, false
	}
	return c.rewards[i], true
}

// Category resolves id, falling back to UnknownCategory.
func (c *Catalog) Category(id core.CategoryID) Category {
	if i, ok := c.categoryIdx[id]; ok {
		return c.categories[i]
	}
	return UnknownCategory
}

// CategoryRank is the catalog position of id, or len(categories) for unknown ids.
func (c *Catalog) CategoryRank(id core.CategoryID) int {
	if i, ok := c.categoryIdx[id]; ok {
		return i
	}
	return len(c.categories)
}

// Slices returned below are copies in catalog order.

func (c *Catalog) Lessons() []Lesson               { return append([]Lesson(nil), c.lessons...) }
func (c *Catalog) Challenges() []Challenge         { return append([]Challenge(nil), c.challenges...) }
func (c *Catalog) Categories() []Category          { return append([]Category(nil), c.categories...) }
func (c *Catalog) Rewards() []RewardItem           { return append([]RewardItem(nil), c.rewards...) }
func (c *Catalog) QuestTemplates() []QuestTemplate { return append([]QuestTemplate(nil), c.quests...) }

// RewardsOf returns the rewards of one kind.
func (c *Catalog) RewardsOf(kind RewardKind) []RewardItem {
	var out []RewardItem
	for _, r := range c.rewards {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// QuestTemplatesFor returns the templates of one period.
func (c *Catalog) QuestTemplatesFor(p core.QuestPeriod) []QuestTemplate {
	var out []QuestTemplate
	for _, q := range c.quests {
		if q.Period == p {
			out = append(out, q)
		}
	}
	return out
}
