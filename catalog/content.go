package catalog

import "finquest/core"

var defaultLessons = []Lesson{
	{ID: "what-is-money", Title: "What Is Money?", Topic: "basics", Difficulty: Beginner, Minutes: 5, XPReward: 50, CoinReward: 10},
	{ID: "needs-vs-wants", Title: "Needs vs Wants", Topic: "basics", Difficulty: Beginner, Minutes: 6, XPReward: 50, CoinReward: 10},
	{ID: "budget-basics", Title: "Budget Basics", Topic: "budgeting", Difficulty: Beginner, Minutes: 8, XPReward: 75, CoinReward: 15},
	{ID: "saving-habits", Title: "Building Saving Habits", Topic: "saving", Difficulty: Beginner, Minutes: 7, XPReward: 75, CoinReward: 15},
	{ID: "banking-101", Title: "Banking 101", Topic: "banking", Difficulty: Intermediate, Minutes: 10, XPReward: 100, CoinReward: 20},
	{ID: "credit-and-debt", Title: "Credit and Debt", Topic: "credit", Difficulty: Intermediate, Minutes: 12, XPReward: 120, CoinReward: 25},
	{ID: "compound-interest", Title: "The Magic of Compound Interest", Topic: "investing", Difficulty: Intermediate, Minutes: 10, XPReward: 120, CoinReward: 25},
	{ID: "investing-intro", Title: "Introduction to Investing", Topic: "investing", Difficulty: Advanced, Minutes: 15, XPReward: 200, CoinReward: 40},
	{ID: "taxes-explained", Title: "Taxes Explained", Topic: "taxes", Difficulty: Advanced, Minutes: 15, XPReward: 200, CoinReward: 40},
	{ID: "retirement-planning", Title: "Planning for Retirement", Topic: "investing", Difficulty: Advanced, Minutes: 18, XPReward: 250, CoinReward: 50},
}

var defaultChallenges = []Challenge{
	{ID: "no-spend-day", Title: "No-Spend Day", Description: "Go a full day without buying anything.", Difficulty: Beginner, XPReward: 60, CoinReward: 20},
	{ID: "track-a-week", Title: "Track a Week", Description: "Log every expense for seven days.", Difficulty: Beginner, XPReward: 80, CoinReward: 25},
	{ID: "first-savings-goal", Title: "First Savings Goal", Description: "Create a savings goal and make a deposit.", Difficulty: Beginner, XPReward: 80, CoinReward: 25},
	{ID: "compare-prices", Title: "Price Detective", Description: "Compare prices at three stores before a purchase.", Difficulty: Intermediate, XPReward: 120, CoinReward: 35},
	{ID: "fifty-thirty-twenty", Title: "50/30/20 Month", Description: "Split a month's income by the 50/30/20 rule.", Difficulty: Intermediate, XPReward: 150, CoinReward: 40},
	{ID: "emergency-fund", Title: "Emergency Fund", Description: "Save three months of expenses.", Difficulty: Advanced, XPReward: 300, CoinReward: 80},
}

var defaultQuests = []QuestTemplate{
	{ID: "daily-lesson", Title: "Daily Learner", Description: "Complete 1 lesson today.", Period: core.QuestDaily, Metric: core.MetricLessons, Requirement: 1, Reward: core.QuestReward{XP: 20, Coins: 5}, Rarity: core.RarityCommon},
	{ID: "daily-expense", Title: "Penny Tracker", Description: "Log 2 transactions today.", Period: core.QuestDaily, Metric: core.MetricExpenses, Requirement: 2, Reward: core.QuestReward{XP: 15, Coins: 5}, Rarity: core.RarityCommon},
	{ID: "daily-deposit", Title: "Feed the Piggy", Description: "Make a piggy bank deposit today.", Period: core.QuestDaily, Metric: core.MetricDeposits, Requirement: 1, Reward: core.QuestReward{XP: 15, Coins: 10}, Rarity: core.RarityCommon},
	{ID: "daily-login", Title: "Show Up", Description: "Keep a streak of at least 1 day.", Period: core.QuestDaily, Metric: core.MetricStreak, Requirement: 1, Reward: core.QuestReward{XP: 10, Coins: 5}, Rarity: core.RarityCommon},
	{ID: "weekly-lessons", Title: "Scholar of the Week", Description: "Complete 5 lessons this week.", Period: core.QuestWeekly, Metric: core.MetricLessons, Requirement: 5, Reward: core.QuestReward{XP: 100, Coins: 30}, Rarity: core.RarityUncommon},
	{ID: "weekly-challenge", Title: "Challenger", Description: "Complete 2 challenges this week.", Period: core.QuestWeekly, Metric: core.MetricChallenges, Requirement: 2, Reward: core.QuestReward{XP: 120, Coins: 40}, Rarity: core.RarityRare},
	{ID: "weekly-streak", Title: "Seven Straight", Description: "Reach a 7 day streak.", Period: core.QuestWeekly, Metric: core.MetricStreak, Requirement: 7, Reward: core.QuestReward{XP: 150, Coins: 50}, Rarity: core.RarityRare},
	{ID: "monthly-saver", Title: "Monthly Saver", Description: "Make 10 piggy bank deposits this month.", Period: core.QuestMonthly, Metric: core.MetricDeposits, Requirement: 10, Reward: core.QuestReward{XP: 300, Coins: 100}, Rarity: core.RarityEpic},
	{ID: "monthly-bookkeeper", Title: "Bookkeeper", Description: "Log 30 transactions this month.", Period: core.QuestMonthly, Metric: core.MetricExpenses, Requirement: 30, Reward: core.QuestReward{XP: 250, Coins: 80}, Rarity: core.RarityEpic},
	{ID: "monthly-goal-setter", Title: "Goal Setter", Description: "Create 2 savings goals this month.", Period: core.QuestMonthly, Metric: core.MetricGoals, Requirement: 2, Reward: core.QuestReward{XP: 200, Coins: 60}, Rarity: core.RarityLegendary},
}

var defaultCategories = []Category{
	{ID: "food", Label: "Food & Dining", Color: "#FF6384", Icon: "utensils"},
	{ID: "transport", Label: "Transport", Color: "#36A2EB", Icon: "bus"},
	{ID: "entertainment", Label: "Entertainment", Color: "#FFCE56", Icon: "film"},
	{ID: "shopping", Label: "Shopping", Color: "#4BC0C0", Icon: "shopping-bag"},
	{ID: "bills", Label: "Bills & Utilities", Color: "#9966FF", Icon: "file-invoice"},
	{ID: "health", Label: "Health", Color: "#FF9F40", Icon: "heartbeat"},
	{ID: "education", Label: "Education", Color: "#2ECC71", Icon: "graduation-cap"},
	{ID: "salary", Label: "Salary", Color: "#27AE60", Icon: "wallet"},
	{ID: "allowance", Label: "Allowance", Color: "#16A085", Icon: "hand-holding-usd"},
	{ID: "gift", Label: "Gifts", Color: "#E91E63", Icon: "gift"},
	{ID: "other", Label: "Other", Color: "#95A5A6", Icon: "ellipsis-h"},
}

var defaultRewards = []RewardItem{
	// avatars
	{ID: "avatar-piggy", Kind: KindAvatar, Name: "Piggy", Rarity: core.RarityCommon, Unlocked: true, UnlockRequirement: "Available from the start"},
	{ID: "avatar-owl", Kind: KindAvatar, Name: "Wise Owl", Rarity: core.RarityUncommon, Cost: 100, Rules: []UnlockRule{{Metric: core.MetricLessons, Threshold: 3}}, UnlockRequirement: "Complete 3 lessons"},
	{ID: "avatar-fox", Kind: KindAvatar, Name: "Savvy Fox", Rarity: core.RarityRare, Cost: 250, Rules: []UnlockRule{{Metric: core.MetricLevel, Threshold: 5}}, UnlockRequirement: "Reach level 5"},
	{ID: "avatar-dragon", Kind: KindAvatar, Name: "Gold Dragon", Rarity: core.RarityLegendary, Cost: 1000, Rules: []UnlockRule{{Metric: core.MetricLevel, Threshold: 15}, {Metric: core.MetricStreak, Threshold: 60}}, UnlockRequirement: "Reach level 15 or a 60 day streak"},
	// banners
	{ID: "banner-sunrise", Kind: KindBanner, Name: "Sunrise", Rarity: core.RarityCommon, Unlocked: true, UnlockRequirement: "Available from the start"},
	{ID: "banner-coins", Kind: KindBanner, Name: "Coin Rain", Rarity: core.RarityUncommon, Cost: 150, Rules: []UnlockRule{{Metric: core.MetricChallenges, Threshold: 2}}, UnlockRequirement: "Complete 2 challenges"},
	{ID: "banner-flame", Kind: KindBanner, Name: "On Fire", Rarity: core.RarityRare, Cost: 300, Rules: []UnlockRule{{Metric: core.MetricStreak, Threshold: 7}}, UnlockRequirement: "Reach a 7 day streak"},
	{ID: "banner-galaxy", Kind: KindBanner, Name: "Galaxy", Rarity: core.RarityEpic, Cost: 600, Rules: []UnlockRule{{Metric: core.MetricLevel, Threshold: 10}}, UnlockRequirement: "Reach level 10"},
	// themes
	{ID: "theme-light", Kind: KindTheme, Name: "Light", Rarity: core.RarityCommon, Unlocked: true, UnlockRequirement: "Available from the start"},
	{ID: "theme-dark", Kind: KindTheme, Name: "Dark", Rarity: core.RarityCommon, Unlocked: true, UnlockRequirement: "Available from the start"},
	{ID: "theme-ocean", Kind: KindTheme, Name: "Ocean", Rarity: core.RarityUncommon, Cost: 200, Rules: []UnlockRule{{Metric: core.MetricLevel, Threshold: 3}}, UnlockRequirement: "Reach level 3"},
	{ID: "theme-emerald", Kind: KindTheme, Name: "Emerald Vault", Rarity: core.RarityEpic, Cost: 500, Rules: []UnlockRule{{Metric: core.MetricLessons, Threshold: 8}, {Metric: core.MetricChallenges, Threshold: 5}}, UnlockRequirement: "Complete 8 lessons or 5 challenges"},
	// titles
	{ID: "title-rookie", Kind: KindTitle, Name: "Money Rookie", Rarity: core.RarityCommon, Unlocked: true, UnlockRequirement: "Available from the start"},
	{ID: "title-saver", Kind: KindTitle, Name: "Super Saver", Rarity: core.RarityUncommon, Cost: 150, Rules: []UnlockRule{{Metric: core.MetricDeposits, Threshold: 5}}, UnlockRequirement: "Make 5 piggy bank deposits"},
	{ID: "title-scholar", Kind: KindTitle, Name: "Finance Scholar", Rarity: core.RarityRare, Cost: 300, Rules: []UnlockRule{{Metric: core.MetricLessons, Threshold: 5}}, UnlockRequirement: "Complete 5 lessons"},
	{ID: "title-tycoon", Kind: KindTitle, Name: "Tycoon", Rarity: core.RarityLegendary, Cost: 2000, Rules: []UnlockRule{{Metric: core.MetricLevel, Threshold: 20}}, UnlockRequirement: "Reach level 20"},
}
