package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finquest/catalog"
	"finquest/core"
)

// TimeRange selects how far back Summarize looks.
type TimeRange string

const (
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
	RangeAll   TimeRange = "all"
)

// ParseTimeRange accepts week, month, year or all; anything else is an error.
func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case RangeWeek, RangeMonth, RangeYear, RangeAll:
		return r, nil
	case "":
		return RangeAll, nil
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Cutoff returns the earliest included instant, or the zero time for RangeAll.
func (r TimeRange) Cutoff(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// CategoryTotal is the expense total of one category with its display attributes.
type CategoryTotal struct {
	Category core.CategoryID `json:"category"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon"`
	Value    decimal.Decimal `json:"value"`
}

// Bucket is the expense total of one sub-period.
type Bucket struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	order int
}

// Summary is a read-only projection of the expense ledger.
type Summary struct {
	Range             TimeRange       `json:"range"`
	TotalExpense      decimal.Decimal `json:"total_expense"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	Balance           decimal.Decimal `json:"balance"`
	CategoryBreakdown []CategoryTotal `json:"category_breakdown"`
	TimeBreakdown     []Bucket        `json:"time_breakdown"`
	TopCategories     []CategoryTotal `json:"top_categories"`
	Insights          []string        `json:"insights"`
}

// TopCategoryCount is the number of categories reported in TopCategories.
const TopCategoryCount = 3

var (
	savingsGood = decimal.NewFromInt(20)
	trendRise   = decimal.RequireFromString("1.2")
	hundred     = decimal.NewFromInt(100)
)

// Summarize totals txs dated at or after the range cutoff relative to now.
// Time buckets are computed in now's location. The ledger is not modified.
func Summarize(txs []core.Transaction, rng TimeRange, cat *catalog.Catalog, now time.Time) Summary {
	if cat == nil {
		cat = catalog.Default()
	}
	if rng == "" {
		rng = RangeAll
	}
	cutoff := rng.Cutoff(now)
	loc := now.Location()

	s := Summary{
		Range:             rng,
		CategoryBreakdown: []CategoryTotal{},
		TimeBreakdown:     []Bucket{},
		TopCategories:     []CategoryTotal{},
		Insights:          []string{},
	}
	byCategory := map[core.CategoryID]decimal.Decimal{}
	buckets := map[int]*Bucket{}

	for _, tx := range txs {
		if !cutoff.IsZero() && tx.Date.Before(cutoff) {
			continue
		}
		switch tx.Type {
		case core.TxIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case core.TxExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			order, label := bucketOf(rng, tx.Date.In(loc))
			b := buckets[order]
			if b == nil {
				b = &Bucket{Label: label, order: order}
				buckets[order] = b
			}
			b.Value = b.Value.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for id, v := range byCategory {
		c := cat.Category(id)
		s.CategoryBreakdown = append(s.CategoryBreakdown, CategoryTotal{
			Category: id, Label: c.Label, Color: c.Color, Icon: c.Icon, Value: v,
		})
	}
	sort.Slice(s.CategoryBreakdown, func(i, j int) bool {
		return categoryLess(cat, s.CategoryBreakdown[i].Category, s.CategoryBreakdown[j].Category)
	})

	top := append([]CategoryTotal(nil), s.CategoryBreakdown...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Value.GreaterThan(top[j].Value) })
	if len(top) > TopCategoryCount {
		top = top[:TopCategoryCount]
	}
	s.TopCategories = append(s.TopCategories, top...)

	for _, b := range buckets {
		s.TimeBreakdown = append(s.TimeBreakdown, *b)
	}
	sort.Slice(s.TimeBreakdown, func(i, j int) bool { return s.TimeBreakdown[i].order < s.TimeBreakdown[j].order })

	s.Insights = insights(s)
	return s
}

// categoryLess orders by catalog position; unknown ids sort last by id.
func categoryLess(cat *catalog.Catalog, a, b core.CategoryID) bool {
	ra, rb := cat.CategoryRank(a), cat.CategoryRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// bucketOf returns a sort key and label for t: weekday for a week, week of
// month for a month, month for a year, month and year otherwise.
func bucketOf(rng TimeRange, t time.Time) (int, string) {
	switch rng {
	case RangeWeek:
		return int(t.Weekday()), t.Weekday().String()[:3]
	case RangeMonth:
		w := (t.Day()-1)/7 + 1
		return w, fmt.Sprintf("Week %d", w)
	case RangeYear:
		return int(t.Month()), t.Month().String()[:3]
	}
	return t.Year()*12 + int(t.Month()) - 1, fmt.Sprintf("%s %d", t.Month().String()[:3], t.Year())
}

func insights(s Summary) []string {
	out := []string{}
	if len(s.TopCategories) > 0 {
		top := s.TopCategories[0]
		out = append(out, fmt.Sprintf("Your highest spending category is %s (%s).", top.Label, top.Value.StringFixed(2)))
	}

	switch {
	case s.TotalIncome.IsPositive():
		rate := s.Balance.Div(s.TotalIncome).Mul(hundred)
		switch {
		case rate.GreaterThan(savingsGood):
			out = append(out, fmt.Sprintf("Great job! You are saving %s%% of your income.", rate.Round(0)))
		case rate.IsPositive():
			out = append(out, fmt.Sprintf("You are saving %s%% of your income. Try to reach 20%%.", rate.Round(0)))
		default:
			out = append(out, "You are spending more than you earn. Review your expenses.")
		}
	case s.TotalExpense.IsPositive():
		out = append(out, "You are spending more than you earn. Review your expenses.")
	}

	if n := len(s.TimeBreakdown); n >= 2 {
		first, last := s.TimeBreakdown[0], s.TimeBreakdown[n-1]
		switch {
		case last.Value.GreaterThan(first.Value.Mul(trendRise)):
			out = append(out, fmt.Sprintf("Spending increased from %s to %s.", first.Label, last.Label))
		case last.Value.LessThan(first.Value):
			out = append(out, fmt.Sprintf("Spending decreased from %s to %s.", first.Label, last.Label))
		}
	}
	return out
}
