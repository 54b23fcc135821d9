package core

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow")
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" Alice ")
	if err != nil || id != "alice" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("budget_basics-1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateID("bad id"); err == nil {
		t.Fatalf("expected invalid id err")
	}
}

func TestApplyXPRollsOverMultipleLevels(t *testing.T) {
	// 100 -> 150 -> 225
	level, xp, next, gained := ApplyXP(1, 0, 100, 250)
	if level != 3 || xp != 0 || next != 225 || gained != 2 {
		t.Fatalf("got level=%d xp=%d next=%d gained=%d", level, xp, next, gained)
	}
	level, xp, next, _ = ApplyXP(1, 0, 100, 99)
	if level != 1 || xp != 99 || next != 100 {
		t.Fatalf("got level=%d xp=%d next=%d", level, xp, next)
	}
}

func TestNextLevelThresholdStrictlyIncreases(t *testing.T) {
	for _, cur := range []int64{1, 2, 3, 100, 151} {
		if NextLevelThreshold(cur) <= cur {
			t.Fatalf("threshold after %d did not grow", cur)
		}
	}
	if ThresholdForLevel(1) != BaseLevelXP || ThresholdForLevel(3) != 225 {
		t.Fatalf("unexpected thresholds %d %d", ThresholdForLevel(1), ThresholdForLevel(3))
	}
}

func TestPiggyBankConserved(t *testing.T) {
	now := time.Now()
	p := PiggyBank{Balance: 30, History: []PiggyEntry{
		{Type: PiggyDeposit, Amount: 30, Date: now},
		{Type: PiggyWithdraw, Amount: 50, Date: now},
		{Type: PiggyDeposit, Amount: 50, Date: now},
	}}
	if !p.Conserved() {
		t.Fatal("expected conserved ledger")
	}
	p.Balance = 31
	if p.Conserved() {
		t.Fatal("expected mismatch")
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	st := NewState("alice", "Alice", 0)
	st.User.CompletedLessons["l1"] = struct{}{}
	st.Expenses = append(st.Expenses, Transaction{ID: "t1", Type: TxExpense, Amount: decimal.NewFromInt(5), Date: time.Now()})

	cp := st.Clone()
	cp.User.CompletedLessons["l2"] = struct{}{}
	cp.Expenses[0].ID = "changed"

	if _, ok := st.User.CompletedLessons["l2"]; ok {
		t.Fatal("clone shares lesson set")
	}
	if st.Expenses[0].ID != "t1" {
		t.Fatal("clone shares expense slice")
	}
}

func TestGoalValidate(t *testing.T) {
	g := Goal{ID: "g1", Title: "Bike", TargetAmount: decimal.NewFromInt(200), Priority: PriorityHigh}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	g.TargetAmount = decimal.Zero
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for zero target")
	}
}
