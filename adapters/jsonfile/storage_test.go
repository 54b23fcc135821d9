package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finquest/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	date := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	st := core.NewState("alice", "Alice", 100)
	st.User.CompletedLessons["budget-basics"] = struct{}{}
	st.PiggyBank = core.PiggyBank{Balance: 50, History: []core.PiggyEntry{{Type: core.PiggyDeposit, Amount: 50, Date: date}}}
	st.Expenses = []core.Transaction{{ID: "t1", Type: core.TxExpense, Amount: decimal.RequireFromString("12.50"), Category: "food", Date: date, CreatedAt: date}}

	if err := store.Save(ctx, "alice", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	// reload
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, found, err := reloaded.Load(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.User.Coins != 100 {
		t.Fatalf("expected coins 100, got %d", got.User.Coins)
	}
	if _, ok := got.User.CompletedLessons["budget-basics"]; !ok {
		t.Fatalf("expected lesson budget-basics")
	}
	if !got.PiggyBank.Conserved() || got.PiggyBank.Balance != 50 {
		t.Fatalf("piggy bank not restored: %+v", got.PiggyBank)
	}
	if len(got.Expenses) != 1 || !got.Expenses[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expense not restored: %+v", got.Expenses)
	}

	if _, found, _ := reloaded.Load(ctx, "bob"); found {
		t.Fatalf("unexpected snapshot for bob")
	}
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected decode error")
	}
}
