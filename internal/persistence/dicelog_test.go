package persistence

import (
	"path/filepath"
	"testing"

	"herobyte/internal/room"
)

func testDiceLog(t *testing.T) *DiceLog {
	t.Helper()
	l, err := OpenDiceLog(filepath.Join(t.TempDir(), "dice.db"))
	if err != nil {
		t.Fatalf("open dice log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestDiceLogAppendRecent(t *testing.T) {
	l := testDiceLog(t)

	rolls := []room.DiceRoll{
		{ID: "r1", TriggeredBy: "p1", Count: 2, Sides: 6, Seed: 42, Results: []int{3, 5}, Timestamp: 1000},
		{ID: "r2", TriggeredBy: "p2", Count: 1, Sides: 20, Seed: 7, Results: []int{17}, Timestamp: 2000},
	}
	for _, r := range rolls {
		if err := l.Append("alpha", r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := l.Append("beta", room.DiceRoll{ID: "r3", TriggeredBy: "p1", Count: 1, Sides: 4, Results: []int{2}, Timestamp: 3000}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := l.Recent("alpha", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rolls for alpha, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("rolls must come back newest first: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Results[0] != 3 || got[1].Results[1] != 5 {
		t.Fatalf("results did not round-trip: %+v", got[1].Results)
	}
	if got[1].Timestamp != 1000 {
		t.Fatalf("timestamp did not round-trip: %d", got[1].Timestamp)
	}
}

func TestDiceLogLimit(t *testing.T) {
	l := testDiceLog(t)
	for i := 0; i < 5; i++ {
		roll := room.DiceRoll{
			ID: string(rune('a' + i)), TriggeredBy: "p1",
			Count: 1, Sides: 6, Results: []int{1}, Timestamp: int64(1000 + i),
		}
		if err := l.Append("alpha", roll); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := l.Recent("alpha", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit not honored, got %d", len(got))
	}
}

func TestDiceLogEmptyRoom(t *testing.T) {
	l := testDiceLog(t)
	got, err := l.Recent("ghost", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("an unknown room has no rolls, got %d", len(got))
	}
}

func TestOpenDiceLogEmptyPath(t *testing.T) {
	if _, err := OpenDiceLog(""); err == nil {
		t.Fatalf("empty path must be rejected")
	}
}
