package room

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalizeCharacterType(t *testing.T) {
	if NormalizeCharacterType("npc") != CharacterNPC {
		t.Fatalf("npc must stay npc")
	}
	if NormalizeCharacterType("pc") != CharacterPC {
		t.Fatalf("pc must stay pc")
	}
	if NormalizeCharacterType("boss") != CharacterPC {
		t.Fatalf("unknown types coerce to pc")
	}
}

func TestStatusEffectsUnmarshal(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`["poisoned", "stunned"]`, 2},
		{`[]`, 0},
		{`null`, 0},
		{`"poisoned"`, 0},
		{`42`, 0},
	}
	for _, c := range cases {
		var s StatusEffects
		if err := json.Unmarshal([]byte(c.raw), &s); err != nil {
			t.Fatalf("%s: unexpected error %v", c.raw, err)
		}
		if s == nil {
			t.Fatalf("%s: must never decode to nil", c.raw)
		}
		if len(s) != c.want {
			t.Fatalf("%s: got %d effects, want %d", c.raw, len(s), c.want)
		}
	}
}

func TestSanitizeStagingZone(t *testing.T) {
	if SanitizeStagingZone(nil, 10) != nil {
		t.Fatalf("nil stays nil")
	}
	if SanitizeStagingZone(&StagingZone{Width: math.Inf(1), Height: 50}, 10) != nil {
		t.Fatalf("infinite dimension must reject")
	}
	if SanitizeStagingZone(&StagingZone{X: math.NaN(), Width: 50, Height: 50}, 10) != nil {
		t.Fatalf("NaN coordinate must reject")
	}
	if SanitizeStagingZone(&StagingZone{Width: 5, Height: 50}, 10) != nil {
		t.Fatalf("sub-minimum width must reject")
	}
	z := SanitizeStagingZone(&StagingZone{X: 1, Y: 2, Width: 50, Height: 50, Rotation: 45}, 10)
	if z == nil || z.X != 1 || z.Rotation != 45 {
		t.Fatalf("valid zone must pass through: %+v", z)
	}
}

func TestSpawnPositionGridStagger(t *testing.T) {
	st := NewState()
	first := st.SpawnPosition()
	if first.X != 0 || first.Y != 0 {
		t.Fatalf("first spawn at the origin, got %+v", first)
	}

	st.Tokens = make([]Token, 6)
	p := st.SpawnPosition()
	if p.X != float64(st.GridSize) || p.Y != float64(st.GridSize) {
		t.Fatalf("seventh spawn wraps to the second row, got %+v", p)
	}
}

func TestSpawnPositionStagingZone(t *testing.T) {
	st := NewState()
	st.PlayerStagingZone = &StagingZone{X: 100, Y: 200, Width: 60, Height: 60}

	p := st.SpawnPosition()
	if p.X < 100 || p.X > 160 || p.Y < 200 || p.Y > 260 {
		t.Fatalf("spawn must land inside the staging zone, got %+v", p)
	}

	st.Tokens = make([]Token, 1)
	q := st.SpawnPosition()
	if p == q {
		t.Fatalf("consecutive spawns must not stack exactly")
	}
}

func TestIsDMLiveOnly(t *testing.T) {
	st := NewState()
	st.Players = []Player{{UID: "dm", IsDM: true}, {UID: "p1"}}
	if !st.IsDM("dm") || st.IsDM("p1") || st.IsDM("ghost") {
		t.Fatalf("role must derive from the live player list")
	}
	st.Players[0].IsDM = false
	if st.IsDM("dm") {
		t.Fatalf("role changes must take effect immediately")
	}
}
