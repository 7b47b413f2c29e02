package room

import (
	"testing"
	"time"
)

func visibilityState() *State {
	hidden := false
	tokenID := "t1"
	st := NewState()
	st.Players = []Player{{UID: "dm", IsDM: true}, {UID: "p1"}}
	st.Characters = []Character{
		{ID: "c1", Type: CharacterNPC, Name: "lurker", VisibleToPlayers: &hidden, TokenID: &tokenID},
		{ID: "c2", Type: CharacterPC, Name: "hero", OwnedByPlayerUID: "p1"},
	}
	st.Tokens = []Token{
		{ID: "t1", X: 5, Y: 5, Size: 50},
		{ID: "t2", Owner: "p1", Size: 50},
	}
	return st
}

func TestToSnapshotRedaction(t *testing.T) {
	st := visibilityState()
	now := time.Now()

	snap := ToSnapshot(st, false, now)
	for _, c := range snap.Characters {
		if c.ID == "c1" {
			t.Fatalf("hidden character leaked to a player projection")
		}
	}
	for _, tok := range snap.Tokens {
		if tok.ID == "t1" {
			t.Fatalf("hidden character's token leaked to a player projection")
		}
	}
	for _, obj := range snap.SceneObjects {
		if obj.ID == "token:t1" {
			t.Fatalf("hidden token's scene object leaked to a player projection")
		}
	}
	if len(snap.Characters) != 1 || len(snap.Tokens) != 1 {
		t.Fatalf("visible entities must pass through: %d chars, %d tokens", len(snap.Characters), len(snap.Tokens))
	}
}

func TestToSnapshotDMComplete(t *testing.T) {
	st := visibilityState()
	snap := ToSnapshot(st, true, time.Now())
	if len(snap.Characters) != 2 || len(snap.Tokens) != 2 {
		t.Fatalf("DM projection must be unfiltered: %d chars, %d tokens", len(snap.Characters), len(snap.Tokens))
	}
	found := false
	for _, obj := range snap.SceneObjects {
		if obj.ID == "token:t1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("DM projection must include the hidden token's scene object")
	}
}

func TestToSnapshotRedactionDoesNotMutateState(t *testing.T) {
	st := visibilityState()
	ToSnapshot(st, false, time.Now())
	if len(st.Characters) != 2 || len(st.Tokens) != 2 {
		t.Fatalf("projection must not redact the authoritative state")
	}
	if st.FindSceneObject("token:t1") == nil {
		t.Fatalf("authoritative scene graph must keep the hidden token")
	}
}

func TestToSnapshotPointerTTL(t *testing.T) {
	base := time.UnixMilli(0)
	st := NewState()
	st.Pointers = []Pointer{{UID: "p1", X: 1, Y: 2, Timestamp: 0}}

	snap := ToSnapshot(st, true, base.Add(2*time.Second))
	if len(snap.Pointers) != 1 {
		t.Fatalf("pointer placed at t=0 must be present at t=2000ms")
	}

	snap = ToSnapshot(st, true, base.Add(3500*time.Millisecond))
	if len(snap.Pointers) != 0 {
		t.Fatalf("pointer placed at t=0 must be absent at t=3500ms")
	}
	for _, obj := range snap.SceneObjects {
		if obj.Kind == KindPointer {
			t.Fatalf("expired pointer left a scene object behind")
		}
	}
}

func TestToSnapshotRebuildsSceneGraph(t *testing.T) {
	st := NewState()
	st.Tokens = []Token{{ID: "t1", X: 3, Y: 4, Size: 50}}
	snap := ToSnapshot(st, true, time.Now())
	if len(snap.SceneObjects) != 1 || snap.SceneObjects[0].ID != "token:t1" {
		t.Fatalf("snapshot must carry a freshly built scene graph: %+v", snap.SceneObjects)
	}
}
