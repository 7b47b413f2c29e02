package room

import "testing"

func transformState() *State {
	st := NewState()
	st.Players = []Player{
		{UID: "dm", IsDM: true},
		{UID: "p1"},
		{UID: "p2"},
	}
	st.MapBackground = "/maps/cave.png"
	st.Tokens = []Token{{ID: "t1", Owner: "p1", X: 0, Y: 0, Size: 50}}
	st.Drawings = []Drawing{{ID: "d1", Owner: "p1", Kind: "freehand"}}
	st.Props = []Prop{{ID: "pr1"}}
	st.Pointers = []Pointer{{UID: "p1", X: 1, Y: 1, Timestamp: 1 << 60}}
	BuildSceneGraph(st)
	return st
}

func pos(x, y float64) TransformChange {
	return TransformChange{Position: &Point{X: x, Y: y}}
}

func TestApplyTransformUnknownObject(t *testing.T) {
	st := transformState()
	if ApplyTransform(st, "token:nope", "dm", pos(1, 1)) {
		t.Fatalf("unknown object must fail")
	}
}

func TestApplyTransformTokenPositionAuthority(t *testing.T) {
	st := transformState()
	if !ApplyTransform(st, "token:t1", "p1", pos(10, 20)) {
		t.Fatalf("owner move should succeed")
	}
	tok := st.FindToken("t1")
	if tok.X != 10 || tok.Y != 20 {
		t.Fatalf("token position not mirrored: (%v,%v)", tok.X, tok.Y)
	}
	obj := st.FindSceneObject("token:t1")
	if obj.Transform.X != 10 || obj.Transform.Y != 20 {
		t.Fatalf("scene transform not applied: %+v", obj.Transform)
	}

	BuildSceneGraph(st)
	obj = st.FindSceneObject("token:t1")
	if obj.Transform.X != 10 || obj.Transform.Y != 20 {
		t.Fatalf("rebuild lost authoritative position: %+v", obj.Transform)
	}
}

func TestApplyTransformOwnershipRules(t *testing.T) {
	st := transformState()

	if ApplyTransform(st, "map:background", "p1", pos(1, 1)) {
		t.Fatalf("map is DM-only")
	}
	if !ApplyTransform(st, "map:background", "dm", pos(1, 1)) {
		t.Fatalf("DM may move the map")
	}

	if ApplyTransform(st, "token:t1", "p2", pos(1, 1)) {
		t.Fatalf("third party may not move someone else's token")
	}
	if !ApplyTransform(st, "token:t1", "dm", pos(2, 2)) {
		t.Fatalf("DM may move any token")
	}

	if ApplyTransform(st, "drawing:d1", "p2", pos(1, 1)) {
		t.Fatalf("non-owner may not move a drawing")
	}
	if !ApplyTransform(st, "drawing:d1", "p1", pos(1, 1)) {
		t.Fatalf("owner may move their drawing")
	}

	// Unowned props are up for grabs.
	if !ApplyTransform(st, "prop:pr1", "p2", pos(1, 1)) {
		t.Fatalf("anyone may move an unowned prop")
	}

	if ApplyTransform(st, "pointer:p1", "dm", pos(1, 1)) {
		t.Fatalf("even the DM may not move another user's pointer")
	}
	if !ApplyTransform(st, "pointer:p1", "p1", pos(1, 1)) {
		t.Fatalf("pointer owner may move it")
	}

	if ApplyTransform(st, "staging-zone:player", "dm", pos(1, 1)) {
		t.Fatalf("staging zone is not transformable")
	}
}

func TestApplyTransformLockToggle(t *testing.T) {
	st := transformState()
	locked := true

	if ApplyTransform(st, "token:t1", "p1", TransformChange{Locked: &locked}) {
		t.Fatalf("lock toggle is DM-only")
	}
	if !ApplyTransform(st, "token:t1", "dm", TransformChange{Locked: &locked, Position: &Point{X: 99, Y: 99}}) {
		t.Fatalf("DM lock toggle should succeed")
	}
	obj := st.FindSceneObject("token:t1")
	if !obj.Locked {
		t.Fatalf("object should be locked")
	}
	if obj.Transform.X == 99 {
		t.Fatalf("a lock toggle must ignore other fields on the same call")
	}
}

func TestApplyTransformLockedObject(t *testing.T) {
	st := transformState()
	locked := true
	ApplyTransform(st, "token:t1", "dm", TransformChange{Locked: &locked})

	if ApplyTransform(st, "token:t1", "p2", pos(5, 5)) {
		t.Fatalf("lock must block third parties")
	}
	// The owner keeps transforming their own token while it is locked.
	if !ApplyTransform(st, "token:t1", "p1", pos(5, 5)) {
		t.Fatalf("lock must not block the owner")
	}
	if !ApplyTransform(st, "token:t1", "dm", pos(6, 6)) {
		t.Fatalf("lock must not block the DM")
	}

	ApplyTransform(st, "map:background", "dm", TransformChange{Locked: &locked})
	if ApplyTransform(st, "map:background", "p1", pos(1, 1)) {
		t.Fatalf("lock blocks DM-only kinds for players")
	}
}

func TestApplyTransformNoFields(t *testing.T) {
	st := transformState()
	if ApplyTransform(st, "token:t1", "p1", TransformChange{}) {
		t.Fatalf("no fields present means no mutation, must return false")
	}
}

func TestApplyTransformPartialFields(t *testing.T) {
	st := transformState()
	rot := 45.0
	if !ApplyTransform(st, "token:t1", "p1", TransformChange{Rotation: &rot}) {
		t.Fatalf("rotation-only change should succeed")
	}
	obj := st.FindSceneObject("token:t1")
	if obj.Transform.Rotation != 45 {
		t.Fatalf("rotation not applied")
	}
	if obj.Transform.X != 0 || obj.Transform.ScaleX != 1 {
		t.Fatalf("absent fields must stay untouched: %+v", obj.Transform)
	}
}

func TestLockObjects(t *testing.T) {
	st := transformState()

	if n := LockObjects(st, "p1", []string{"token:t1"}); n != 0 {
		t.Fatalf("non-DM lock must be a no-op, got %d", n)
	}
	n := LockObjects(st, "dm", []string{"token:t1", "drawing:d1", "token:missing"})
	if n != 2 {
		t.Fatalf("expected 2 locked, got %d", n)
	}
	if !st.FindSceneObject("token:t1").Locked || !st.FindSceneObject("drawing:d1").Locked {
		t.Fatalf("objects should be locked")
	}

	if n := UnlockObjects(st, "dm", []string{"token:t1"}); n != 1 {
		t.Fatalf("expected 1 unlocked, got %d", n)
	}
	if st.FindSceneObject("token:t1").Locked {
		t.Fatalf("object should be unlocked")
	}
}
