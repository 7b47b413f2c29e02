package registry

import (
	"math/rand"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"herobyte/internal/persistence"
	"herobyte/internal/room"
)

// Room owns one session's state store and persistence manager. Every domain
// operation runs to completion under the room mutex, giving linearizable
// per-room semantics; the only asynchronous work is the disk write.
type Room struct {
	ID string

	mu     sync.Mutex
	state  *room.State
	store  *persistence.Store
	dice   *persistence.DiceLog
	logger *slog.Logger
	tuning Tuning
	now    func() time.Time
}

var tokenColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// CreateSnapshot projects the state for one recipient, resolving their role
// from the live player list.
func (rm *Room) CreateSnapshot(recipientUID string) room.Snapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return room.ToSnapshot(rm.state, rm.state.IsDM(recipientUID), rm.now())
}

// StateVersion returns the room's current version counter.
func (rm *Room) StateVersion() uint64 {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state.StateVersion
}

// ApplyTransform authorizes and applies a transform request, recording the
// prior transform for undo on success.
func (rm *Room) ApplyTransform(objectID, actorUID string, changes room.TransformChange) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var prior room.Transform
	tracked := false
	if changes.Locked == nil {
		if obj := rm.state.FindSceneObject(objectID); obj != nil {
			prior = obj.Transform
			tracked = true
		}
	}

	if !room.ApplyTransform(rm.state, objectID, actorUID, changes) {
		return false
	}
	if tracked {
		room.RecordTransform(rm.state, actorUID, objectID, prior)
	}
	rm.state.StateVersion++
	return true
}

// LockObjects locks the given scene objects; DM-only.
func (rm *Room) LockObjects(actorUID string, ids []string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	n := room.LockObjects(rm.state, actorUID, ids)
	if n > 0 {
		rm.state.StateVersion++
	}
	return n
}

// UnlockObjects unlocks the given scene objects; DM-only.
func (rm *Room) UnlockObjects(actorUID string, ids []string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	n := room.UnlockObjects(rm.state, actorUID, ids)
	if n > 0 {
		rm.state.StateVersion++
	}
	return n
}

// SetPointer places or moves a participant's attention pointer.
func (rm *Room) SetPointer(uid string, x, y float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	ts := rm.now().UnixMilli()
	for i := range rm.state.Pointers {
		if rm.state.Pointers[i].UID == uid {
			rm.state.Pointers[i].X = x
			rm.state.Pointers[i].Y = y
			rm.state.Pointers[i].Timestamp = ts
			rm.state.StateVersion++
			return
		}
	}
	rm.state.Pointers = append(rm.state.Pointers, room.Pointer{UID: uid, X: x, Y: y, Timestamp: ts})
	rm.state.StateVersion++
}

// Roll resolves a dice roll, stores it in the bounded room history and
// appends it to the dice log when one is configured. A zero seed draws one
// from the clock.
func (rm *Room) Roll(uid string, count, sides int, seed int64) room.DiceRoll {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}
	if sides < 2 {
		sides = 20
	}
	if seed == 0 {
		seed = rm.now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	results := make([]int, count)
	for i := range results {
		results[i] = rng.Intn(sides) + 1
	}

	roll := room.DiceRoll{
		ID:          uuid.NewString(),
		TriggeredBy: uid,
		Count:       count,
		Sides:       sides,
		Seed:        seed,
		Results:     results,
		Timestamp:   rm.now().UnixMilli(),
	}

	rm.state.DiceRolls = append(rm.state.DiceRolls, roll)
	if limit := rm.tuning.DiceHistoryLimit; limit > 0 && len(rm.state.DiceRolls) > limit {
		rm.state.DiceRolls = rm.state.DiceRolls[len(rm.state.DiceRolls)-limit:]
	}
	rm.state.StateVersion++

	if rm.dice != nil {
		if err := rm.dice.Append(rm.ID, roll); err != nil {
			rm.logger.Error("append dice log", slog.String("error", err.Error()))
		}
	}
	return roll
}

// NextTurn advances the initiative turn; no-op when nobody has initiative.
func (rm *Room) NextTurn() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !room.NextTurn(rm.state) {
		return false
	}
	rm.state.StateVersion++
	return true
}

// PreviousTurn retreats the initiative turn.
func (rm *Room) PreviousTurn() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !room.PreviousTurn(rm.state) {
		return false
	}
	rm.state.StateVersion++
	return true
}

// SetInitiative records a character's initiative roll. Permitted for the DM
// or the character's owning player.
func (rm *Room) SetInitiative(actorUID, characterID string, initiative int, modifier int) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	c := rm.state.FindCharacter(characterID)
	if c == nil {
		return false
	}
	if !rm.state.IsDM(actorUID) && c.OwnedByPlayerUID != actorUID {
		return false
	}
	c.Initiative = &initiative
	c.InitiativeModifier = modifier
	rm.state.StateVersion++
	return true
}

// Patch is a partial session-level state update. Nil fields are untouched.
type Patch struct {
	GridSize         *int              `json:"gridSize,omitempty"`
	GridSquareSize   *int              `json:"gridSquareSize,omitempty"`
	CombatActive     *bool             `json:"combatActive,omitempty"`
	MapBackground    *string           `json:"mapBackground,omitempty"`
	StagingZone      *room.StagingZone `json:"playerStagingZone,omitempty"`
	ClearStagingZone bool              `json:"clearStagingZone,omitempty"`
}

// SetState applies a partial session-level update. DM-only.
func (rm *Room) SetState(actorUID string, p Patch) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.state.IsDM(actorUID) {
		return false
	}
	changed := false
	if p.GridSize != nil && *p.GridSize > 0 {
		rm.state.GridSize = *p.GridSize
		changed = true
	}
	if p.GridSquareSize != nil && *p.GridSquareSize > 0 {
		rm.state.GridSquareSize = *p.GridSquareSize
		changed = true
	}
	if p.CombatActive != nil {
		rm.state.CombatActive = *p.CombatActive
		changed = true
	}
	if p.MapBackground != nil {
		rm.state.MapBackground = *p.MapBackground
		changed = true
	}
	if p.StagingZone != nil {
		rm.state.PlayerStagingZone = room.SanitizeStagingZone(p.StagingZone, rm.tuning.StagingZoneMinDim)
		changed = true
	} else if p.ClearStagingZone {
		rm.state.PlayerStagingZone = nil
		changed = true
	}
	if changed {
		rm.state.StateVersion++
	}
	return changed
}

// JoinPlayer registers a connecting participant, restoring their saved sheet
// when one exists and spawning a token for first-time joins.
func (rm *Room) JoinPlayer(uid, name string, isDM bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	ts := rm.now().UnixMilli()
	if p := rm.state.FindPlayer(uid); p != nil {
		p.LastHeartbeat = ts
		rm.state.StateVersion++
		return
	}

	player := room.Player{
		UID:           uid,
		Name:          name,
		IsDM:          isDM,
		LastHeartbeat: ts,
		StatusEffects: room.StatusEffects{},
	}
	for _, saved := range rm.store.SavedPlayers() {
		if saved.UID == uid {
			player.Name = saved.Name
			player.Portrait = saved.Portrait
			player.IsDM = saved.IsDM
			player.HP = saved.HP
			player.MaxHP = saved.MaxHP
			player.StatusEffects = saved.StatusEffects
			break
		}
	}
	rm.state.Players = append(rm.state.Players, player)

	owned := false
	for _, t := range rm.state.Tokens {
		if t.Owner == uid {
			owned = true
			break
		}
	}
	if !owned {
		pos := rm.state.SpawnPosition()
		rm.state.Tokens = append(rm.state.Tokens, room.Token{
			ID:    uuid.NewString(),
			Owner: uid,
			X:     pos.X,
			Y:     pos.Y,
			Color: tokenColors[len(rm.state.Tokens)%len(tokenColors)],
			Size:  float64(rm.state.GridSize),
		})
	}
	rm.state.StateVersion++
}

// Heartbeat refreshes a participant's liveness timestamp.
func (rm *Room) Heartbeat(uid string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if p := rm.state.FindPlayer(uid); p != nil {
		p.LastHeartbeat = rm.now().UnixMilli()
	}
}

// LeavePlayer removes a disconnected participant from the live roster. Their
// entities stay on the board for a later merge.
func (rm *Room) LeavePlayer(uid string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	players := rm.state.Players[:0]
	for _, p := range rm.state.Players {
		if p.UID != uid {
			players = append(players, p)
		}
	}
	rm.state.Players = players
	delete(rm.state.Selection, uid)
	rm.state.StateVersion++
}

// SetSelection records a participant's current board selection.
func (rm *Room) SetSelection(uid string, sel room.Selection) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.state.Selection[uid] = sel
	rm.state.StateVersion++
}

// Undo reverts the actor's most recent recorded operation.
func (rm *Room) Undo(uid string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !room.Undo(rm.state, uid) {
		return false
	}
	rm.state.StateVersion++
	return true
}

// Redo re-applies the actor's most recently undone operation.
func (rm *Room) Redo(uid string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !room.Redo(rm.state, uid) {
		return false
	}
	rm.state.StateVersion++
	return true
}

// LoadSnapshot merges an uploaded session snapshot with the live room.
// DM-only.
func (rm *Room) LoadSnapshot(actorUID string, saved room.Snapshot) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.state.IsDM(actorUID) {
		return false
	}
	rm.state = room.MergeSnapshot(saved, rm.state, rm.tuning.StagingZoneMinDim)
	rm.state.StateVersion++
	return true
}

// LoadState merges the on-disk session file into the live room, preserving
// currently connected participants' data. A missing or corrupt file leaves
// the state untouched.
func (rm *Room) LoadState() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	loaded := rm.store.Load()
	if loaded == nil {
		return false
	}
	saved := room.ToSnapshot(loaded, true, rm.now())
	saved.Players = rm.store.SavedPlayers()
	rm.state = room.MergeSnapshot(saved, rm.state, rm.tuning.StagingZoneMinDim)
	return true
}

// SaveState serializes the current state to disk, fire-and-forget.
func (rm *Room) SaveState() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.store.Save(rm.state)
}

// Flush awaits in-flight disk writes. Test hook only.
func (rm *Room) Flush() {
	rm.store.Flush()
}

// SpawnPosition returns the staging-zone-aware placement for a new token.
func (rm *Room) SpawnPosition() room.Point {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state.SpawnPosition()
}

// RecentRolls reads roll history from the dice log.
func (rm *Room) RecentRolls(limit int) []room.DiceRoll {
	if rm.dice == nil {
		return nil
	}
	rolls, err := rm.dice.Recent(rm.ID, limit)
	if err != nil {
		rm.logger.Error("read dice log", slog.String("error", err.Error()))
		return nil
	}
	return rolls
}
