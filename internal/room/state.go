package room

import (
	"encoding/json"
	"math"
)

// CharacterType distinguishes player characters from NPCs.
type CharacterType string

const (
	CharacterPC  CharacterType = "pc"
	CharacterNPC CharacterType = "npc"
)

// NormalizeCharacterType coerces any unknown stored value to "pc".
func NormalizeCharacterType(t CharacterType) CharacterType {
	if t == CharacterNPC {
		return CharacterNPC
	}
	return CharacterPC
}

// StatusEffects tolerates non-array values in stored data by decoding to empty.
type StatusEffects []string

func (s *StatusEffects) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		*s = StatusEffects{}
		return nil
	}
	if list == nil {
		list = []string{}
	}
	*s = list
	return nil
}

// Player is a connected session participant. LastHeartbeat and MicLevel are
// live-only connection metadata and must never be overwritten from storage.
type Player struct {
	UID           string        `json:"uid"`
	Name          string        `json:"name"`
	Portrait      string        `json:"portrait,omitempty"`
	IsDM          bool          `json:"isDM"`
	HP            int           `json:"hp"`
	MaxHP         int           `json:"maxHp"`
	MicLevel      float64       `json:"micLevel"`
	LastHeartbeat int64         `json:"lastHeartbeat"`
	StatusEffects StatusEffects `json:"statusEffects"`
}

// Character is a PC or NPC sheet, optionally linked to a board token.
type Character struct {
	ID                 string        `json:"id"`
	Type               CharacterType `json:"type"`
	Name               string        `json:"name"`
	HP                 int           `json:"hp"`
	MaxHP              int           `json:"maxHp"`
	OwnedByPlayerUID   string        `json:"ownedByPlayerUID,omitempty"`
	TokenID            *string       `json:"tokenId"`
	TokenImage         *string       `json:"tokenImage"`
	Initiative         *int          `json:"initiative,omitempty"`
	InitiativeModifier int           `json:"initiativeModifier,omitempty"`
	VisibleToPlayers   *bool         `json:"visibleToPlayers,omitempty"`
}

// Token is a board piece. Its x/y are the authoritative position; the scene
// object transform mirrors but does not own it.
type Token struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Size     float64 `json:"size"`
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drawing is a freehand or shape stroke on the board.
type Drawing struct {
	ID     string  `json:"id"`
	Owner  string  `json:"owner,omitempty"`
	Kind   string  `json:"kind"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Filled bool    `json:"filled,omitempty"`
}

// Prop is a decorative board object.
type Prop struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
}

// Pointer is an ephemeral attention marker, one per participant, expired by age.
type Pointer struct {
	UID       string  `json:"uid"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// DiceRoll records one resolved roll.
type DiceRoll struct {
	ID          string `json:"id"`
	TriggeredBy string `json:"triggeredBy"`
	Count       int    `json:"count"`
	Sides       int    `json:"sides"`
	Seed        int64  `json:"seed"`
	Results     []int  `json:"results"`
	Timestamp   int64  `json:"timestamp"`
}

// StagingZone is the spawn region for newly joining participants' tokens.
type StagingZone struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// SanitizeStagingZone rejects zones with non-finite or sub-minimum dimensions,
// yielding nil rather than an error.
func SanitizeStagingZone(z *StagingZone, minDim float64) *StagingZone {
	if z == nil {
		return nil
	}
	for _, v := range []float64{z.X, z.Y, z.Width, z.Height, z.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	if z.Width < minDim || z.Height < minDim {
		return nil
	}
	zone := *z
	return &zone
}

// Selection modes.
const (
	SelectionSingle   = "single"
	SelectionMultiple = "multiple"
)

// Selection is one participant's current board selection.
type Selection struct {
	Mode      string   `json:"mode"`
	ObjectID  string   `json:"objectId,omitempty"`
	ObjectIDs []string `json:"objectIds,omitempty"`
}

// Operation is an opaque undo/redo entry. Stacks are ephemeral and cleared on
// every snapshot load.
type Operation struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// State is the authoritative in-memory record for one room. It is owned by
// exactly one registry entry and mutated only through domain operations.
type State struct {
	Players       []Player      `json:"players"`
	Characters    []Character   `json:"characters"`
	Tokens        []Token       `json:"tokens"`
	Drawings      []Drawing     `json:"drawings"`
	Props         []Prop        `json:"props"`
	Pointers      []Pointer     `json:"pointers"`
	SceneObjects  []SceneObject `json:"sceneObjects"`
	DiceRolls     []DiceRoll    `json:"diceRolls"`
	MapBackground string        `json:"mapBackground,omitempty"`

	GridSize               int          `json:"gridSize"`
	GridSquareSize         int          `json:"gridSquareSize"`
	CombatActive           bool         `json:"combatActive"`
	CurrentTurnCharacterID string       `json:"currentTurnCharacterId,omitempty"`
	StateVersion           uint64       `json:"stateVersion"`
	PlayerStagingZone      *StagingZone `json:"playerStagingZone,omitempty"`

	Selection  map[string]Selection   `json:"-"`
	UndoStacks map[string][]Operation `json:"-"`
	RedoStacks map[string][]Operation `json:"-"`
}

// Defaults applied when a field is missing from stored data.
const (
	DefaultGridSize       = 50
	DefaultGridSquareSize = 5
)

// NewState returns an empty room state with defaults applied.
func NewState() *State {
	return &State{
		Players:        []Player{},
		Characters:     []Character{},
		Tokens:         []Token{},
		Drawings:       []Drawing{},
		Props:          []Prop{},
		Pointers:       []Pointer{},
		SceneObjects:   []SceneObject{},
		DiceRolls:      []DiceRoll{},
		GridSize:       DefaultGridSize,
		GridSquareSize: DefaultGridSquareSize,
		Selection:      map[string]Selection{},
		UndoStacks:     map[string][]Operation{},
		RedoStacks:     map[string][]Operation{},
	}
}

// ResetEphemeral clears everything that never survives a load or merge.
func (st *State) ResetEphemeral() {
	st.Pointers = []Pointer{}
	st.Selection = map[string]Selection{}
	st.UndoStacks = map[string][]Operation{}
	st.RedoStacks = map[string][]Operation{}
}

// FindPlayer returns the player with the given uid, or nil.
func (st *State) FindPlayer(uid string) *Player {
	for i := range st.Players {
		if st.Players[i].UID == uid {
			return &st.Players[i]
		}
	}
	return nil
}

// IsDM reports whether uid belongs to a connected player holding the DM role.
// Re-derived from the live player list on every call; roles can change
// between requests.
func (st *State) IsDM(uid string) bool {
	p := st.FindPlayer(uid)
	return p != nil && p.IsDM
}

// FindToken returns the token with the given id, or nil.
func (st *State) FindToken(id string) *Token {
	for i := range st.Tokens {
		if st.Tokens[i].ID == id {
			return &st.Tokens[i]
		}
	}
	return nil
}

// FindCharacter returns the character with the given id, or nil.
func (st *State) FindCharacter(id string) *Character {
	for i := range st.Characters {
		if st.Characters[i].ID == id {
			return &st.Characters[i]
		}
	}
	return nil
}

// FindSceneObject returns the scene object with the given id, or nil.
func (st *State) FindSceneObject(id string) *SceneObject {
	for i := range st.SceneObjects {
		if st.SceneObjects[i].ID == id {
			return &st.SceneObjects[i]
		}
	}
	return nil
}

// SpawnPosition picks a placement for a newly joining participant's token.
// Inside the staging zone when one is configured, otherwise staggered along
// the grid near the origin.
func (st *State) SpawnPosition() Point {
	count := len(st.Tokens)
	if z := st.PlayerStagingZone; z != nil {
		cx := z.X + z.Width/2
		cy := z.Y + z.Height/2
		step := z.Width / 6
		if step <= 0 {
			step = float64(st.GridSize)
		}
		dx := float64(count%3-1) * step
		dy := float64(count/3%3-1) * step
		rad := z.Rotation * math.Pi / 180
		return Point{
			X: cx + dx*math.Cos(rad) - dy*math.Sin(rad),
			Y: cy + dx*math.Sin(rad) + dy*math.Cos(rad),
		}
	}
	grid := float64(st.GridSize)
	if grid <= 0 {
		grid = DefaultGridSize
	}
	return Point{
		X: float64(count%5) * grid,
		Y: float64(count/5) * grid,
	}
}
