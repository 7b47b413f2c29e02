package room

import (
	"encoding/json"
	"time"
)

// Asset carries a large payload out-of-band of the primary snapshot object.
type Asset struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// AssetRefs points snapshot fields at entries in the attached asset list.
type AssetRefs struct {
	MapBackground string `json:"mapBackground,omitempty"`
	Drawings      string `json:"drawings,omitempty"`
}

// Snapshot is a complete recipient-specific projection of room state,
// suitable for transmission or storage.
type Snapshot struct {
	Players                []Player             `json:"players"`
	Characters             []Character          `json:"characters"`
	Tokens                 []Token              `json:"tokens"`
	Props                  []Prop               `json:"props"`
	Drawings               []Drawing            `json:"drawings"`
	SceneObjects           []SceneObject        `json:"sceneObjects"`
	Pointers               []Pointer            `json:"pointers"`
	GridSize               int                  `json:"gridSize"`
	GridSquareSize         int                  `json:"gridSquareSize"`
	DiceRolls              []DiceRoll           `json:"diceRolls"`
	SelectionState         map[string]Selection `json:"selectionState"`
	PlayerStagingZone      *StagingZone         `json:"playerStagingZone,omitempty"`
	CombatActive           bool                 `json:"combatActive"`
	CurrentTurnCharacterID string               `json:"currentTurnCharacterId,omitempty"`
	StateVersion           uint64               `json:"stateVersion"`
	MapBackground          string               `json:"mapBackground,omitempty"`
	Assets                 []Asset              `json:"assets,omitempty"`
	AssetRefs              *AssetRefs           `json:"assetRefs,omitempty"`
}

// ToSnapshot projects the state for one recipient. Expired pointers are
// purged and the scene graph rebuilt first, so every projection reflects the
// current overlay. The DM sees everything; other recipients lose characters
// hidden from players along with their linked tokens.
func ToSnapshot(st *State, isDM bool, now time.Time) Snapshot {
	PurgeExpiredPointers(st, now)
	BuildSceneGraph(st)

	snap := Snapshot{
		Players:                append([]Player{}, st.Players...),
		Characters:             append([]Character{}, st.Characters...),
		Tokens:                 append([]Token{}, st.Tokens...),
		Props:                  append([]Prop{}, st.Props...),
		Drawings:               append([]Drawing{}, st.Drawings...),
		SceneObjects:           append([]SceneObject{}, st.SceneObjects...),
		Pointers:               append([]Pointer{}, st.Pointers...),
		GridSize:               st.GridSize,
		GridSquareSize:         st.GridSquareSize,
		DiceRolls:              append([]DiceRoll{}, st.DiceRolls...),
		SelectionState:         map[string]Selection{},
		PlayerStagingZone:      st.PlayerStagingZone,
		CombatActive:           st.CombatActive,
		CurrentTurnCharacterID: st.CurrentTurnCharacterID,
		StateVersion:           st.StateVersion,
		MapBackground:          st.MapBackground,
	}
	for uid, sel := range st.Selection {
		snap.SelectionState[uid] = sel
	}

	if isDM {
		return snap
	}

	hiddenTokens := map[string]bool{}
	visible := snap.Characters[:0]
	for _, c := range snap.Characters {
		if c.VisibleToPlayers != nil && !*c.VisibleToPlayers {
			if c.TokenID != nil {
				hiddenTokens[*c.TokenID] = true
			}
			continue
		}
		visible = append(visible, c)
	}
	snap.Characters = visible

	if len(hiddenTokens) > 0 {
		tokens := snap.Tokens[:0]
		for _, t := range snap.Tokens {
			if !hiddenTokens[t.ID] {
				tokens = append(tokens, t)
			}
		}
		snap.Tokens = tokens

		objects := snap.SceneObjects[:0]
		for _, obj := range snap.SceneObjects {
			if obj.Kind == KindToken && hiddenTokens[sourceID(obj.ID)] {
				continue
			}
			objects = append(objects, obj)
		}
		snap.SceneObjects = objects
	}

	return snap
}
