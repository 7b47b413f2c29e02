// Package protocol defines the client message envelope and validates inbound
// payloads before they reach any domain operation.
package protocol

import (
	"encoding/json"

	"herobyte/internal/room"
)

// Message kinds accepted from clients.
const (
	TypeTransform     = "transform"
	TypeLock          = "lock"
	TypeUnlock        = "unlock"
	TypePointer       = "pointer"
	TypeDiceRoll      = "dice-roll"
	TypeTurnNext      = "turn-next"
	TypeTurnPrev      = "turn-prev"
	TypeSetInitiative = "set-initiative"
	TypeSetState      = "set-state"
	TypeSelection     = "selection"
	TypeUndo          = "undo"
	TypeRedo          = "redo"
	TypeLoadSession   = "load-session"
	TypeHeartbeat     = "heartbeat"
)

// TypeSnapshot is the single server-to-client kind; every broadcast carries a
// full per-recipient snapshot.
const TypeSnapshot = "snapshot"

// Envelope wraps every wire message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TransformPayload requests a transform change on one scene object.
type TransformPayload struct {
	ObjectID string               `json:"objectId"`
	Changes  room.TransformChange `json:"changes"`
}

// LockPayload requests a batch lock or unlock.
type LockPayload struct {
	ObjectIDs []string `json:"objectIds"`
}

// PointerPayload places the sender's attention pointer.
type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DiceRollPayload requests a dice roll; a zero seed lets the server choose.
type DiceRollPayload struct {
	Count int   `json:"count"`
	Sides int   `json:"sides"`
	Seed  int64 `json:"seed,omitempty"`
}

// SetInitiativePayload records a character's initiative.
type SetInitiativePayload struct {
	CharacterID string `json:"characterId"`
	Initiative  int    `json:"initiative"`
	Modifier    int    `json:"modifier,omitempty"`
}

// SelectionPayload records the sender's board selection.
type SelectionPayload struct {
	Mode      string   `json:"mode"`
	ObjectID  string   `json:"objectId,omitempty"`
	ObjectIDs []string `json:"objectIds,omitempty"`
}
