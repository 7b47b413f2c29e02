package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var payloadSchemas = map[string]*jsonschema.Schema{}

const transformSchema = `{
	"type": "object",
	"required": ["objectId", "changes"],
	"properties": {
		"objectId": {"type": "string", "minLength": 1},
		"changes": {
			"type": "object",
			"properties": {
				"position": {"type": "object", "required": ["x", "y"], "properties": {"x": {"type": "number"}, "y": {"type": "number"}}},
				"scale": {"type": "object", "required": ["x", "y"], "properties": {"x": {"type": "number"}, "y": {"type": "number"}}},
				"rotation": {"type": "number"},
				"locked": {"type": "boolean"}
			}
		}
	}
}`

const lockSchema = `{
	"type": "object",
	"required": ["objectIds"],
	"properties": {
		"objectIds": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

const pointerSchema = `{
	"type": "object",
	"required": ["x", "y"],
	"properties": {"x": {"type": "number"}, "y": {"type": "number"}}
}`

const diceRollSchema = `{
	"type": "object",
	"required": ["count", "sides"],
	"properties": {
		"count": {"type": "integer", "minimum": 1, "maximum": 100},
		"sides": {"type": "integer", "minimum": 2, "maximum": 1000},
		"seed": {"type": "integer"}
	}
}`

const setInitiativeSchema = `{
	"type": "object",
	"required": ["characterId", "initiative"],
	"properties": {
		"characterId": {"type": "string", "minLength": 1},
		"initiative": {"type": "integer"},
		"modifier": {"type": "integer"}
	}
}`

const setStateSchema = `{
	"type": "object",
	"properties": {
		"gridSize": {"type": "integer", "minimum": 1},
		"gridSquareSize": {"type": "integer", "minimum": 1},
		"combatActive": {"type": "boolean"},
		"mapBackground": {"type": "string"},
		"playerStagingZone": {
			"type": "object",
			"required": ["x", "y", "width", "height"],
			"properties": {
				"x": {"type": "number"}, "y": {"type": "number"},
				"width": {"type": "number"}, "height": {"type": "number"},
				"rotation": {"type": "number"}
			}
		},
		"clearStagingZone": {"type": "boolean"}
	}
}`

const selectionSchema = `{
	"type": "object",
	"required": ["mode"],
	"properties": {
		"mode": {"type": "string", "enum": ["single", "multiple"]},
		"objectId": {"type": "string"},
		"objectIds": {"type": "array", "items": {"type": "string"}}
	}
}`

const loadSessionSchema = `{"type": "object"}`

const emptySchema = `{"type": ["object", "null"]}`

func init() {
	sources := map[string]string{
		TypeTransform:     transformSchema,
		TypeLock:          lockSchema,
		TypeUnlock:        lockSchema,
		TypePointer:       pointerSchema,
		TypeDiceRoll:      diceRollSchema,
		TypeTurnNext:      emptySchema,
		TypeTurnPrev:      emptySchema,
		TypeSetInitiative: setInitiativeSchema,
		TypeSetState:      setStateSchema,
		TypeSelection:     selectionSchema,
		TypeUndo:          emptySchema,
		TypeRedo:          emptySchema,
		TypeLoadSession:   loadSessionSchema,
		TypeHeartbeat:     emptySchema,
	}
	for kind, src := range sources {
		payloadSchemas[kind] = jsonschema.MustCompileString(kind+".json", src)
	}
}

// Validate checks an inbound payload against the schema for its message kind.
// Unknown kinds and malformed payloads are rejected.
func Validate(kind string, payload json.RawMessage) error {
	sch, ok := payloadSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown message type %q", kind)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("null")
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("validate %s payload: %w", kind, err)
	}
	return nil
}
