package room

import "encoding/json"

const maxHistoryDepth = 50

type transformOp struct {
	ObjectID  string    `json:"objectId"`
	Transform Transform `json:"transform"`
}

// OpTransform is the undo/redo operation kind for transform changes.
const OpTransform = "transform"

// RecordTransform pushes the prior transform of an object onto the actor's
// undo stack and clears their redo stack.
func RecordTransform(st *State, uid, objectID string, prior Transform) {
	payload, err := json.Marshal(transformOp{ObjectID: objectID, Transform: prior})
	if err != nil {
		return
	}
	stack := append(st.UndoStacks[uid], Operation{Kind: OpTransform, Payload: payload})
	if len(stack) > maxHistoryDepth {
		stack = stack[len(stack)-maxHistoryDepth:]
	}
	st.UndoStacks[uid] = stack
	delete(st.RedoStacks, uid)
}

// Undo pops the actor's most recent operation and reverts it, moving the
// inverse onto their redo stack. One actor's stacks never affect another's.
func Undo(st *State, uid string) bool {
	return popHistory(st, uid, st.UndoStacks, st.RedoStacks)
}

// Redo re-applies the actor's most recently undone operation.
func Redo(st *State, uid string) bool {
	return popHistory(st, uid, st.RedoStacks, st.UndoStacks)
}

func popHistory(st *State, uid string, from, to map[string][]Operation) bool {
	stack := from[uid]
	if len(stack) == 0 {
		return false
	}
	op := stack[len(stack)-1]
	from[uid] = stack[:len(stack)-1]

	switch op.Kind {
	case OpTransform:
		var t transformOp
		if err := json.Unmarshal(op.Payload, &t); err != nil {
			return false
		}
		obj := st.FindSceneObject(t.ObjectID)
		if obj == nil {
			return false
		}
		inverse, err := json.Marshal(transformOp{ObjectID: t.ObjectID, Transform: obj.Transform})
		if err != nil {
			return false
		}
		obj.Transform = t.Transform
		if obj.Kind == KindToken {
			if tok := st.FindToken(sourceID(obj.ID)); tok != nil {
				tok.X = t.Transform.X
				tok.Y = t.Transform.Y
			}
		}
		to[uid] = append(to[uid], Operation{Kind: OpTransform, Payload: inverse})
		return true
	default:
		return false
	}
}
