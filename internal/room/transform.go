package room

// Scale is a transform scale change.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TransformChange carries the fields of a transform request. Absent fields
// leave the corresponding attribute untouched.
type TransformChange struct {
	Position *Point   `json:"position,omitempty"`
	Scale    *Scale   `json:"scale,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Locked   *bool    `json:"locked,omitempty"`
}

// ApplyTransform validates and applies a transform request from actorUID to
// the scene object with the given id. Authorization failures and unknown ids
// report false; true is returned only when an actual mutation occurred.
//
// A lock-state toggle (changes.Locked present) is DM-only and ignores every
// other field on that call. A locked object blocks transforms from non-DM
// third parties, but not from the object's own owner for tokens, drawings and
// props; that behavior is preserved from the original rules as observed.
func ApplyTransform(st *State, objectID, actorUID string, changes TransformChange) bool {
	obj := st.FindSceneObject(objectID)
	if obj == nil {
		return false
	}
	dm := st.IsDM(actorUID)

	if changes.Locked != nil {
		if !dm {
			return false
		}
		obj.Locked = *changes.Locked
		return true
	}

	if obj.Locked && !dm {
		ownerKind := obj.Kind == KindToken || obj.Kind == KindDrawing || obj.Kind == KindProp
		if !ownerKind || obj.Owner != actorUID {
			return false
		}
	}

	var tok *Token
	switch obj.Kind {
	case KindMap:
		if !dm {
			return false
		}
	case KindToken:
		tok = st.FindToken(sourceID(objectID))
		if tok == nil {
			return false
		}
		if !dm && tok.Owner != actorUID {
			return false
		}
	case KindDrawing:
		if !dm && obj.Owner != actorUID {
			return false
		}
	case KindProp:
		if !dm && obj.Owner != "" && obj.Owner != actorUID {
			return false
		}
	case KindPointer:
		// Strict owner match; even the DM cannot move another user's pointer.
		if obj.Owner != actorUID {
			return false
		}
	case KindStagingZone:
		return false
	default:
		return false
	}

	applied := false
	if changes.Position != nil {
		obj.Transform.X = changes.Position.X
		obj.Transform.Y = changes.Position.Y
		if tok != nil {
			tok.X = changes.Position.X
			tok.Y = changes.Position.Y
		}
		applied = true
	}
	if changes.Scale != nil {
		obj.Transform.ScaleX = changes.Scale.X
		obj.Transform.ScaleY = changes.Scale.Y
		applied = true
	}
	if changes.Rotation != nil {
		obj.Transform.Rotation = *changes.Rotation
		applied = true
	}
	return applied
}

// LockObjects sets locked on each resolving scene object. DM-only; returns
// the number of objects changed. Unknown ids are silently skipped.
func LockObjects(st *State, actorUID string, ids []string) int {
	return setLocked(st, actorUID, ids, true)
}

// UnlockObjects clears locked on each resolving scene object. DM-only.
func UnlockObjects(st *State, actorUID string, ids []string) int {
	return setLocked(st, actorUID, ids, false)
}

func setLocked(st *State, actorUID string, ids []string, locked bool) int {
	if !st.IsDM(actorUID) {
		return 0
	}
	count := 0
	for _, id := range ids {
		if obj := st.FindSceneObject(id); obj != nil {
			obj.Locked = locked
			count++
		}
	}
	return count
}
