package room

import (
	"strings"
	"time"
)

// SceneKind tags one variant of the scene object union. Every switch over it
// must list all kinds and fail on anything else.
type SceneKind string

const (
	KindMap         SceneKind = "map"
	KindToken       SceneKind = "token"
	KindDrawing     SceneKind = "drawing"
	KindProp        SceneKind = "prop"
	KindPointer     SceneKind = "pointer"
	KindStagingZone SceneKind = "staging-zone"
)

// Transform is the presentation-layer placement of a scene object.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
}

// SceneData carries the variant-specific payload of a scene object. Only the
// fields relevant to the object's kind are populated.
type SceneData struct {
	ImageURL string  `json:"imageUrl,omitempty"`
	Color    string  `json:"color,omitempty"`
	Size     float64 `json:"size,omitempty"`
	Points   []Point `json:"points,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Filled   bool    `json:"filled,omitempty"`
	Shape    string  `json:"shape,omitempty"`
}

// SceneObject is the unified render-agnostic overlay entity. Its id is a
// deterministic composite of kind and source id and is never set externally.
type SceneObject struct {
	ID        string    `json:"id"`
	Kind      SceneKind `json:"kind"`
	Owner     string    `json:"owner,omitempty"`
	Locked    bool      `json:"locked"`
	ZIndex    int       `json:"zIndex"`
	Transform Transform `json:"transform"`
	Data      SceneData `json:"data"`
}

// Fixed composite ids for singleton scene objects.
const (
	sceneMapID     = "map:background"
	sceneStagingID = "staging-zone:player"
)

// SceneObjectID builds the composite id for a kind and source id.
func SceneObjectID(kind SceneKind, sourceID string) string {
	return string(kind) + ":" + sourceID
}

// sourceID extracts the source entity id from a composite scene object id.
func sourceID(objectID string) string {
	if i := strings.IndexByte(objectID, ':'); i >= 0 {
		return objectID[i+1:]
	}
	return objectID
}

func identityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// PointerTTL is how long a pointer stays visible after placement.
const PointerTTL = 3 * time.Second

// PurgeExpiredPointers drops pointers whose age has reached the TTL.
func PurgeExpiredPointers(st *State, now time.Time) {
	cutoff := now.UnixMilli() - PointerTTL.Milliseconds()
	kept := st.Pointers[:0]
	for _, p := range st.Pointers {
		if p.Timestamp > cutoff {
			kept = append(kept, p)
		}
	}
	st.Pointers = kept
}

// BuildSceneGraph recomputes the scene object overlay from the source
// collections, replacing the prior array. User-set presentation attributes
// (locked, zIndex, transform) are copied forward from the previous object with
// the same id; entities with no surviving source row are dropped. Token
// transforms always mirror the token's authoritative position.
func BuildSceneGraph(st *State) {
	prev := make(map[string]SceneObject, len(st.SceneObjects))
	for _, obj := range st.SceneObjects {
		prev[obj.ID] = obj
	}

	out := make([]SceneObject, 0, len(st.Tokens)+len(st.Drawings)+len(st.Props)+len(st.Pointers)+2)

	if st.MapBackground != "" {
		obj := SceneObject{
			ID:        sceneMapID,
			Kind:      KindMap,
			Locked:    true,
			ZIndex:    -100,
			Transform: identityTransform(),
		}
		if p, ok := prev[obj.ID]; ok {
			obj.Locked = p.Locked
			obj.ZIndex = p.ZIndex
			obj.Transform = p.Transform
		}
		obj.Data = SceneData{ImageURL: st.MapBackground}
		out = append(out, obj)
	}

	for _, tok := range st.Tokens {
		obj := SceneObject{
			ID:        SceneObjectID(KindToken, tok.ID),
			Kind:      KindToken,
			Owner:     tok.Owner,
			ZIndex:    10,
			Transform: identityTransform(),
		}
		if p, ok := prev[obj.ID]; ok {
			obj.Locked = p.Locked
			obj.ZIndex = p.ZIndex
			obj.Transform = p.Transform
		}
		// Position is never user-overridable independent of the token.
		obj.Transform.X = tok.X
		obj.Transform.Y = tok.Y
		obj.Data = SceneData{ImageURL: tok.ImageURL, Color: tok.Color, Size: tok.Size}
		out = append(out, obj)
	}

	for _, d := range st.Drawings {
		obj := SceneObject{
			ID:        SceneObjectID(KindDrawing, d.ID),
			Kind:      KindDrawing,
			Owner:     d.Owner,
			ZIndex:    5,
			Transform: identityTransform(),
		}
		if p, ok := prev[obj.ID]; ok {
			obj.Locked = p.Locked
			obj.ZIndex = p.ZIndex
			obj.Transform = p.Transform
		}
		obj.Data = SceneData{Color: d.Color, Width: d.Width, Points: d.Points, Filled: d.Filled, Shape: d.Kind}
		out = append(out, obj)
	}

	for _, pr := range st.Props {
		obj := SceneObject{
			ID:        SceneObjectID(KindProp, pr.ID),
			Kind:      KindProp,
			Owner:     pr.Owner,
			ZIndex:    5,
			Transform: identityTransform(),
		}
		if p, ok := prev[obj.ID]; ok {
			obj.Locked = p.Locked
			obj.ZIndex = p.ZIndex
			obj.Transform = p.Transform
		}
		obj.Data = SceneData{ImageURL: pr.ImageURL, Size: pr.Size}
		out = append(out, obj)
	}

	// Pointers are ephemeral and rebuilt unconditionally; no prior transform
	// survives beyond the position tracked on the pointer itself.
	for _, ptr := range st.Pointers {
		obj := SceneObject{
			ID:        SceneObjectID(KindPointer, ptr.UID),
			Kind:      KindPointer,
			Owner:     ptr.UID,
			Locked:    true,
			ZIndex:    20,
			Transform: identityTransform(),
		}
		obj.Transform.X = ptr.X
		obj.Transform.Y = ptr.Y
		out = append(out, obj)
	}

	if z := st.PlayerStagingZone; z != nil {
		obj := SceneObject{
			ID:        sceneStagingID,
			Kind:      KindStagingZone,
			Locked:    true,
			ZIndex:    -50,
			Transform: identityTransform(),
		}
		if p, ok := prev[obj.ID]; ok {
			obj.Locked = p.Locked
			obj.ZIndex = p.ZIndex
			obj.Transform = p.Transform
		}
		obj.Transform.X = z.X
		obj.Transform.Y = z.Y
		obj.Transform.Rotation = z.Rotation
		obj.Data = SceneData{Width: z.Width, Height: z.Height}
		out = append(out, obj)
	}

	st.SceneObjects = out
}

// drawingsFromScene reconstructs drawing source rows from drawing-kind scene
// objects, used when a loaded session carries scene objects instead of the
// legacy drawings array.
func drawingsFromScene(objects []SceneObject) []Drawing {
	drawings := []Drawing{}
	for _, obj := range objects {
		if obj.Kind != KindDrawing {
			continue
		}
		drawings = append(drawings, Drawing{
			ID:     sourceID(obj.ID),
			Owner:  obj.Owner,
			Kind:   obj.Data.Shape,
			Points: obj.Data.Points,
			Color:  obj.Data.Color,
			Width:  obj.Data.Width,
			Filled: obj.Data.Filled,
		})
	}
	return drawings
}
