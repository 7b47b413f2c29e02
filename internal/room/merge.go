package room

import "encoding/json"

// MergeSnapshot reconciles a saved session snapshot with the live room and
// returns the merged state. Currently connected participants keep their live
// records for connection metadata and win every id collision on entities they
// own; saved entities that do not collide are appended. Ephemeral state is
// always reset regardless of saved content.
func MergeSnapshot(saved Snapshot, live *State, stagingMinDim float64) *State {
	resolveAssetRefs(&saved)

	merged := NewState()

	connected := make(map[string]bool, len(live.Players))
	for _, p := range live.Players {
		connected[p.UID] = true
	}

	savedPlayers := make(map[string]Player, len(saved.Players))
	for _, p := range saved.Players {
		savedPlayers[p.UID] = p
	}

	// Only currently connected uids appear in the output. Saved fields win
	// except live-only connection metadata.
	for _, lp := range live.Players {
		if sp, ok := savedPlayers[lp.UID]; ok {
			sp.LastHeartbeat = lp.LastHeartbeat
			sp.MicLevel = lp.MicLevel
			if sp.StatusEffects == nil {
				sp.StatusEffects = StatusEffects{}
			}
			merged.Players = append(merged.Players, sp)
			continue
		}
		merged.Players = append(merged.Players, lp)
	}

	seenCharacters := map[string]bool{}
	for _, c := range live.Characters {
		if connected[c.OwnedByPlayerUID] {
			merged.Characters = append(merged.Characters, c)
			seenCharacters[c.ID] = true
		}
	}
	for _, c := range saved.Characters {
		if seenCharacters[c.ID] {
			continue
		}
		c.Type = NormalizeCharacterType(c.Type)
		merged.Characters = append(merged.Characters, c)
	}

	seenTokens := map[string]bool{}
	for _, t := range live.Tokens {
		if connected[t.Owner] {
			merged.Tokens = append(merged.Tokens, t)
			seenTokens[t.ID] = true
		}
	}
	for _, t := range saved.Tokens {
		if !seenTokens[t.ID] {
			merged.Tokens = append(merged.Tokens, t)
		}
	}

	merged.Props = append(merged.Props, saved.Props...)

	// A snapshot carrying scene objects makes them authoritative; the legacy
	// drawings array is not loaded and drawing rows are recovered from the
	// overlay so the next rebuild keeps their presentation state.
	if len(saved.SceneObjects) > 0 {
		merged.SceneObjects = append(merged.SceneObjects, saved.SceneObjects...)
		merged.Drawings = drawingsFromScene(saved.SceneObjects)
	} else {
		merged.Drawings = append(merged.Drawings, saved.Drawings...)
	}

	merged.DiceRolls = append(merged.DiceRolls, saved.DiceRolls...)
	merged.MapBackground = saved.MapBackground

	merged.GridSize = saved.GridSize
	if merged.GridSize <= 0 {
		merged.GridSize = DefaultGridSize
	}
	merged.GridSquareSize = saved.GridSquareSize
	if merged.GridSquareSize <= 0 {
		merged.GridSquareSize = DefaultGridSquareSize
	}
	merged.CombatActive = saved.CombatActive
	merged.CurrentTurnCharacterID = saved.CurrentTurnCharacterID
	merged.PlayerStagingZone = SanitizeStagingZone(saved.PlayerStagingZone, stagingMinDim)

	merged.StateVersion = live.StateVersion
	if saved.StateVersion > merged.StateVersion {
		merged.StateVersion = saved.StateVersion
	}

	merged.ResetEphemeral()
	return merged
}

// resolveAssetRefs replaces indirect asset references with their payloads.
// Fields with no reference keep their inline values.
func resolveAssetRefs(snap *Snapshot) {
	if snap.AssetRefs == nil {
		return
	}
	assets := make(map[string]json.RawMessage, len(snap.Assets))
	for _, a := range snap.Assets {
		assets[a.ID] = a.Payload
	}
	if id := snap.AssetRefs.MapBackground; id != "" {
		if payload, ok := assets[id]; ok {
			var bg string
			if err := json.Unmarshal(payload, &bg); err == nil {
				snap.MapBackground = bg
			}
		}
	}
	if id := snap.AssetRefs.Drawings; id != "" {
		if payload, ok := assets[id]; ok {
			var drawings []Drawing
			if err := json.Unmarshal(payload, &drawings); err == nil {
				snap.Drawings = drawings
			}
		}
	}
	snap.Assets = nil
	snap.AssetRefs = nil
}
