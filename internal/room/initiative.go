package room

import "sort"

// OrderByInitiative computes the turn order: characters with a defined
// initiative, sorted by initiative plus modifier descending, ties broken by
// PC before NPC, remaining ties by original array position. The sort is
// stable, so repeated calls on unchanged input yield identical orderings.
func OrderByInitiative(characters []Character) []Character {
	ordered := make([]Character, 0, len(characters))
	for _, c := range characters {
		if c.Initiative != nil {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		si := *ordered[i].Initiative + ordered[i].InitiativeModifier
		sj := *ordered[j].Initiative + ordered[j].InitiativeModifier
		if si != sj {
			return si > sj
		}
		ti := NormalizeCharacterType(ordered[i].Type)
		tj := NormalizeCharacterType(ordered[j].Type)
		return ti == CharacterPC && tj == CharacterNPC
	})
	return ordered
}

// NextTurn advances the current turn to the next character in initiative
// order, wrapping around. A no-op when no character has initiative.
func NextTurn(st *State) bool {
	return stepTurn(st, 1)
}

// PreviousTurn retreats the current turn, wrapping around.
func PreviousTurn(st *State) bool {
	return stepTurn(st, -1)
}

func stepTurn(st *State, delta int) bool {
	order := OrderByInitiative(st.Characters)
	if len(order) == 0 {
		return false
	}
	current := -1
	for i, c := range order {
		if c.ID == st.CurrentTurnCharacterID {
			current = i
			break
		}
	}
	var next int
	if current < 0 {
		if delta > 0 {
			next = 0
		} else {
			next = len(order) - 1
		}
	} else {
		next = (current + delta + len(order)) % len(order)
	}
	st.CurrentTurnCharacterID = order[next].ID
	return true
}
