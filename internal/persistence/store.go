// Package persistence owns the durable side of a room: the JSON session file,
// compressed archive copies, and the sqlite dice-roll log.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/klauspost/compress/zstd"

	"herobyte/internal/room"
)

// persistedState is the subset of room state written to disk. Ephemeral
// fields (connected users, pointers, selection, undo/redo) never appear here.
type persistedState struct {
	Tokens            []room.Token       `json:"tokens"`
	Players           []room.Player      `json:"players"`
	Characters        []room.Character   `json:"characters"`
	Props             []room.Prop        `json:"props"`
	MapBackground     string             `json:"mapBackground,omitempty"`
	Drawings          []room.Drawing     `json:"drawings"`
	GridSize          int                `json:"gridSize"`
	GridSquareSize    int                `json:"gridSquareSize"`
	DiceRolls         []room.DiceRoll    `json:"diceRolls"`
	SceneObjects      []room.SceneObject `json:"sceneObjects"`
	PlayerStagingZone *room.StagingZone  `json:"playerStagingZone,omitempty"`
}

// Store reads and writes one room's session file. Writes are asynchronous and
// fire-and-forget; Flush exists only so tests can await in-flight writes.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewStore creates a store for the session file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads and normalizes the session file. A missing file yields nil with
// no error; a corrupt file is logged and yields nil, leaving the caller's
// state untouched. Nothing is ever partially applied.
func (s *Store) Load() *room.State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read session file", slog.String("path", s.path), slog.String("error", err.Error()))
		}
		return nil
	}

	var saved persistedState
	if err := json.Unmarshal(data, &saved); err != nil {
		s.logger.Error("parse session file", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil
	}

	return normalize(saved)
}

// normalize applies defaults for missing fields and resets everything
// ephemeral regardless of file contents.
func normalize(saved persistedState) *room.State {
	st := room.NewState()

	if saved.GridSize > 0 {
		st.GridSize = saved.GridSize
	}
	if saved.GridSquareSize > 0 {
		st.GridSquareSize = saved.GridSquareSize
	}
	if saved.Tokens != nil {
		st.Tokens = saved.Tokens
	}
	if saved.Characters != nil {
		st.Characters = saved.Characters
	}
	if saved.Props != nil {
		st.Props = saved.Props
	}
	if saved.Drawings != nil {
		st.Drawings = saved.Drawings
	}
	if saved.DiceRolls != nil {
		st.DiceRolls = saved.DiceRolls
	}
	if saved.SceneObjects != nil {
		st.SceneObjects = saved.SceneObjects
	}
	st.MapBackground = saved.MapBackground
	st.PlayerStagingZone = saved.PlayerStagingZone

	for i := range st.Characters {
		st.Characters[i].Type = room.NormalizeCharacterType(st.Characters[i].Type)
	}

	// Connected users are live-only; the saved player list is merged back in
	// when participants reconnect, not restored wholesale.
	st.Players = []room.Player{}
	st.ResetEphemeral()
	return st
}

// SavedPlayers returns the player records from the session file without
// touching anything else, for merge-on-reconnect.
func (s *Store) SavedPlayers() []room.Player {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var saved persistedState
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil
	}
	for i := range saved.Players {
		if saved.Players[i].StatusEffects == nil {
			saved.Players[i].StatusEffects = room.StatusEffects{}
		}
	}
	return saved.Players
}

// Save serializes the persistent subset of state and writes it to disk
// asynchronously. The caller never waits; failures are logged and superseded
// by the next successful save.
func (s *Store) Save(st *room.State) {
	saved := persistedState{
		Tokens:            st.Tokens,
		Players:           st.Players,
		Characters:        st.Characters,
		Props:             st.Props,
		MapBackground:     st.MapBackground,
		Drawings:          st.Drawings,
		GridSize:          st.GridSize,
		GridSquareSize:    st.GridSquareSize,
		DiceRolls:         st.DiceRolls,
		SceneObjects:      st.SceneObjects,
		PlayerStagingZone: st.PlayerStagingZone,
	}

	// Marshal before returning so the write captures the state as of this
	// call; concurrent writes then race safely as full-file last-write-wins.
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		s.logger.Error("marshal session", slog.String("path", s.path), slog.String("error", err.Error()))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			s.logger.Error("ensure session dir", slog.String("path", s.path), slog.String("error", err.Error()))
			return
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			s.logger.Error("write session file", slog.String("path", s.path), slog.String("error", err.Error()))
		}
	}()
}

// Flush waits for in-flight writes. Test hook only; production control flow
// must never call it.
func (s *Store) Flush() {
	s.wg.Wait()
}

// ArchiveTo writes a zstd-compressed copy of the current session file into
// dir. A room that has never been saved archives nothing.
func (s *Store) ArchiveTo(dir string) error {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure archive dir: %w", err)
	}

	name := fmt.Sprintf("%s-%d.json.zst", trimExt(filepath.Base(s.path)), time.Now().Unix())
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
