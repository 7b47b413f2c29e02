// Package registry assembles one isolated state store and persistence manager
// pair per room identifier. Rooms never share state or locks, so they execute
// fully in parallel.
package registry

import (
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"herobyte/internal/persistence"
	"herobyte/internal/room"
)

// Tuning carries gameplay defaults, optionally overridden by a YAML file.
type Tuning struct {
	GridSize          int     `yaml:"gridSize"`
	GridSquareSize    int     `yaml:"gridSquareSize"`
	StagingZoneMinDim float64 `yaml:"stagingZoneMinDim"`
	DiceHistoryLimit  int     `yaml:"diceHistoryLimit"`
}

// DefaultTuning returns the built-in gameplay defaults.
func DefaultTuning() Tuning {
	return Tuning{
		GridSize:          room.DefaultGridSize,
		GridSquareSize:    room.DefaultGridSquareSize,
		StagingZoneMinDim: 10,
		DiceHistoryLimit:  50,
	}
}

// Registry maps room identifiers to their owned Room, constructed lazily on
// first access.
type Registry struct {
	dataDir string
	logger  *slog.Logger
	tuning  Tuning
	dice    *persistence.DiceLog

	mu    sync.Mutex
	rooms map[string]*Room
}

// New creates a registry rooted at dataDir. dice may be nil when roll history
// persistence is disabled.
func New(dataDir string, logger *slog.Logger, tuning Tuning, dice *persistence.DiceLog) *Registry {
	return &Registry{
		dataDir: dataDir,
		logger:  logger,
		tuning:  tuning,
		dice:    dice,
		rooms:   make(map[string]*Room),
	}
}

// Room returns the room for id, creating and loading it on first access.
func (r *Registry) Room(id string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[id]; ok {
		return rm
	}

	store := persistence.NewStore(filepath.Join(r.dataDir, "rooms", id+".json"), r.logger)
	rm := &Room{
		ID:     id,
		state:  room.NewState(),
		store:  store,
		dice:   r.dice,
		logger: r.logger.With(slog.String("room", id)),
		tuning: r.tuning,
		now:    time.Now,
	}
	rm.state.GridSize = r.tuning.GridSize
	rm.state.GridSquareSize = r.tuning.GridSquareSize
	rm.LoadState()
	r.rooms[id] = rm
	return rm
}

// ArchiveAll writes a compressed archive copy of every open room's session
// file, typically on graceful shutdown.
func (r *Registry) ArchiveAll() {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	dir := filepath.Join(r.dataDir, "archives")
	for _, rm := range rooms {
		rm.store.Flush()
		if err := rm.store.ArchiveTo(dir); err != nil {
			r.logger.Error("archive room", slog.String("room", rm.ID), slog.String("error", err.Error()))
		}
	}
}
