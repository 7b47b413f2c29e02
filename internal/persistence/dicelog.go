package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"herobyte/internal/room"
)

// DiceLog appends resolved dice rolls to a SQLite database shared across
// rooms in one data directory.
type DiceLog struct {
	db *sql.DB
}

// OpenDiceLog prepares the dice-roll database at the given path and ensures
// the schema exists.
func OpenDiceLog(path string) (*DiceLog, error) {
	if path == "" {
		return nil, errors.New("dice log path is empty")
	}

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure dice log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS dice_logs (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		seed INTEGER NOT NULL,
		count INTEGER NOT NULL,
		sides INTEGER NOT NULL,
		results TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dice_logs_room_timestamp ON dice_logs(room_id, timestamp DESC, id DESC);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DiceLog{db: db}, nil
}

// Append records one roll for a room.
func (l *DiceLog) Append(roomID string, roll room.DiceRoll) error {
	results, err := json.Marshal(roll.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = l.db.Exec(
		`INSERT INTO dice_logs (id, room_id, seed, count, sides, results, triggered_by, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		roll.ID, roomID, roll.Seed, roll.Count, roll.Sides, string(results), roll.TriggeredBy,
		time.UnixMilli(roll.Timestamp).UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert dice log: %w", err)
	}
	return nil
}

// Recent returns up to limit rolls for a room, newest first.
func (l *DiceLog) Recent(roomID string, limit int) ([]room.DiceRoll, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT id, seed, count, sides, results, triggered_by, timestamp
		 FROM dice_logs WHERE room_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query dice log: %w", err)
	}
	defer rows.Close()

	var rolls []room.DiceRoll
	for rows.Next() {
		var r room.DiceRoll
		var results string
		var ts time.Time
		if err := rows.Scan(&r.ID, &r.Seed, &r.Count, &r.Sides, &results, &r.TriggeredBy, &ts); err != nil {
			return nil, fmt.Errorf("scan dice log: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &r.Results); err != nil {
			return nil, fmt.Errorf("parse results: %w", err)
		}
		r.Timestamp = ts.UnixMilli()
		rolls = append(rolls, r)
	}
	return rolls, rows.Err()
}

// Close releases database resources.
func (l *DiceLog) Close() error {
	return l.db.Close()
}

func ensureDir(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	return os.MkdirAll(path, 0o755)
}
