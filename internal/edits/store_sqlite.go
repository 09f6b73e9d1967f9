package edits

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS placements (
	cx INTEGER NOT NULL,
	cy INTEGER NOT NULL,
	lx INTEGER NOT NULL,
	ly INTEGER NOT NULL,
	obj TEXT NOT NULL,
	rot INTEGER NOT NULL,
	owner_id INTEGER,
	updated_at_s REAL NOT NULL,
	PRIMARY KEY (cx, cy, lx, ly)
);
CREATE INDEX IF NOT EXISTS idx_placements_chunk ON placements (cx, cy);
`

// SQLiteStore is the durable Store implementation: one record per
// occupied world tile, so storage grows with edits made, not with world
// extent. One connection, one lock; every operation runs inside the
// critical section. This is the sole blocking boundary in the server and
// it only ever parks the calling connection's goroutine.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}

	// Single physical connection; logical callers serialize on s.mu.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting synchronous mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadChunk(key world.ChunkKey) (map[world.LocalKey]PlacedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT lx, ly, obj, rot, owner_id, updated_at_s
		 FROM placements
		 WHERE cx = ? AND cy = ?`,
		key.CX, key.CY,
	)
	if err != nil {
		return nil, fmt.Errorf("loading chunk (%d,%d): %w", key.CX, key.CY, err)
	}
	defer rows.Close()

	out := make(map[world.LocalKey]PlacedObject)
	for rows.Next() {
		var (
			lx, ly, rot int
			obj         string
			owner       sql.NullInt64
			updatedAt   float64
		)
		if err := rows.Scan(&lx, &ly, &obj, &rot, &owner, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning placement: %w", err)
		}

		placed := PlacedObject{
			Obj:       inventory.Resource(obj),
			Rot:       rot,
			UpdatedAt: updatedAt,
		}
		if owner.Valid {
			// Ids are stored bit-cast: sqlite INTEGER is signed 64-bit.
			pid := session.PlayerId(uint64(owner.Int64))
			placed.OwnerID = &pid
		}
		out[world.LocalKey{LX: lx, LY: ly}] = placed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating placements: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Upsert(key world.ChunkKey, local world.LocalKey, obj PlacedObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner sql.NullInt64
	if obj.OwnerID != nil {
		owner = sql.NullInt64{Int64: int64(uint64(*obj.OwnerID)), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO placements (cx, cy, lx, ly, obj, rot, owner_id, updated_at_s)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cx, cy, lx, ly) DO UPDATE SET
			obj = excluded.obj,
			rot = excluded.rot,
			owner_id = excluded.owner_id,
			updated_at_s = excluded.updated_at_s`,
		key.CX, key.CY, local.LX, local.LY,
		string(obj.Obj), obj.Rot, owner, obj.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting placement (%d,%d,%d,%d): %w",
			key.CX, key.CY, local.LX, local.LY, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key world.ChunkKey, local world.LocalKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`DELETE FROM placements WHERE cx = ? AND cy = ? AND lx = ? AND ly = ?`,
		key.CX, key.CY, local.LX, local.LY,
	)
	if err != nil {
		return fmt.Errorf("deleting placement (%d,%d,%d,%d): %w",
			key.CX, key.CY, local.LX, local.LY, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
