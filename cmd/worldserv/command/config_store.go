package command

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-worldserv/internal/edits"
)

type StoreConfig struct {
	// Path is the SQLite database file holding placements. Empty keeps
	// all edits in memory for the life of the process.
	Path string `json:"path"`
}

func (c *StoreConfig) validate() error {
	return nil
}

func (c *StoreConfig) BuildStore() (edits.Store, error) {
	if c.Path == "" {
		slog.Warn("no store path configured, world edits will not survive a restart")
		return edits.NewMemStore(), nil
	}

	store, err := edits.NewSQLiteStore(c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening placement store %q: %w", c.Path, err)
	}
	return store, nil
}
