package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

const (
	defaultChunkSize        = 32
	defaultMaxTerrainChunks = 1024
	defaultMaxEditChunks    = 1024
)

type WorldConfig struct {
	Seed             int64 `json:"seed"`
	ChunkSize        int   `json:"chunk_size"`
	MaxTerrainChunks int   `json:"max_terrain_chunks"`
	MaxEditChunks    int   `json:"max_edit_chunks"`
}

func (c *WorldConfig) validate() error {
	el := errors.NewErrorList()

	if c.ChunkSize < 0 {
		el.Add(fmt.Errorf("chunk_size must be a positive integer"))
	}
	if c.MaxTerrainChunks < 0 {
		el.Add(fmt.Errorf("max_terrain_chunks must be a positive integer"))
	}
	if c.MaxEditChunks < 0 {
		el.Add(fmt.Errorf("max_edit_chunks must be a positive integer"))
	}

	return el.Err()
}

func (c *WorldConfig) chunkSize() int {
	if c.ChunkSize == 0 {
		return defaultChunkSize
	}
	return c.ChunkSize
}

func (c *WorldConfig) maxTerrainChunks() int {
	if c.MaxTerrainChunks == 0 {
		return defaultMaxTerrainChunks
	}
	return c.MaxTerrainChunks
}

func (c *WorldConfig) maxEditChunks() int {
	if c.MaxEditChunks == 0 {
		return defaultMaxEditChunks
	}
	return c.MaxEditChunks
}
