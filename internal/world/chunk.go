package world

import "github.com/pixil98/go-worldserv/internal/terrain"

// Chunk is a generated fixed-size square region of base terrain. Chunks
// are immutable once generated and fully regenerable from (seed, cx, cy),
// which is what makes evicting them lossless.
type Chunk struct {
	size    int
	terrain []terrain.TileType
}

// NewChunk wraps a row-major terrain buffer of length size*size.
func NewChunk(size int, buf []terrain.TileType) *Chunk {
	return &Chunk{size: size, terrain: buf}
}

// Size returns the chunk's width and height in tiles.
func (c *Chunk) Size() int {
	return c.size
}

// TerrainAt returns the tile at a local coordinate.
func (c *Chunk) TerrainAt(local LocalKey) terrain.TileType {
	return c.terrain[local.LY*c.size+local.LX]
}
