package terrain

// TileType identifies a terrain material. The same identifier space is
// used for generated base terrain and for placeable overlay objects.
type TileType string

const (
	TileGrass     TileType = "grass"
	TileDarkGrass TileType = "dark_grass"
	TileSand      TileType = "sand"
	TileWater     TileType = "water"
	TileDeepWater TileType = "deep_water"
	TileRock      TileType = "rock"
)

// IsWater reports whether the tile is a water material.
func (t TileType) IsWater() bool {
	return t == TileWater || t == TileDeepWater
}
