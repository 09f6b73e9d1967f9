package world

// ChunkKey identifies a chunk by its chunk-space coordinates. A dedicated
// value type so every component keys its maps the same way.
type ChunkKey struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

// LocalKey identifies a tile within a chunk, 0 <= LX,LY < chunk size.
type LocalKey struct {
	LX int
	LY int
}

// SplitWorld converts a world tile coordinate into its owning chunk and
// local offset using floor division, so it is correct for negative
// coordinates too. Invariant: ComposeWorld(SplitWorld(wx, wy)) == (wx, wy).
func SplitWorld(wx, wy, size int) (ChunkKey, LocalKey) {
	cx := floorDiv(wx, size)
	cy := floorDiv(wy, size)
	return ChunkKey{CX: cx, CY: cy}, LocalKey{LX: wx - cx*size, LY: wy - cy*size}
}

// ComposeWorld recombines a chunk and local coordinate into a world
// coordinate.
func ComposeWorld(key ChunkKey, local LocalKey, size int) (int, int) {
	return key.CX*size + local.LX, key.CY*size + local.LY
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
