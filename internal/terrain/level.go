package terrain

// Elevation classifies quantized elevation noise.
type Elevation int

const (
	ElevationLow Elevation = iota
	ElevationMid
	ElevationHigh
)

// Moisture classifies quantized moisture noise.
type Moisture int

const (
	MoistureDry Moisture = iota
	MoistureNormal
	MoistureWet
)

// cutoff maps a quantized noise code to a level. Cutoffs are checked in
// order and the first entry whose threshold is >= the code wins, so each
// table must end with a catch-all.
type cutoff[L ~int] struct {
	threshold int
	level     L
}

func classify[L ~int](cutoffs []cutoff[L], code int) L {
	for _, c := range cutoffs[:len(cutoffs)-1] {
		if code <= c.threshold {
			return c.level
		}
	}
	return cutoffs[len(cutoffs)-1].level
}

var elevationCutoffs = []cutoff[Elevation]{
	{threshold: -1, level: ElevationLow},
	{threshold: 1, level: ElevationMid},
	{level: ElevationHigh}, // catch-all
}

var moistureCutoffs = []cutoff[Moisture]{
	{threshold: -2, level: MoistureDry},
	{threshold: 1, level: MoistureNormal},
	{level: MoistureWet}, // catch-all
}

// levelPair keys the tile lookup table.
type levelPair struct {
	elevation Elevation
	moisture  Moisture
}

// tileTable resolves (elevation, moisture) to a tile. Low elevation is
// short-circuited to deep water before this table is consulted.
var tileTable = map[levelPair]TileType{
	{ElevationMid, MoistureDry}:     TileSand,
	{ElevationMid, MoistureNormal}:  TileGrass,
	{ElevationMid, MoistureWet}:     TileDarkGrass,
	{ElevationHigh, MoistureDry}:    TileRock,
	{ElevationHigh, MoistureNormal}: TileGrass,
	{ElevationHigh, MoistureWet}:    TileDarkGrass,
}

const defaultTile = TileGrass

func resolveTile(e Elevation, m Moisture) TileType {
	if e == ElevationLow {
		return TileDeepWater
	}
	if t, ok := tileTable[levelPair{e, m}]; ok {
		return t
	}
	return defaultTile
}
