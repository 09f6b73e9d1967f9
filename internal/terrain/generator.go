package terrain

import (
	"github.com/aquilax/go-perlin"
)

// moistureSeedOffset decorrelates the moisture field from the elevation
// field so the two don't produce visually identical bands.
const moistureSeedOffset = 7919

// FieldParams configures one coherent-noise field.
type FieldParams struct {
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Amplitude   float64
	Bias        float64
}

// DefaultElevationParams matches the world's canonical elevation field.
// Changing these changes every existing world, so treat them as frozen.
func DefaultElevationParams() FieldParams {
	return FieldParams{
		Scale:       100.0,
		Octaves:     3,
		Persistence: 0.5,
		Lacunarity:  4.0,
		Amplitude:   5.0,
		Bias:        0.0,
	}
}

// DefaultMoistureParams matches the world's canonical moisture field.
func DefaultMoistureParams() FieldParams {
	return FieldParams{
		Scale:       200.0,
		Octaves:     2,
		Persistence: 0.5,
		Lacunarity:  2.5,
		Amplitude:   5.0,
		Bias:        0.0,
	}
}

// field is one sampled noise layer. The perlin source is read-only after
// construction, so a field is safe for concurrent use.
type field struct {
	params FieldParams
	noise  *perlin.Perlin
}

func newField(seed int64, p FieldParams) *field {
	return &field{
		params: p,
		// alpha is the octave weight divisor, the inverse of persistence.
		noise: perlin.NewPerlin(1.0/p.Persistence, p.Lacunarity, int32(p.Octaves), seed),
	}
}

// sampleQ samples the field at a world coordinate and quantizes the raw
// noise value into an integer code via the amplitude/bias transform.
func (f *field) sampleQ(x, y int) int {
	inv := 1.0 / f.params.Scale
	v := f.noise.Noise2D(float64(x)*inv, float64(y)*inv)
	return int((v + f.params.Bias) * f.params.Amplitude)
}

// Generator deterministically maps (seed, world coordinate) to terrain.
// It holds no mutable state and may be shared across goroutines freely.
type Generator struct {
	seed      int64
	elevation *field
	moisture  *field
}

// NewGenerator builds a generator for a world seed using the canonical
// field parameters.
func NewGenerator(seed int64) *Generator {
	return NewGeneratorParams(seed, DefaultElevationParams(), DefaultMoistureParams())
}

// NewGeneratorParams builds a generator with explicit field parameters.
func NewGeneratorParams(seed int64, elev, moist FieldParams) *Generator {
	return &Generator{
		seed:      seed,
		elevation: newField(seed, elev),
		moisture:  newField(seed+moistureSeedOffset, moist),
	}
}

// Seed returns the world seed the generator was built with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// TerrainAt returns the generated tile at a world coordinate. Identical
// (seed, x, y) always produces an identical tile, across restarts too:
// generated terrain backs a persistent world and must never drift.
func (g *Generator) TerrainAt(x, y int) TileType {
	e := classify(elevationCutoffs, g.elevation.sampleQ(x, y))
	m := classify(moistureCutoffs, g.moisture.sampleQ(x, y))
	return resolveTile(e, m)
}

// GenerateChunk fills a row-major buffer of size*size tiles for the chunk
// at (cx, cy). Element ly*size+lx equals TerrainAt at the corresponding
// world coordinate exactly.
func (g *Generator) GenerateChunk(cx, cy, size int) []TileType {
	wx0 := cx * size
	wy0 := cy * size

	out := make([]TileType, size*size)
	for ly := 0; ly < size; ly++ {
		row := ly * size
		for lx := 0; lx < size; lx++ {
			out[row+lx] = g.TerrainAt(wx0+lx, wy0+ly)
		}
	}
	return out
}
