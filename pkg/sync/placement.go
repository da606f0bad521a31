package sync

import (
	"math"

	"github.com/circuit-synth/schsync/internal/config"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

// Region is an occupied rectangle on a sheet, in millimeters.
type Region struct {
	Min schematic.Position
	Max schematic.Position
}

// Overlaps reports whether two regions intersect.
func (r Region) Overlaps(other Region) bool {
	return r.Min.X <= other.Max.X && r.Max.X >= other.Min.X &&
		r.Min.Y <= other.Max.Y && r.Max.Y >= other.Min.Y
}

// RegionAround returns the occupied region for an entity footprint
// centered at pos.
func RegionAround(pos schematic.Position, halfSize float64) Region {
	return Region{
		Min: schematic.Position{X: pos.X - halfSize, Y: pos.Y - halfSize},
		Max: schematic.Position{X: pos.X + halfSize, Y: pos.Y + halfSize},
	}
}

// Placer is the placement oracle: it assigns initial coordinates to
// newly added entities only, guaranteeing no overlap with the occupied
// regions of every kept entity. It is called once per run per sheet and
// must never be asked to reposition an entity that already has a place.
type Placer interface {
	Place(count int, occupied []Region) []schematic.Position
}

// GridPlacer walks a fixed grid left-to-right, top-to-bottom, skipping
// cells that collide with occupied regions.
type GridPlacer struct {
	Grid    float64
	OriginX float64
	OriginY float64

	// Pitch is the center-to-center distance between placed entities,
	// in grid cells.
	Pitch int

	// Columns bounds a placement row before wrapping.
	Columns int

	// HalfSize is the assumed half-extent of a placed entity.
	HalfSize float64
}

// NewGridPlacer builds the default placer from placement config.
func NewGridPlacer(p config.Placement) *GridPlacer {
	return &GridPlacer{
		Grid:     p.GridMM,
		OriginX:  p.OriginX,
		OriginY:  p.OriginY,
		Pitch:    8,
		Columns:  10,
		HalfSize: 7.62,
	}
}

// Place implements Placer.
func (g *GridPlacer) Place(count int, occupied []Region) []schematic.Position {
	positions := make([]schematic.Position, 0, count)
	taken := append([]Region{}, occupied...)

	step := float64(g.Pitch) * g.Grid
	row, col := 0, 0
	for len(positions) < count {
		// Coordinates snap to the 0.01mm precision the file format
		// carries, so multiplied grid steps never drift below it.
		pos := schematic.Position{
			X: snapMM(g.OriginX + float64(col)*step),
			Y: snapMM(g.OriginY + float64(row)*step),
		}
		col++
		if col >= g.Columns {
			col = 0
			row++
		}

		candidate := RegionAround(pos, g.HalfSize)
		collides := false
		for _, r := range taken {
			if candidate.Overlaps(r) {
				collides = true
				break
			}
		}
		if collides {
			continue
		}

		positions = append(positions, pos)
		taken = append(taken, candidate)
	}

	return positions
}

// snapMM rounds a coordinate to 0.01mm.
func snapMM(v float64) float64 {
	return math.Round(v*100) / 100
}
