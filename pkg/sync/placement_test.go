package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circuit-synth/schsync/internal/config"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

func TestGridPlacerFirstFreeCells(t *testing.T) {
	placer := NewGridPlacer(config.Default().Placement)

	positions := placer.Place(3, nil)
	assert.Len(t, positions, 3)
	assert.Equal(t, schematic.Position{X: 25.4, Y: 25.4}, positions[0])
	assert.Equal(t, schematic.Position{X: 45.72, Y: 25.4}, positions[1])
	assert.Equal(t, schematic.Position{X: 66.04, Y: 25.4}, positions[2])
}

func TestGridPlacerSkipsOccupied(t *testing.T) {
	placer := NewGridPlacer(config.Default().Placement)

	occupied := []Region{RegionAround(schematic.Position{X: 25.4, Y: 25.4}, 7.62)}
	positions := placer.Place(1, occupied)
	assert.Equal(t, schematic.Position{X: 45.72, Y: 25.4}, positions[0])
}

func TestGridPlacerNeverOverlapsItself(t *testing.T) {
	placer := NewGridPlacer(config.Default().Placement)

	positions := placer.Place(25, nil)
	for i := range positions {
		for j := i + 1; j < len(positions); j++ {
			a := RegionAround(positions[i], placer.HalfSize)
			b := RegionAround(positions[j], placer.HalfSize)
			assert.False(t, a.Overlaps(b), "positions %d and %d overlap", i, j)
		}
	}
}

func TestGridPlacerWrapsRows(t *testing.T) {
	placer := NewGridPlacer(config.Default().Placement)

	positions := placer.Place(11, nil)
	assert.Equal(t, schematic.Position{X: 25.4, Y: 45.72}, positions[10])
}
