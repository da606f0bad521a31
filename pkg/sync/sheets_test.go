package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

func childSheet(name string) *ExistingSheet {
	return &ExistingSheet{
		SheetNode: &schematic.Sheet{Name: name, UUID: schematic.UUID("sheet-" + name)},
	}
}

func TestMatchSheetsByInstanceName(t *testing.T) {
	amp := childSheet("amp1")
	psu := childSheet("psu")
	parent := &ExistingSheet{Children: []*ExistingSheet{amp, psu}}

	desired := &DesiredSheet{Instances: []*DesiredInstance{
		{Name: "amp1", Sheet: &DesiredSheet{}},
		{Name: "filter", Sheet: &DesiredSheet{}},
	}}

	matches, removed := MatchSheets(desired, parent)
	require.Len(t, matches, 2)
	assert.Same(t, amp, matches[0].Existing)
	assert.Nil(t, matches[1].Existing, "filter is new")

	require.Len(t, removed, 1)
	assert.Same(t, psu, removed[0])
}

func TestMatchSheetsNilExisting(t *testing.T) {
	desired := &DesiredSheet{Instances: []*DesiredInstance{
		{Name: "amp1", Sheet: &DesiredSheet{}},
	}}

	matches, removed := MatchSheets(desired, nil)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Existing)
	assert.Empty(t, removed)
}

func pairedPort(name string) *ExistingPort {
	return &ExistingPort{
		Name:  name,
		Pin:   &schematic.SheetPin{Name: name, UUID: schematic.UUID("pin-" + name)},
		Label: &schematic.HierLabel{Text: name, UUID: schematic.UUID("lbl-" + name)},
	}
}

func TestDiffPortsKeepAddRemove(t *testing.T) {
	existing := childSheet("amp1")
	existing.Ports = []*ExistingPort{pairedPort("IN"), pairedPort("EN")}

	plan, warnings := DiffPorts([]string{"IN", "OUT"}, existing)
	assert.Empty(t, warnings)

	require.Len(t, plan.Keep, 1)
	assert.Equal(t, "IN", plan.Keep[0].Name)
	assert.Equal(t, []string{"OUT"}, plan.Add)
	require.Len(t, plan.Remove, 1)
	assert.Equal(t, "EN", plan.Remove[0].Name)
}

func TestDiffPortsOrphanedHalfIsRepaired(t *testing.T) {
	orphan := &ExistingPort{
		Name: "IN",
		Pin:  &schematic.SheetPin{Name: "IN", UUID: "pin-IN"},
	}
	existing := childSheet("amp1")
	existing.Ports = []*ExistingPort{orphan}

	plan, warnings := DiffPorts([]string{"IN"}, existing)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "orphaned")

	// The orphan half is removed and the pair re-derived whole.
	require.Len(t, plan.Remove, 1)
	assert.Same(t, orphan, plan.Remove[0])
	assert.Equal(t, []string{"IN"}, plan.Add)
	assert.Empty(t, plan.Keep)
}

func TestDiffPortsDuplicateNamesCollapse(t *testing.T) {
	existing := childSheet("amp1")
	existing.Ports = []*ExistingPort{pairedPort("IN"), pairedPort("IN")}

	plan, warnings := DiffPorts([]string{"IN"}, existing)
	assert.Empty(t, warnings)
	assert.Len(t, plan.Keep, 1)
	assert.Len(t, plan.Remove, 1)
	assert.Empty(t, plan.Add)
}

func TestDiffPortsNilExisting(t *testing.T) {
	plan, warnings := DiffPorts([]string{"OUT", "IN"}, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"IN", "OUT"}, plan.Add, "additions are sorted")
}
