package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

func keepAction(token, ref string, pins map[string]NetID) ComponentAction {
	return ComponentAction{
		Kind:    Keep,
		Desired: &DesiredComponent{Ref: ref, Pins: pins},
		Token:   schematic.UUID(token),
		Ref:     ref,
	}
}

func TestSyncNetsAddsLabelsForFreshPins(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{
		keepAction("tok-r1", "R1", map[string]NetID{
			"1": {Scope: "/", Name: "N1"},
			"2": {Scope: "/", Name: "GND"},
		}),
	}

	ns, err := SyncNets(testContext(), desired, nil, actions)
	require.NoError(t, err)
	require.Len(t, ns.Actions, 2)

	assert.Equal(t, LabelAdd, ns.Actions[0].Kind)
	assert.Equal(t, "N1", ns.Actions[0].Name)
	assert.False(t, ns.Actions[0].Power)

	assert.Equal(t, LabelAdd, ns.Actions[1].Kind)
	assert.Equal(t, "GND", ns.Actions[1].Name)
	assert.True(t, ns.Actions[1].Power, "GND is a power class net")
}

func TestSyncNetsRenameInPlaceForKeptOwner(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{
		keepAction("tok-r1", "R1", map[string]NetID{"1": {Scope: "/", Name: "N2"}}),
	}
	existing := &ExistingSheet{PinLabels: map[PinKey]PinLabel{
		{Token: "tok-r1", Pin: "1"}: {Name: "N1", UUID: "lbl-1"},
	}}

	ns, err := SyncNets(testContext(), desired, existing, actions)
	require.NoError(t, err)
	require.Len(t, ns.Actions, 1)
	assert.Equal(t, LabelRename, ns.Actions[0].Kind)
	assert.Equal(t, "N1", ns.Actions[0].OldName)
	assert.Equal(t, "N2", ns.Actions[0].Name)
}

func TestSyncNetsRemoveAddPairForRenamedOwner(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{{
		Kind:    Rename,
		Desired: &DesiredComponent{Ref: "R5", Pins: map[string]NetID{"1": {Scope: "/", Name: "N2"}}},
		Token:   "tok-r1",
		Ref:     "R5",
	}}
	existing := &ExistingSheet{PinLabels: map[PinKey]PinLabel{
		{Token: "tok-r1", Pin: "1"}: {Name: "N1", UUID: "lbl-1"},
	}}

	ns, err := SyncNets(testContext(), desired, existing, actions)
	require.NoError(t, err)
	require.Len(t, ns.Actions, 2)
	assert.Equal(t, LabelAdd, ns.Actions[0].Kind)
	assert.Equal(t, LabelRemove, ns.Actions[1].Kind)
}

func TestSyncNetsRemovedComponentLabelsDieSilently(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{{
		Kind:     Remove,
		Existing: &ExistingComponent{Ref: "R1"},
		Token:    "tok-r1",
		Ref:      "R1",
	}}
	existing := &ExistingSheet{PinLabels: map[PinKey]PinLabel{
		{Token: "tok-r1", Pin: "1"}: {Name: "N1", UUID: "lbl-1"},
	}}

	ns, err := SyncNets(testContext(), desired, existing, actions)
	require.NoError(t, err)
	assert.Empty(t, ns.Actions, "labels follow their component, no separate removal")
}

func TestSyncNetsNamespaceViolation(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{
		keepAction("tok-a", "R1", map[string]NetID{"1": {Scope: "/amp1", Name: "X"}}),
		keepAction("tok-b", "R2", map[string]NetID{"1": {Scope: "/amp2", Name: "X"}}),
	}

	_, err := SyncNets(testContext(), desired, nil, actions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNamespaceViolation))

	var nv *NamespaceViolationError
	require.True(t, errors.As(err, &nv))
	assert.Equal(t, "X", nv.Rendered)
}

func TestSyncNetsPowerNetsExemptFromNamespaceCheck(t *testing.T) {
	desired := &DesiredSheet{}
	actions := []ComponentAction{
		keepAction("tok-a", "R1", map[string]NetID{"1": {Scope: "/amp1", Name: "GND"}}),
		keepAction("tok-b", "R2", map[string]NetID{"1": {Scope: "/amp2", Name: "GND"}}),
	}

	_, err := SyncNets(testContext(), desired, nil, actions)
	assert.NoError(t, err)
}

func TestDeriveNetEventsMerge(t *testing.T) {
	prev := map[PinKey]PinLabel{
		{Token: "a", Pin: "1"}: {Name: "N1"},
		{Token: "b", Pin: "1"}: {Name: "N2"},
	}
	cur := map[PinKey]PinNet{
		{Token: "a", Pin: "1"}: {Name: "N1"},
		{Token: "b", Pin: "1"}: {Name: "N1"},
	}

	events := deriveNetEvents("/", prev, cur)
	require.Len(t, events, 1)
	assert.Equal(t, NetMerge, events[0].Kind)
	assert.Equal(t, []string{"N1", "N2"}, events[0].From)
	assert.Equal(t, []string{"N1"}, events[0].To)
}

func TestDeriveNetEventsSplit(t *testing.T) {
	prev := map[PinKey]PinLabel{
		{Token: "a", Pin: "1"}: {Name: "N1"},
		{Token: "b", Pin: "1"}: {Name: "N1"},
	}
	cur := map[PinKey]PinNet{
		{Token: "a", Pin: "1"}: {Name: "N1"},
		{Token: "b", Pin: "1"}: {Name: "N2"},
	}

	events := deriveNetEvents("/", prev, cur)
	require.Len(t, events, 1)
	assert.Equal(t, NetSplit, events[0].Kind)
	assert.Equal(t, []string{"N1"}, events[0].From)
	assert.Equal(t, []string{"N1", "N2"}, events[0].To)
}

func TestDeriveNetEventsDelete(t *testing.T) {
	prev := map[PinKey]PinLabel{
		{Token: "a", Pin: "1"}: {Name: "N1"},
		{Token: "a", Pin: "2"}: {Name: "N1"},
	}
	cur := map[PinKey]PinNet{}

	events := deriveNetEvents("/", prev, cur)
	require.Len(t, events, 1)
	assert.Equal(t, NetDelete, events[0].Kind)
	assert.Equal(t, []string{"N1"}, events[0].From)
}
