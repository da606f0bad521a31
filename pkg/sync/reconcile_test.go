package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-synth/schsync/internal/config"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

func testContext() *Context {
	ctx := NewContext(config.Default())
	ctx.Tokens = &SequentialTokens{Prefix: "tok"}
	return ctx
}

func reconcileOne(t *testing.T, d *DesiredComponent, e *ExistingComponent) ComponentAction {
	t.Helper()
	desired := &DesiredSheet{Components: []*DesiredComponent{d}}
	existing := &ExistingSheet{Components: []*ExistingComponent{e}}
	res := Resolve(desired, existing)
	require.NotNil(t, res.ByDesired[d], "expected a match")

	actions := ReconcileComponents(testContext(), desired, res)
	require.Len(t, actions, 1)
	return actions[0]
}

func TestReconcileKeep(t *testing.T) {
	act := reconcileOne(t,
		dcomp("R1", "Device:R", "10k", 0),
		ecomp("tok-r1", "R1", "Device:R", "10k", 0))
	assert.Equal(t, Keep, act.Kind)
	assert.Equal(t, schematic.UUID("tok-r1"), act.Token)
}

func TestReconcileRename(t *testing.T) {
	d := dcomp("R5", "Device:R", "10k", 0)
	d.Token = "tok-r1"
	act := reconcileOne(t, d, ecomp("tok-r1", "R1", "Device:R", "10k", 0))
	assert.Equal(t, Rename, act.Kind)
	assert.Equal(t, "R5", act.Ref)
	assert.Equal(t, schematic.UUID("tok-r1"), act.Token)
}

func TestReconcileRetype(t *testing.T) {
	act := reconcileOne(t,
		dcomp("R1", "Device:R_Small", "10k", 0),
		ecomp("tok-r1", "R1", "Device:R", "10k", 0))
	assert.Equal(t, Retype, act.Kind)
	assert.Equal(t, schematic.UUID("tok-r1"), act.Token)
}

func TestReconcileValueChangeIsUpdate(t *testing.T) {
	act := reconcileOne(t,
		dcomp("R1", "Device:R", "22k", 0),
		ecomp("tok-r1", "R1", "Device:R", "10k", 0))
	assert.Equal(t, Update, act.Kind)
}

func TestReconcileCombinedChangeIsUpdate(t *testing.T) {
	// Token identity lets reference and value change in one step.
	d := dcomp("R5", "Device:R", "22k", 0)
	d.Token = "tok-r1"
	act := reconcileOne(t, d, ecomp("tok-r1", "R1", "Device:R", "10k", 0))
	assert.Equal(t, Update, act.Kind)
	assert.Equal(t, "R5", act.Ref)
}

func TestReconcileAddMintsTokenAndRef(t *testing.T) {
	d := dcomp("R?", "Device:R", "10k", 0)
	desired := &DesiredSheet{Components: []*DesiredComponent{d}}
	existing := &ExistingSheet{Components: []*ExistingComponent{
		ecomp("tok-c1", "C1", "Device:C", "100n", 0),
	}}
	res := Resolve(desired, existing)

	actions := ReconcileComponents(testContext(), desired, res)
	require.Len(t, actions, 2)

	var add, remove *ComponentAction
	for i := range actions {
		switch actions[i].Kind {
		case Add:
			add = &actions[i]
		case Remove:
			remove = &actions[i]
		}
	}
	require.NotNil(t, add)
	require.NotNil(t, remove)

	assert.Equal(t, "R1", add.Ref)
	assert.Equal(t, schematic.UUID("tok-0001"), add.Token)
	assert.Equal(t, "C1", remove.Ref)
}

func TestOverwrittenCountsOnlyUntrackedRemovals(t *testing.T) {
	d := dcomp("R1", "Device:R", "10k", 0)
	d.Token = "tok-r1"
	desired := &DesiredSheet{Components: []*DesiredComponent{d}}

	actions := []ComponentAction{
		// Token carried by the source: an ordinary source-side deletion.
		{Kind: Remove, Token: "tok-r1", Ref: "R1"},
		// Token the source never tracked: an overridden external addition.
		{Kind: Remove, Token: "tok-x", Ref: "U9"},
		{Kind: Keep, Token: "tok-k", Ref: "R2"},
	}
	assert.Equal(t, 1, overwrittenRemovals(desired, actions))
}

func TestRefPrefix(t *testing.T) {
	cases := map[string]string{
		"R?":  "R",
		"R12": "R",
		"IC?": "IC",
		"":    "",
	}
	for ref, want := range cases {
		d := &DesiredComponent{Ref: ref}
		assert.Equal(t, want, d.RefPrefix(), "ref %q", ref)
	}
}

func TestReconcilePlaceholderLowestFreeNumber(t *testing.T) {
	d1 := dcomp("R?", "Device:R", "10k", 0)
	d2 := dcomp("R3", "Device:R", "1k", 1)
	desired := &DesiredSheet{Components: []*DesiredComponent{d1, d2}}

	res := Resolve(desired, nil)
	actions := ReconcileComponents(testContext(), desired, res)
	require.Len(t, actions, 2)
	assert.Equal(t, "R1", actions[0].Ref)
	assert.Equal(t, "R3", actions[1].Ref)
}

func TestReconcilePlaceholderKeepsMatchedRef(t *testing.T) {
	d := dcomp("R?", "Device:R", "10k", 0)
	act := reconcileOne(t, d, ecomp("tok-r7", "R7", "Device:R", "10k", 0))
	assert.Equal(t, Keep, act.Kind)
	assert.Equal(t, "R7", act.Ref)
}
