package sync

import (
	"fmt"
	"sort"
)

// MatchTier records which strategy matched a component pair.
type MatchTier int

const (
	// TierToken: the desired entity carried the identity token it was
	// assigned on a prior run.
	TierToken MatchTier = iota

	// TierReference: same assigned reference designator on the sheet.
	TierReference

	// TierFingerprint: same (type, value, footprint) tuple, optionally
	// narrowed by overlapping net membership.
	TierFingerprint
)

func (t MatchTier) String() string {
	switch t {
	case TierToken:
		return "token"
	case TierReference:
		return "reference"
	case TierFingerprint:
		return "fingerprint"
	}
	return "unknown"
}

// Resolution is the output of identity resolution for one sheet: a
// partial injective mapping desired->existing plus the unmatched set on
// each side.
type Resolution struct {
	ByDesired  map[*DesiredComponent]*ExistingComponent
	ByExisting map[*ExistingComponent]*DesiredComponent
	Tier       map[*DesiredComponent]MatchTier

	UnmatchedDesired  []*DesiredComponent
	UnmatchedExisting []*ExistingComponent

	// Ambiguities lists fingerprint ties that were broken by
	// declaration order. Logged as warnings, never fatal.
	Ambiguities []string
}

// Resolve matches desired components to existing components on one
// sheet. Tiers apply in order; each tier only considers entities not
// already matched. The existing sheet may be nil (fresh generation).
func Resolve(desired *DesiredSheet, existing *ExistingSheet) *Resolution {
	res := &Resolution{
		ByDesired:  map[*DesiredComponent]*ExistingComponent{},
		ByExisting: map[*ExistingComponent]*DesiredComponent{},
		Tier:       map[*DesiredComponent]MatchTier{},
	}

	var pool []*ExistingComponent
	if existing != nil {
		pool = existing.Components
	}

	match := func(d *DesiredComponent, e *ExistingComponent, tier MatchTier) {
		res.ByDesired[d] = e
		res.ByExisting[e] = d
		res.Tier[d] = tier
	}

	// Tier 1: carried identity tokens (round-trip case).
	for _, d := range desired.Components {
		if d.Token == "" {
			continue
		}
		for _, e := range pool {
			if e.Token == d.Token && res.ByExisting[e] == nil {
				match(d, e, TierToken)
				break
			}
		}
	}

	// Tier 2: assigned reference designator.
	for _, d := range desired.Components {
		if res.ByDesired[d] != nil || d.Placeholder() {
			continue
		}
		for _, e := range pool {
			if e.Ref == d.Ref && res.ByExisting[e] == nil {
				match(d, e, TierReference)
				break
			}
		}
	}

	// Tier 3: fingerprint, narrowed by net overlap, ties broken by
	// order (first desired matches first existing in file order).
	for _, d := range desired.Components {
		if res.ByDesired[d] != nil {
			continue
		}

		var candidates []*ExistingComponent
		for _, e := range pool {
			if res.ByExisting[e] == nil && e.Fingerprint() == d.Fingerprint() {
				candidates = append(candidates, e)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		if len(candidates) > 1 {
			narrowed := narrowByNets(d, candidates, existing)
			if len(narrowed) > 0 {
				candidates = narrowed
			}
		}
		if len(candidates) > 1 {
			sort.Slice(candidates, func(i, j int) bool {
				return candidates[i].Order < candidates[j].Order
			})
			res.Ambiguities = append(res.Ambiguities, fmt.Sprintf(
				"sheet %s: %d fingerprint candidates for %s (%s %s); matched %s by declaration order",
				desired.Scope(), len(candidates), d.Ref, d.Type, d.Value, candidates[0].Ref))
		}

		match(d, candidates[0], TierFingerprint)
	}

	for _, d := range desired.Components {
		if res.ByDesired[d] == nil {
			res.UnmatchedDesired = append(res.UnmatchedDesired, d)
		}
	}
	for _, e := range pool {
		if res.ByExisting[e] == nil {
			res.UnmatchedExisting = append(res.UnmatchedExisting, e)
		}
	}

	return res
}

// narrowByNets keeps the candidates sharing at least one rendered net
// name with the desired component's membership.
func narrowByNets(d *DesiredComponent, candidates []*ExistingComponent, existing *ExistingSheet) []*ExistingComponent {
	if existing == nil || len(d.Pins) == 0 {
		return nil
	}

	want := map[string]bool{}
	for _, id := range d.Pins {
		want[id.Name] = true
	}

	var narrowed []*ExistingComponent
	for _, e := range candidates {
		for key, label := range existing.PinLabels {
			if key.Token == e.Token && want[label.Name] {
				narrowed = append(narrowed, e)
				break
			}
		}
	}
	return narrowed
}
