package sync

import (
	"fmt"
	"sort"
	"strings"
	gosync "sync"
)

// NetEventKind classifies a net-level topology change. These are
// reporting summaries derived from the per-pin diff, not mechanisms.
type NetEventKind int

const (
	// NetMerge: pins of previously distinct name-groups now share one name.
	NetMerge NetEventKind = iota
	// NetSplit: one previous name-group now maps to several names.
	NetSplit
	// NetDelete: a name-group's pins all lost the name with no replacement.
	NetDelete
)

func (k NetEventKind) String() string {
	switch k {
	case NetMerge:
		return "merge"
	case NetSplit:
		return "split"
	case NetDelete:
		return "delete"
	}
	return "unknown"
}

// NetEvent is one net-level summary entry.
type NetEvent struct {
	Kind  NetEventKind
	Sheet string
	// From lists the prior name(s), To the current name(s).
	From []string
	To   []string
}

func (e NetEvent) String() string {
	return fmt.Sprintf("%s %s: %s -> %s", e.Sheet, e.Kind,
		strings.Join(e.From, "+"), strings.Join(e.To, "+"))
}

// Summary is the action report of one synchronization run: per-kind
// component and sheet counts, label actions, net-level events and the
// recovered warnings. Safe for concurrent accumulation across sheets.
type Summary struct {
	mu gosync.Mutex

	Components map[ActionKind]int
	Sheets     map[ActionKind]int

	LabelsAdded   int
	LabelsRemoved int
	LabelsRenamed int

	PortsAdded   int
	PortsRemoved int

	NetEvents []NetEvent

	// Overwritten counts target-side entities discarded because the
	// declarative source takes precedence (documented, not silent).
	Overwritten int

	// Warnings lists recovered non-fatal conditions: ambiguous
	// fingerprint ties, orphaned port halves.
	Warnings []string
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		Components: map[ActionKind]int{},
		Sheets:     map[ActionKind]int{},
	}
}

func (s *Summary) countComponent(kind ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Components[kind]++
}

func (s *Summary) countOverwrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Overwritten += n
}

func (s *Summary) countSheet(kind ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sheets[kind]++
}

func (s *Summary) addNetEvents(events []NetEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NetEvents = append(s.NetEvents, events...)
}

func (s *Summary) countLabels(actions []LabelAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, act := range actions {
		switch act.Kind {
		case LabelAdd:
			s.LabelsAdded++
		case LabelRemove:
			s.LabelsRemoved++
		case LabelRename:
			s.LabelsRenamed++
		}
	}
}

func (s *Summary) countPorts(added, removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PortsAdded += added
	s.PortsRemoved += removed
}

func (s *Summary) warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warnings = append(s.Warnings, msg)
}

// Clean reports whether the run changed nothing: only Keep actions and
// no label or port churn. Running against our own output must be clean.
func (s *Summary) Clean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind, n := range s.Components {
		if kind != Keep && n > 0 {
			return false
		}
	}
	for kind, n := range s.Sheets {
		if kind != Keep && n > 0 {
			return false
		}
	}
	return s.LabelsAdded == 0 && s.LabelsRemoved == 0 && s.LabelsRenamed == 0 &&
		s.PortsAdded == 0 && s.PortsRemoved == 0 && len(s.NetEvents) == 0
}

// Format renders the summary for CLI output.
func (s *Summary) Format() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("Components:\n")
	for _, kind := range []ActionKind{Keep, Update, Rename, Retype, Add, Remove} {
		fmt.Fprintf(&b, "  %-7s %d\n", kind.String()+":", s.Components[kind])
	}
	fmt.Fprintf(&b, "Sheets: keep=%d add=%d remove=%d\n",
		s.Sheets[Keep], s.Sheets[Add], s.Sheets[Remove])
	fmt.Fprintf(&b, "Labels: add=%d remove=%d rename=%d\n",
		s.LabelsAdded, s.LabelsRemoved, s.LabelsRenamed)
	fmt.Fprintf(&b, "Ports: add=%d remove=%d\n", s.PortsAdded, s.PortsRemoved)

	if len(s.NetEvents) > 0 {
		b.WriteString("Net events:\n")
		events := make([]string, 0, len(s.NetEvents))
		for _, e := range s.NetEvents {
			events = append(events, e.String())
		}
		sort.Strings(events)
		for _, e := range events {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	if s.Overwritten > 0 {
		fmt.Fprintf(&b, "Overwritten target entities: %d\n", s.Overwritten)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}
