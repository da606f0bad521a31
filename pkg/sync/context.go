package sync

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/circuit-synth/schsync/internal/config"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

// TokenSource mints identity tokens for Add actions. Minting is the one
// piece of shared state in a run: sheet diffs may execute concurrently,
// so implementations must be safe for concurrent use.
type TokenSource interface {
	Next() schematic.UUID
}

type uuidSource struct {
	mu sync.Mutex
}

func (s *uuidSource) Next() schematic.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schematic.UUID(uuid.NewString())
}

// SequentialTokens is a deterministic token source for tests.
type SequentialTokens struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func (s *SequentialTokens) Next() schematic.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return schematic.UUID(fmt.Sprintf("%s-%04d", s.Prefix, s.n))
}

// Context carries the explicit state threaded through one synchronization
// run: configuration, the token generator, the placement oracle and the
// verbosity switch. It is not shared between runs.
type Context struct {
	Config  *config.Config
	Tokens  TokenSource
	Placer  Placer
	Verbose bool
}

// NewContext builds a run context with production defaults.
func NewContext(cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Context{
		Config: cfg,
		Tokens: &uuidSource{},
		Placer: NewGridPlacer(cfg.Placement),
	}
}

// Logf prints a diagnostic line when verbose output is enabled.
func (c *Context) Logf(format string, args ...any) {
	if c.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
