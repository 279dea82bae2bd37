// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"tidemark/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
//
// A strategy is a collection of per-instrument state machines fed one closing
// price per instrument per day. Decisions are fully determined by each
// instrument's own rolling history; there is no cross-instrument coupling.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// ProcessDay advances the state machine for one instrument with that
	// day's closing price. It appends at most one trade intent to the
	// strategy's pending buffer. A non-finite price is an error.
	ProcessDay(symbol string, close float64) error

	// Drain returns the pending trade intents in generation order and clears
	// the buffer. The engine drains once per day, after every instrument in
	// the universe has been processed.
	Drain() []domain.TradeIntent
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
