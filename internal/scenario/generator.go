package scenario

import "time"

// Generator produces scenarios date by date. Implementations are external
// to this core (stochastic models, stress/sensitivity generators); the only
// contract is determinism: after Reset(), replaying the same sequence of
// Next(date) calls yields the same scenarios.
type Generator interface {
	Next(date time.Time) (Scenario, error)
	Reset()
}

// ConstantGenerator replays one base scenario for every requested date.
// Used for deterministic runs and as the trivial generator in tests: every
// sample then reproduces today's market rolled forward.
type ConstantGenerator struct {
	base *Simple
}

// NewConstantGenerator wraps the given base scenario.
func NewConstantGenerator(base *Simple) *ConstantGenerator {
	return &ConstantGenerator{base: base}
}

// Next returns the base scenario re-dated to the requested date.
func (g *ConstantGenerator) Next(date time.Time) (Scenario, error) {
	return g.base.Clone(date), nil
}

// Reset is a no-op; the generator is stateless.
func (g *ConstantGenerator) Reset() {}
