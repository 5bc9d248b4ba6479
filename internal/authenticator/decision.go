package authenticator

import (
	"math/rand"
	"sync"

	"github.com/aiguardian/guardian/internal/models"
)

// MatchDecision decides whether a captured descriptor matches the enrolled one.
type MatchDecision interface {
	Decide(attempt models.AuthAttempt) bool
}

// DefaultMatchRate is the probability with which RandomDecision reports a match.
const DefaultMatchRate = 0.75

// RandomDecision matches with a fixed probability, ignoring the descriptors.
// It is safe for concurrent use.
type RandomDecision struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDecision returns a RandomDecision matching with probability rate.
func NewRandomDecision(rate float64, seed int64) *RandomDecision {
	return &RandomDecision{rate: rate, rng: rand.New(rand.NewSource(seed))}
}

// Decide draws a uniform value and reports a match when it falls below the rate.
func (d *RandomDecision) Decide(models.AuthAttempt) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() < d.rate
}

// FixedDecision always returns the same outcome.
type FixedDecision bool

// Decide returns the fixed outcome.
func (d FixedDecision) Decide(models.AuthAttempt) bool { return bool(d) }

// DecisionFunc adapts a plain function to MatchDecision.
type DecisionFunc func(attempt models.AuthAttempt) bool

// Decide calls f.
func (f DecisionFunc) Decide(attempt models.AuthAttempt) bool { return f(attempt) }
