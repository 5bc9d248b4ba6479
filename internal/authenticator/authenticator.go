// Package authenticator implements the mock biometric matcher and the
// per-attempt authentication flow built on top of it.
//
// Matching is simulated: the confidence score is derived from the descriptor
// lengths only and the match outcome comes from a pluggable MatchDecision.
package authenticator

import (
	"context"
	"time"

	"github.com/aiguardian/guardian/internal/models"
)

const (
	// DefaultDelay is the simulated processing latency of a match.
	DefaultDelay = 2 * time.Second
	// DefaultDisplayDelay is how long a terminal result is shown before the
	// flow closes.
	DefaultDisplayDelay = 1500 * time.Millisecond
	// DefaultProgressInterval is the spacing of progress reports.
	DefaultProgressInterval = 100 * time.Millisecond
)

// Match is the outcome of AttemptMatch.
type Match struct {
	Matched    bool `json:"matched"`
	Confidence int  `json:"confidence"`
}

// Authenticator runs mock face matches.
type Authenticator struct {
	decision         MatchDecision
	delay            time.Duration
	displayDelay     time.Duration
	progressInterval time.Duration
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithDelay sets the simulated processing latency.
func WithDelay(d time.Duration) Option {
	return func(a *Authenticator) { a.delay = d }
}

// WithDisplayDelay sets how long flows stay in a terminal state before closing.
func WithDisplayDelay(d time.Duration) Option {
	return func(a *Authenticator) { a.displayDelay = d }
}

// WithProgressInterval sets the spacing of progress reports.
func WithProgressInterval(d time.Duration) Option {
	return func(a *Authenticator) { a.progressInterval = d }
}

// New creates an Authenticator that delegates the match outcome to decision.
func New(decision MatchDecision, opts ...Option) *Authenticator {
	a := &Authenticator{
		decision:         decision,
		delay:            DefaultDelay,
		displayDelay:     DefaultDisplayDelay,
		progressInterval: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Confidence scores two descriptors by their length difference only.
// It returns 0 when either descriptor is empty and is always within [0, 100].
func Confidence(captured, enrolled string) int {
	lc, le := len(captured), len(enrolled)
	if lc == 0 || le == 0 {
		return 0
	}
	diff := lc - le
	if diff < 0 {
		diff = -diff
	}
	longest := max(lc, le)
	return clamp(100 - diff*100/longest)
}

// AttemptMatch compares captured against enrolled after the simulated delay,
// reporting progress to onProgress (which may be nil). Empty descriptors fail
// immediately with zero confidence. A cancelled ctx aborts the wait and its
// error is returned.
func (a *Authenticator) AttemptMatch(ctx context.Context, captured, enrolled string, onProgress func(int)) (Match, error) {
	if captured == "" || enrolled == "" {
		return Match{}, nil
	}

	task := StartTask(a.delay, a.progressInterval, onProgress)
	defer task.Stop()
	if err := task.Wait(ctx); err != nil {
		return Match{}, err
	}

	attempt := models.AuthAttempt{
		CapturedDescriptor: captured,
		EnrolledDescriptor: enrolled,
		MatchConfidence:    Confidence(captured, enrolled),
	}
	return Match{
		Matched:    a.decision.Decide(attempt),
		Confidence: attempt.MatchConfidence,
	}, nil
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
