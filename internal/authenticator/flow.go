package authenticator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aiguardian/guardian/internal/models"
)

// State is a step of an authentication flow.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateCaptured   State = "captured"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
	StateClosed     State = "closed"
)

// Source identifies where a captured descriptor came from.
type Source string

const (
	SourceCamera Source = "camera"
	SourceUpload Source = "upload"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// flow's current state.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrFlowBusy is returned when cancelling a flow that is already processing.
	ErrFlowBusy = errors.New("authentication in progress")
	// ErrFlowClosed is returned for any action on a closed flow.
	ErrFlowClosed = errors.New("flow closed")
)

// Snapshot is a point-in-time view of a flow.
type Snapshot struct {
	State      State             `json:"state"`
	Source     Source            `json:"source,omitempty"`
	Progress   int               `json:"progress"`
	Confidence int               `json:"confidence"`
	Result     models.AuthResult `json:"result,omitempty"`
}

// Callbacks are invoked when a flow closes after reaching a result. Exactly
// one of them runs, at most once, and never after Close.
type Callbacks struct {
	OnSuccess func(Snapshot)
	OnFailure func(Snapshot)
}

// Flow drives one authentication attempt through
// idle → capturing → captured → processing → success|failure → closed.
type Flow struct {
	auth     *Authenticator
	enrolled string
	cb       Callbacks

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	source   Source
	captured string
	progress int
	attempt  models.AuthAttempt
	display  *time.Timer
	done     chan struct{}
	doneOnce sync.Once
}

// NewFlow starts an idle flow that will match against enrolled. Cancelling
// ctx tears the flow down like Close.
func (a *Authenticator) NewFlow(ctx context.Context, enrolled string, cb Callbacks) *Flow {
	fctx, cancel := context.WithCancel(ctx)
	f := &Flow{
		auth:     a,
		enrolled: enrolled,
		cb:       cb,
		ctx:      fctx,
		cancel:   cancel,
		state:    StateIdle,
		done:     make(chan struct{}),
	}
	context.AfterFunc(fctx, f.Close)
	return f
}

// StartCapture opens the camera: idle → capturing.
func (f *Flow) StartCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.state != StateIdle {
		return ErrInvalidTransition
	}
	f.state = StateCapturing
	return nil
}

// Capture stores a descriptor: capturing → captured. Uploads are also
// accepted straight from idle. The descriptor is not validated.
func (f *Flow) Capture(descriptor string, src Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	switch {
	case f.state == StateCapturing:
	case f.state == StateIdle && src == SourceUpload:
	default:
		return ErrInvalidTransition
	}
	f.state = StateCaptured
	f.source = src
	f.captured = descriptor
	return nil
}

// Retake discards the captured descriptor: captured → idle.
func (f *Flow) Retake() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.state != StateCaptured {
		return ErrInvalidTransition
	}
	f.reset()
	return nil
}

// Cancel abandons capture and returns to idle. It is a no-op when idle and
// fails with ErrFlowBusy once processing has started.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	switch f.state {
	case StateIdle:
		return nil
	case StateCapturing, StateCaptured:
		f.reset()
		return nil
	default:
		return ErrFlowBusy
	}
}

// Submit starts matching the captured descriptor: captured → processing.
// It returns immediately; the result is observed through Snapshot, Done and
// the callbacks.
func (f *Flow) Submit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.state != StateCaptured {
		return ErrInvalidTransition
	}
	f.state = StateProcessing
	f.progress = 0
	go f.process(f.captured)
	return nil
}

func (f *Flow) process(captured string) {
	m, err := f.auth.AttemptMatch(f.ctx, captured, f.enrolled, f.setProgress)
	if err != nil {
		// Torn down while processing.
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateProcessing {
		return
	}
	f.progress = 100
	f.attempt = models.AuthAttempt{
		CapturedDescriptor: captured,
		EnrolledDescriptor: f.enrolled,
		MatchConfidence:    m.Confidence,
		Result:             models.AuthFailure,
	}
	f.state = StateFailure
	if m.Matched {
		f.attempt.Result = models.AuthSuccess
		f.state = StateSuccess
	}
	f.display = time.AfterFunc(f.auth.displayDelay, f.finish)
}

func (f *Flow) setProgress(p int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateProcessing && p > f.progress {
		f.progress = min(p, 100)
	}
}

func (f *Flow) finish() {
	f.mu.Lock()
	if f.state != StateSuccess && f.state != StateFailure {
		f.mu.Unlock()
		return
	}
	snap := f.snapshotLocked()
	f.state = StateClosed
	f.display = nil
	f.mu.Unlock()

	if snap.Result == models.AuthSuccess {
		if f.cb.OnSuccess != nil {
			f.cb.OnSuccess(snap)
		}
	} else if f.cb.OnFailure != nil {
		f.cb.OnFailure(snap)
	}
	f.release()
}

// Close tears the flow down, releasing any running task or display timer.
// Callbacks that have not fired yet never will.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.state == StateClosed {
		f.mu.Unlock()
		return
	}
	f.closeLocked()
	f.mu.Unlock()

	f.release()
}

func (f *Flow) closeLocked() {
	f.state = StateClosed
	if f.display != nil {
		f.display.Stop()
		f.display = nil
	}
	f.captured = ""
}

// release stops the match task and wakes Done waiters.
func (f *Flow) release() {
	f.cancel()
	f.doneOnce.Do(func() { close(f.done) })
}

// Abandon closes a flow that has not started matching. Once processing has
// begun it returns ErrFlowBusy and the flow runs on to its result. Abandoning
// a closed flow is a no-op.
func (f *Flow) Abandon() error {
	f.mu.Lock()
	switch f.state {
	case StateProcessing, StateSuccess, StateFailure:
		f.mu.Unlock()
		return ErrFlowBusy
	case StateClosed:
		f.mu.Unlock()
		return nil
	}
	f.closeLocked()
	f.mu.Unlock()

	f.release()
	return nil
}

// Done is closed once the flow reaches the closed state.
func (f *Flow) Done() <-chan struct{} { return f.done }

// Snapshot returns the current state of the flow.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Attempt returns the attempt record once a result has been reached.
func (f *Flow) Attempt() (models.AuthAttempt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt, f.attempt.Result != ""
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		State:      f.state,
		Source:     f.source,
		Progress:   f.progress,
		Confidence: f.attempt.MatchConfidence,
		Result:     f.attempt.Result,
	}
}

func (f *Flow) checkOpen() error {
	if f.state == StateClosed {
		return ErrFlowClosed
	}
	return nil
}

func (f *Flow) reset() {
	f.state = StateIdle
	f.source = ""
	f.captured = ""
}
