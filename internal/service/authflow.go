package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/authenticator"
	"github.com/aiguardian/guardian/internal/models"
)

// Attempt is the client-facing view of an authentication flow.
type Attempt struct {
	ID         string `json:"id"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	authenticator.Snapshot
}

type flowEntry struct {
	id     string
	device models.Device
	flow   *authenticator.Flow
}

// AuthFlowService owns the live authentication flows, at most one per device.
type AuthFlowService struct {
	ctx      context.Context
	auth     *authenticator.Authenticator
	devices  *DeviceController
	metrics  Metrics
	log      *zap.Logger

	mu       sync.Mutex
	flows    map[string]*flowEntry
	byDevice map[string]string
}

// NewAuthFlowService creates the flow manager. Flows are torn down when ctx
// is cancelled.
func NewAuthFlowService(
	ctx context.Context,
	auth *authenticator.Authenticator,
	devices *DeviceController,
	metrics Metrics,
	log *zap.Logger,
) *AuthFlowService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AuthFlowService{
		ctx:      ctx,
		auth:     auth,
		devices:  devices,
		metrics:  metrics,
		log:      log,
		flows:    make(map[string]*flowEntry),
		byDevice: make(map[string]string),
	}
}

// Begin opens a new flow for deviceID that matches against user's enrolled
// face. An earlier flow for the same device is replaced while it is still
// capturing; once it is processing or showing its result Begin fails with
// authenticator.ErrFlowBusy.
func (s *AuthFlowService) Begin(_ context.Context, user models.User, deviceID string) (Attempt, error) {
	if user.ID == "" {
		return Attempt{}, ErrNoSession
	}
	device, err := s.devices.Device(deviceID)
	if err != nil {
		return Attempt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byDevice[deviceID]; ok {
		if old := s.flows[prev]; old != nil {
			if err := old.flow.Abandon(); err != nil {
				return Attempt{}, err
			}
		}
		delete(s.flows, prev)
	}

	e := &flowEntry{id: uuid.NewString(), device: device}
	e.flow = s.auth.NewFlow(s.ctx, user.FaceData, authenticator.Callbacks{
		OnSuccess: func(snap authenticator.Snapshot) { s.onResult(e, snap) },
		OnFailure: func(snap authenticator.Snapshot) { s.onResult(e, snap) },
	})
	s.flows[e.id] = e
	s.byDevice[deviceID] = e.id

	s.log.Info("authentication started",
		zap.String("attempt_id", e.id),
		zap.String("device_id", deviceID),
		zap.String("user_id", user.ID),
	)
	return e.view(), nil
}

func (s *AuthFlowService) onResult(e *flowEntry, snap authenticator.Snapshot) {
	s.metrics.ObserveAuth(snap.Result, snap.Confidence)
	s.log.Info("authentication finished",
		zap.String("attempt_id", e.id),
		zap.String("device_id", e.device.ID),
		zap.String("result", string(snap.Result)),
		zap.Int("confidence", snap.Confidence),
	)

	var err error
	if snap.Result == models.AuthSuccess {
		_, err = s.devices.UnlockAfterAuth(s.ctx, e.device.ID)
	} else {
		err = s.devices.RecordAuthFailure(s.ctx, e.device.ID)
	}
	if err != nil {
		s.log.Error("failed to apply authentication result", zap.String("device_id", e.device.ID), zap.Error(err))
	}
}

// Get returns the current view of an attempt.
func (s *AuthFlowService) Get(id string) (Attempt, error) {
	e, err := s.entry(id)
	if err != nil {
		return Attempt{}, err
	}
	return e.view(), nil
}

// StartCapture opens the camera for an attempt.
func (s *AuthFlowService) StartCapture(id string) (Attempt, error) {
	return s.apply(id, func(f *authenticator.Flow) error { return f.StartCapture() })
}

// Capture stores the captured descriptor of an attempt.
func (s *AuthFlowService) Capture(id, faceData string, src authenticator.Source) (Attempt, error) {
	return s.apply(id, func(f *authenticator.Flow) error { return f.Capture(faceData, src) })
}

// Retake discards the captured descriptor of an attempt.
func (s *AuthFlowService) Retake(id string) (Attempt, error) {
	return s.apply(id, func(f *authenticator.Flow) error { return f.Retake() })
}

// Cancel abandons capture for an attempt.
func (s *AuthFlowService) Cancel(id string) (Attempt, error) {
	return s.apply(id, func(f *authenticator.Flow) error { return f.Cancel() })
}

// Submit starts matching for an attempt.
func (s *AuthFlowService) Submit(id string) (Attempt, error) {
	return s.apply(id, func(f *authenticator.Flow) error { return f.Submit() })
}

// Wait blocks until the attempt's flow closes or ctx ends.
func (s *AuthFlowService) Wait(ctx context.Context, id string) (Attempt, error) {
	e, err := s.entry(id)
	if err != nil {
		return Attempt{}, err
	}
	select {
	case <-e.flow.Done():
		return e.view(), nil
	case <-ctx.Done():
		return e.view(), ctx.Err()
	}
}

// Shutdown closes every live flow. Pending callbacks are dropped.
func (s *AuthFlowService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.flows {
		e.flow.Close()
		delete(s.flows, id)
	}
	s.byDevice = make(map[string]string)
}

func (s *AuthFlowService) apply(id string, fn func(f *authenticator.Flow) error) (Attempt, error) {
	e, err := s.entry(id)
	if err != nil {
		return Attempt{}, err
	}
	if err := fn(e.flow); err != nil {
		return e.view(), err
	}
	return e.view(), nil
}

func (s *AuthFlowService) entry(id string) (*flowEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.flows[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return e, nil
}

func (e *flowEntry) view() Attempt {
	return Attempt{
		ID:         e.id,
		DeviceID:   e.device.ID,
		DeviceName: e.device.Name,
		Snapshot:   e.flow.Snapshot(),
	}
}
