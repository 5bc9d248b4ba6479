// Package service implements the dashboard business logic: the session
// store, the device lock controller and the authentication flow manager.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiguardian/guardian/internal/models"
)

const (
	// CurrentUserKey holds the logged-in user record.
	CurrentUserKey = "ai-guardian-user"
	// UsersKey holds the list of all registered users.
	UsersKey = "ai-guardian-users"
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
)

// Store defines the key/value persistence required by the session store.
type Store interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	FaceData        string
}

// SessionService keeps the current user and the registered users in a Store.
type SessionService struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
	cost  int

	// mu serialises read-modify-write cycles on the users list.
	mu sync.Mutex
}

// NewSessionService constructs a SessionService over store.
func NewSessionService(store Store, log *zap.Logger) *SessionService {
	return &SessionService{
		store: store,
		log:   log,
		now:   time.Now,
		cost:  bcrypt.DefaultCost,
	}
}

// Register validates the form, stores a new user and makes it current.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return models.User{}, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return models.User{}, ErrPasswordMismatch
	}
	if len(in.Password) < MinPasswordLength {
		return models.User{}, ErrPasswordTooShort
	}
	if in.FaceData == "" {
		return models.User{}, ErrFaceRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	enrolled := s.now()
	user := models.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		Name:           in.Name,
		FaceData:       in.FaceData,
		EnrollmentDate: &enrolled,
		PasswordHash:   hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	users = append(users, user)
	if err := s.saveJSON(ctx, UsersKey, users); err != nil {
		return models.User{}, err
	}
	if err := s.saveJSON(ctx, CurrentUserKey, user.Public()); err != nil {
		return models.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login makes the first user registered with email current if the password
// is valid.
func (s *SessionService) Login(ctx context.Context, email, password string) (models.User, error) {
	if len(password) < MinPasswordLength {
		return models.User{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.Email != email {
			continue
		}
		// Records written without a hash only had the length check.
		if len(u.PasswordHash) > 0 {
			if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
				return models.User{}, ErrInvalidCredentials
			}
		}
		if err := s.saveJSON(ctx, CurrentUserKey, u.Public()); err != nil {
			return models.User{}, err
		}
		s.log.Info("user logged in", zap.String("user_id", u.ID))
		return u, nil
	}
	return models.User{}, ErrInvalidCredentials
}

// Logout clears the current user.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, CurrentUserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the logged-in user without its password hash. A missing or
// unreadable record yields ErrNoSession.
func (s *SessionService) Current(ctx context.Context) (models.User, error) {
	raw, ok, err := s.store.Get(ctx, CurrentUserKey)
	if err != nil {
		return models.User{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return models.User{}, ErrNoSession
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		s.log.Warn("ignoring invalid session record", zap.Error(err))
		return models.User{}, ErrNoSession
	}
	return u, nil
}

// UpdateFaceData enrolls a new descriptor for the current user.
func (s *SessionService) UpdateFaceData(ctx context.Context, faceData string) (models.User, error) {
	if faceData == "" {
		return models.User{}, ErrFaceRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.Current(ctx)
	if err != nil {
		return models.User{}, err
	}
	enrolled := s.now()
	user.FaceData = faceData
	user.EnrollmentDate = &enrolled

	if err := s.saveJSON(ctx, CurrentUserKey, user.Public()); err != nil {
		return models.User{}, err
	}
	users, err := s.loadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i].FaceData = user.FaceData
			users[i].EnrollmentDate = user.EnrollmentDate
		}
	}
	if err := s.saveJSON(ctx, UsersKey, users); err != nil {
		return models.User{}, err
	}
	s.log.Info("face data enrolled", zap.String("user_id", user.ID))
	return user, nil
}

// loadUsers returns the stored users. Missing or invalid data reads as empty.
func (s *SessionService) loadUsers(ctx context.Context) ([]models.User, error) {
	raw, ok, err := s.store.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var users []models.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		s.log.Warn("ignoring invalid users record", zap.Error(err))
		return nil, nil
	}
	return users, nil
}

func (s *SessionService) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
