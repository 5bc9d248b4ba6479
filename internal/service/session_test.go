package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiguardian/guardian/internal/repository"
)

// fakeStore implements Store with injectable failures.
type fakeStore struct {
	*repository.MemoryStore
	getErr error
	setErr error
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *fakeStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func newSessions(store Store) *SessionService {
	s := NewSessionService(store, zap.NewNop())
	s.cost = bcrypt.MinCost
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func validInput() RegisterInput {
	return RegisterInput{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FaceData:        strings.Repeat("a", 500),
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *RegisterInput)
		wantErr error
	}{
		{"missing name", func(in *RegisterInput) { in.Name = " " }, ErrMissingFields},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, ErrMissingFields},
		{"mismatch", func(in *RegisterInput) { in.ConfirmPassword = "other11" }, ErrPasswordMismatch},
		{"too short", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, ErrPasswordTooShort},
		{"no face", func(in *RegisterInput) { in.FaceData = "" }, ErrFaceRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			s := newSessions(store)
			in := validInput()
			tt.mutate(&in)

			_, err := s.Register(context.Background(), in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidation(err))

			_, ok, _ := store.Get(context.Background(), UsersKey)
			assert.False(t, ok, "nothing must be stored on validation failure")
		})
	}
}

func TestRegister_StoresUserAndSession(t *testing.T) {
	ctx := context.Background()
	s := newSessions(repository.NewMemoryStore())

	u, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Alice", u.Name)
	require.NotNil(t, u.EnrollmentDate)
	assert.NotEmpty(t, u.PasswordHash)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cur.ID)
	assert.Len(t, cur.FaceData, 500)
}

func TestRegister_DuplicateEmailsAllowed(t *testing.T) {
	ctx := context.Background()
	s := newSessions(repository.NewMemoryStore())

	first, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	second, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Login resolves to the first matching record.
	u, err := s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, u.ID)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newSessions(repository.NewMemoryStore())
	_, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	_, err = s.Current(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = s.Login(ctx, "alice@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "alice@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cur.ID)
}

func TestLogin_RecordWithoutHash(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Set(ctx, UsersKey, `[{"id":"1","email":"legacy@example.com","name":"Legacy"}]`))
	s := newSessions(store)

	u, err := s.Login(ctx, "legacy@example.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
}

func TestCurrent_InvalidRecordFailsOpen(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"not json", "[]", "{}", `{"id":42}`} {
		store := repository.NewMemoryStore()
		require.NoError(t, store.Set(ctx, CurrentUserKey, raw))
		s := newSessions(store)

		_, err := s.Current(ctx)
		assert.ErrorIs(t, err, ErrNoSession, "raw %q", raw)
	}
}

func TestInvalidUsersRecordReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Set(ctx, UsersKey, "{broken"))
	s := newSessions(store)

	_, err := s.Login(ctx, "alice@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Register(ctx, validInput())
	require.NoError(t, err)
	_, err = s.Login(ctx, "alice@example.com", "secret1")
	assert.NoError(t, err)
}

func TestUpdateFaceData(t *testing.T) {
	ctx := context.Background()
	s := newSessions(repository.NewMemoryStore())

	_, err := s.UpdateFaceData(ctx, "face")
	require.ErrorIs(t, err, ErrNoSession)

	u, err := s.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = s.UpdateFaceData(ctx, "")
	require.ErrorIs(t, err, ErrFaceRequired)

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return later }
	updated, err := s.UpdateFaceData(ctx, "new-face")
	require.NoError(t, err)
	assert.Equal(t, "new-face", updated.FaceData)
	assert.Equal(t, later, *updated.EnrollmentDate)

	// The users list is updated too, so a fresh login sees the new face.
	require.NoError(t, s.Logout(ctx))
	again, err := s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "new-face", again.FaceData)
}

func TestSessionRecordHasNoPasswordHash(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := newSessions(store)

	assertNoHash := func(step string) {
		t.Helper()
		raw, ok, err := store.Get(ctx, CurrentUserKey)
		require.NoError(t, err)
		require.True(t, ok, step)
		assert.NotContains(t, raw, "passwordHash", step)
	}

	_, err := s.Register(ctx, validInput())
	require.NoError(t, err)
	assertNoHash("register")

	require.NoError(t, s.Logout(ctx))
	_, err = s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assertNoHash("login")

	_, err = s.UpdateFaceData(ctx, "new-face")
	require.NoError(t, err)
	assertNoHash("update face")

	// The users list keeps the hash, so the password is still checked.
	raw, _, err := store.Get(ctx, UsersKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "passwordHash")
	_, err = s.Login(ctx, "alice@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")

	s := newSessions(&fakeStore{MemoryStore: repository.NewMemoryStore(), getErr: boom})
	_, err := s.Register(ctx, validInput())
	assert.ErrorIs(t, err, boom)
	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, boom)

	s = newSessions(&fakeStore{MemoryStore: repository.NewMemoryStore(), setErr: boom})
	_, err = s.Register(ctx, validInput())
	assert.ErrorIs(t, err, boom)
}
