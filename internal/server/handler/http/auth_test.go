package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiguardian/guardian/internal/models"
	"github.com/aiguardian/guardian/internal/service"
)

// fakeSessionService implements SessionService for testing.
type fakeSessionService struct {
	user      models.User
	err       error
	gotInput  service.RegisterInput
	gotFace   string
	loggedOut bool
}

func (f *fakeSessionService) Register(_ context.Context, in service.RegisterInput) (models.User, error) {
	f.gotInput = in
	return f.user, f.err
}

func (f *fakeSessionService) Login(context.Context, string, string) (models.User, error) {
	return f.user, f.err
}

func (f *fakeSessionService) Logout(context.Context) error {
	f.loggedOut = true
	return f.err
}

func (f *fakeSessionService) Current(context.Context) (models.User, error) {
	return f.user, f.err
}

func (f *fakeSessionService) UpdateFaceData(_ context.Context, face string) (models.User, error) {
	f.gotFace = face
	return f.user, f.err
}

var alice = models.User{ID: "u1", Email: "alice@example.com", Name: "Alice", PasswordHash: []byte("secret-hash")}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeSessionService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeSessionService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "password mismatch",
			body:           `{"name":"Alice","email":"a@x","password":"secret1","confirmPassword":"secret2"}`,
			service:        &fakeSessionService{err: service.ErrPasswordMismatch},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "passwords do not match",
		},
		{
			name:           "face required",
			body:           `{"name":"Alice","email":"a@x","password":"secret1","confirmPassword":"secret1"}`,
			service:        &fakeSessionService{err: service.ErrFaceRequired},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "biometric enrollment required",
		},
		{
			name:           "store failure",
			body:           `{"name":"Alice","email":"a@x","password":"secret1","confirmPassword":"secret1","faceData":"f"}`,
			service:        &fakeSessionService{err: errors.New("redis down")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "success",
			body:           `{"name":"Alice","email":"alice@example.com","password":"secret1","confirmPassword":"secret1","faceData":"f"}`,
			service:        &fakeSessionService{user: alice},
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"email":"alice@example.com"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{Sessions: tt.service}
			h.Register(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
			if bytes.Contains(buf.Bytes(), []byte("passwordHash")) {
				t.Errorf("password hash leaked: %q", buf.String())
			}
		})
	}
}

func TestAuthHandler_RegisterPassesInput(t *testing.T) {
	svc := &fakeSessionService{user: alice}
	body := `{"name":"Alice","email":"alice@example.com","password":"secret1","confirmPassword":"secret1","faceData":"face"}`

	rec := httptest.NewRecorder()
	(&AuthHandler{Sessions: svc}).Register(rec, httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(body)))

	want := service.RegisterInput{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FaceData:        "face",
	}
	if svc.gotInput != want {
		t.Errorf("expected input %+v, got %+v", want, svc.gotInput)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		service      *fakeSessionService
		expectedCode int
		expectedJSON map[string]string
	}{
		{
			name:         "invalid JSON",
			body:         `{`,
			service:      &fakeSessionService{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "bad credentials",
			body:         `{"email":"a@x","password":"123456"}`,
			service:      &fakeSessionService{err: service.ErrInvalidCredentials},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "successful login",
			body:         `{"email":"alice@example.com","password":"secret1"}`,
			service:      &fakeSessionService{user: alice},
			expectedCode: http.StatusOK,
			expectedJSON: map[string]string{"id": "u1", "name": "Alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/login", bytes.NewBufferString(tt.body))

			h := &AuthHandler{Sessions: tt.service}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("%s: expected status %d, got %d", tt.name, tt.expectedCode, res.StatusCode)
			}

			if tt.expectedJSON != nil {
				var payload map[string]any
				if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				for k, v := range tt.expectedJSON {
					if payload[k] != v {
						t.Errorf("expected %s=%q, got %v", k, v, payload[k])
					}
				}
			}
		})
	}
}

func TestAuthHandler_SessionAndLogout(t *testing.T) {
	svc := &fakeSessionService{err: service.ErrNoSession}
	h := &AuthHandler{Sessions: svc}

	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest("GET", "/api/session", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	svc.err = nil
	svc.user = alice
	rec = httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest("GET", "/api/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest("POST", "/api/logout", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !svc.loggedOut {
		t.Error("expected Logout to be called")
	}
}

func TestAuthHandler_EnrollFace(t *testing.T) {
	svc := &fakeSessionService{user: alice}
	h := &AuthHandler{Sessions: svc}

	rec := httptest.NewRecorder()
	h.EnrollFace(rec, httptest.NewRequest("PUT", "/api/session/face", bytes.NewBufferString(`{"faceData":"new-face"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotFace != "new-face" {
		t.Errorf("expected face to be forwarded, got %q", svc.gotFace)
	}

	svc.err = service.ErrFaceRequired
	rec = httptest.NewRecorder()
	h.EnrollFace(rec, httptest.NewRequest("PUT", "/api/session/face", bytes.NewBufferString(`{"faceData":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
