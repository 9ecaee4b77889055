package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	users     map[string]*User
	createErr error
	lookupErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*User)}
}

func (m *mockRepository) createUser(_ context.Context, user *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockRepository) getUserByEmail(_ context.Context, email string) (*User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) getUserByID(_ context.Context, id string) (*User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	repo := newMockRepository()
	svc := NewUserService(repo)

	created, err := svc.Register(context.Background(), "  Alice@Example.com ", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", created.Email)
	assert.NotEqual(t, "correct-horse", created.PasswordHash)
	assert.True(t, doPasswordsMatch(created.PasswordHash, "correct-horse"))
}

func TestRegister_RejectsDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "bob@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "bob@example.com", "password456")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewUserService(newMockRepository())

	_, err := svc.Register(context.Background(), "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(context.Background(), "a@b", "password123")
	assert.ErrorIs(t, err, ErrEmailLength)

	_, err = svc.Register(context.Background(), "carol@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegister_LookupFailureIsInternal(t *testing.T) {
	repo := newMockRepository()
	repo.lookupErr = errors.New("connection refused")
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "dave@example.com", "password123")
	assert.ErrorIs(t, err, ErrInternalError)
}

func TestAuthenticate(t *testing.T) {
	svc := NewUserService(newMockRepository())
	created, err := svc.Register(context.Background(), "erin@example.com", "password123")
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), "ERIN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Authenticate(context.Background(), "erin@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetUserByID_InvalidUUID(t *testing.T) {
	svc := NewUserService(newMockRepository())

	_, err := svc.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEmailForUser(t *testing.T) {
	svc := NewUserService(newMockRepository())
	created, err := svc.Register(context.Background(), "frank@example.com", "password123")
	require.NoError(t, err)

	email, err := svc.EmailForUser(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", email)
}

func TestHandleGetUserProfile(t *testing.T) {
	repo := newMockRepository()
	svc := NewUserService(repo)
	created, err := svc.Register(context.Background(), "gina@example.com", "password123")
	require.NoError(t, err)

	handler := NewHandler(svc, func(*http.Request) (string, bool) { return created.ID, true })
	w := httptest.NewRecorder()
	handler.HandleGetUserProfile(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var response struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, created.ID, response.Data["id"])
	assert.Equal(t, "gina@example.com", response.Data["email"])
	assert.NotContains(t, response.Data, "password_hash")
}

func TestHandleGetUserProfile_Unauthorized(t *testing.T) {
	handler := NewHandler(NewUserService(newMockRepository()), func(*http.Request) (string, bool) { return "", false })
	w := httptest.NewRecorder()
	handler.HandleGetUserProfile(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
