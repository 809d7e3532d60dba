package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// memStore is an in-memory Store keyed by id.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*entity.User
	err       error
	updateErr error
	updates   int
}

func newMemStore() *memStore { return &memStore{users: map[string]*entity.User{}} }

func (m *memStore) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return userrepo.ErrDuplicateUsername
		}
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

const testCost = 4

func newTestService(store Store) *UserService {
	return NewUserService(store, auth.BcryptHasher{Cost: testCost}, utilities.NewIDGenerator(1), zap.NewNop().Sugar())
}

func TestSignup(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	u, err := svc.Signup(context.Background(), "  alice ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	_, err = utilities.ParseID(u.ID)
	assert.NoError(t, err, "ids are snowflakes")
	assert.NotEqual(t, "secret123", u.PasswordHash)

	ok, err := auth.BcryptHasher{Cost: testCost}.Verify(store.users[u.ID].PasswordHash, "secret123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignup_InvalidInput(t *testing.T) {
	svc := newTestService(newMemStore())
	for _, tc := range []struct{ username, password string }{
		{"", "secret"},
		{"   ", "secret"},
		{"alice", ""},
		{"alice", strings.Repeat("x", auth.MaxPasswordBytes+1)},
	} {
		_, err := svc.Signup(context.Background(), tc.username, tc.password)
		assert.ErrorIs(t, err, ErrInvalidInput, tc)
	}
}

func TestSignup_Duplicate(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Signup(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "alice", "other-password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignup_StoreFault(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("db down")
	svc := newTestService(store)

	_, err := svc.Signup(context.Background(), "alice", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(newMemStore())
	created, err := svc.Signup(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	u, err := svc.Authenticate(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate(context.Background(), "bob", "secret123")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticate_StoreFault(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("db down")

	_, err := newTestService(store).Authenticate(context.Background(), "alice", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticate_CorruptDigest(t *testing.T) {
	store := newMemStore()
	store.users["1"] = &entity.User{ID: "1", Username: "alice", PasswordHash: "not-a-bcrypt-digest"}

	_, err := newTestService(store).Authenticate(context.Background(), "alice", "secret123")
	assert.ErrorIs(t, err, auth.ErrHashing)
}

func TestAuthenticate_RehashesOutdatedDigest(t *testing.T) {
	store := newMemStore()
	old, err := auth.BcryptHasher{Cost: testCost + 1}.Hash("secret123")
	require.NoError(t, err)
	store.users["1"] = &entity.User{ID: "1", Username: "alice", PasswordHash: old}

	u, err := newTestService(store).Authenticate(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, 1, store.updates)
	assert.NotEqual(t, old, store.users["1"].PasswordHash)
	assert.Equal(t, store.users["1"].PasswordHash, u.PasswordHash)
}

func TestAuthenticate_RehashFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	old, err := auth.BcryptHasher{Cost: testCost + 1}.Hash("secret123")
	require.NoError(t, err)
	store.users["1"] = &entity.User{ID: "1", Username: "alice", PasswordHash: old}
	store.updateErr = errors.New("read only replica")

	_, err = newTestService(store).Authenticate(context.Background(), "alice", "secret123")
	assert.NoError(t, err)
}

func TestGetByID(t *testing.T) {
	svc := newTestService(newMemStore())
	created, err := svc.Signup(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	u, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.GetByID(context.Background(), "999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
