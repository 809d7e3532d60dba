package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Store is the credential store the service depends on. *repo.UserRepo
// satisfies it.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

var (
	ErrInvalidInput   = errors.New("username and password are required")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUserNotFound   = errors.New("user not found")
)

// UserService orchestrates signup and password authentication.
type UserService struct {
	store  Store
	hasher auth.PasswordHasher
	ids    *utilities.IDGenerator
	logger *zap.SugaredLogger

	decoyOnce sync.Once
	decoy     string
}

func NewUserService(store Store, hasher auth.PasswordHasher, ids *utilities.IDGenerator, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	return &UserService{store: store, hasher: hasher, ids: ids, logger: logger}
}

// Signup registers username with a hashed password and returns the stored user.
func (s *UserService) Signup(ctx context.Context, username, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || len(password) > auth.MaxPasswordBytes {
		return nil, ErrInvalidInput
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{ID: s.ids.NewID(), Username: username, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks username and password. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// spend the same bcrypt work as a real check; avoid user enumeration
			_, _ = s.hasher.Verify(s.decoyHash(), password)
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadCredentials
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		if newHash, hErr := s.hasher.Hash(password); hErr == nil {
			if uErr := s.store.UpdatePassword(ctx, u.ID, newHash); uErr != nil {
				s.logger.Warnw("password rehash failed", "user_id", u.ID, "err", uErr)
			} else {
				u.PasswordHash = newHash
			}
		}
	}
	return u, nil
}

// GetByID returns the user for id or ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *UserService) decoyHash() string {
	s.decoyOnce.Do(func() {
		s.decoy, _ = s.hasher.Hash("decoy-password")
	})
	return s.decoy
}
