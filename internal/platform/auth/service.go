package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrInvalidRole   = errors.New("invalid role")
)

func validRole(role string) bool {
	switch role {
	case RoleMember, RoleInventar, RoleVorstand, RoleAdmin:
		return true
	}
	return false
}

type Service struct {
	store     AccountStore
	directory DirectoryClient
	secret    []byte
}

func NewService(db *sql.DB, directory DirectoryClient, secret []byte) *Service {
	return NewServiceWithStore(NewStore(db), directory, secret)
}

func NewServiceWithStore(store AccountStore, directory DirectoryClient, secret []byte) *Service {
	if directory == nil {
		directory = NewNoopDirectory()
	}
	return &Service{store: store, directory: directory, secret: secret}
}

func (s *Service) Secret() []byte { return s.secret }

func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrAuthFailed
	}
	if acct.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, id, password, role string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}

	exists, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		ID:           id,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRole updates the local account and mirrors the change into the
// external directory. The directory call is best-effort; the local row is
// the source of truth for API authorization.
func (s *Service) AssignRole(ctx context.Context, id, role string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}
	n, err := s.store.UpdateRole(ctx, id, role)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.directory.AssignRole(ctx, id, role)
}

// Invite pushes an invitation into the external directory. No local account
// is created until the invitee logs in the first time.
func (s *Service) Invite(ctx context.Context, email, displayName string) error {
	if email == "" {
		return errors.New("email is required")
	}
	return s.directory.InviteUser(ctx, email, displayName)
}
