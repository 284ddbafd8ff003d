package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAccountStore struct {
	accounts map[string]*Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: map[string]*Account{}}
}

func (m *memAccountStore) GetByID(_ context.Context, id string) (*Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (m *memAccountStore) Create(_ context.Context, acct *Account) error {
	m.accounts[acct.ID] = acct
	return nil
}

func (m *memAccountStore) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m.accounts[id]; !ok {
		return 0, nil
	}
	delete(m.accounts, id)
	return 1, nil
}

func (m *memAccountStore) UpdateRole(_ context.Context, id, role string) (int64, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return 0, nil
	}
	acct.Role = role
	return 1, nil
}

type recordingDirectory struct {
	invites []string
	roles   map[string]string
}

func (d *recordingDirectory) InviteUser(_ context.Context, email, _ string) error {
	d.invites = append(d.invites, email)
	return nil
}

func (d *recordingDirectory) AssignRole(_ context.Context, id, role string) error {
	if d.roles == nil {
		d.roles = map[string]string{}
	}
	d.roles[id] = role
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	secret := []byte("test-secret")
	svc := NewServiceWithStore(newMemAccountStore(), nil, secret)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "s3cret", RoleMember))

	err := svc.Register(ctx, "alice", "other", RoleMember)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = svc.Register(ctx, "bob", "pw", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)

	token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return secret, nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, RoleMember, claims["role"])

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAssignRoleMirrorsToDirectory(t *testing.T) {
	dir := &recordingDirectory{}
	svc := NewServiceWithStore(newMemAccountStore(), dir, []byte("x"))
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw", RoleMember))
	require.NoError(t, svc.AssignRole(ctx, "alice", RoleVorstand))
	assert.Equal(t, RoleVorstand, dir.roles["alice"])

	err := svc.AssignRole(ctx, "ghost", RoleMember)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.AssignRole(ctx, "alice", "root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestDeleteAndInvite(t *testing.T) {
	dir := &recordingDirectory{}
	svc := NewServiceWithStore(newMemAccountStore(), dir, []byte("x"))
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw", RoleMember))
	require.NoError(t, svc.Delete(ctx, "alice"))
	assert.ErrorIs(t, svc.Delete(ctx, "alice"), ErrNotFound)

	require.NoError(t, svc.Invite(ctx, "new@verein.example", "Neues Mitglied"))
	assert.Equal(t, []string{"new@verein.example"}, dir.invites)
	assert.Error(t, svc.Invite(ctx, "", ""))
}
