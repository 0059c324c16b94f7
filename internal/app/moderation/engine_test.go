package moderation

import (
	"context"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chatyni/internal/app/auth"
	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type kickCall struct {
	username string
	reason   string
	// status observed in the store at the moment Kick ran
	status user.Status
}

type recordingKicker struct {
	mu    sync.Mutex
	repo  user.Repository
	calls []kickCall
}

func (k *recordingKicker) Kick(username, reason string) bool {
	u, _ := k.repo.GetByUsername(context.Background(), username)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, kickCall{username: username, reason: reason, status: u.Status})
	return true
}

func newTestEngine(t *testing.T) (*Engine, *user.MemoryRepository, *recordingKicker) {
	t.Helper()

	repo := user.NewMemoryRepository()
	for _, u := range []*user.User{
		{Username: "Admin", Email: "admin@x", Role: user.RoleAdmin, Status: user.StatusActive},
		{Username: "alice", Email: "a@x", Role: user.RoleMember, Status: user.StatusActive},
		{Username: "bob", Email: "b@x", Role: user.RoleMember, Status: user.StatusActive},
	} {
		require.NoError(t, repo.Create(context.Background(), u))
	}

	kicker := &recordingKicker{repo: repo}
	return NewEngine(repo, kicker), repo, kicker
}

func days(v float64) *float64 { return &v }

func TestPromote(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	require.Nil(t, e.Promote(context.Background(), "alice"))

	alice, _ := repo.GetByUsername(context.Background(), "alice")
	assert.True(t, alice.IsAdmin())

	err := e.Promote(context.Background(), "alice")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrAlreadyAdmin, err.Code)

	err = e.Promote(context.Background(), "ghost")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)
}

func TestBan_CommitsStateBeforeKicking(t *testing.T) {
	e, repo, kicker := newTestEngine(t)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	require.Nil(t, e.Ban(context.Background(), "Admin", "alice", "test", days(3)))

	alice, _ := repo.GetByUsername(context.Background(), "alice")
	assert.Equal(t, user.StatusBanned, alice.Status)
	assert.Equal(t, "Admin", alice.BanDetails.BannedBy)
	assert.Equal(t, "test", alice.BanDetails.Reason)
	require.NotNil(t, alice.BanDetails.ExpiresAt)
	assert.Equal(t, fixed.Add(72*time.Hour), *alice.BanDetails.ExpiresAt)

	require.Len(t, kicker.calls, 1)
	assert.Equal(t, kickCall{username: "alice", reason: "test", status: user.StatusBanned}, kicker.calls[0])
}

func TestBan_DefaultsAndPermanence(t *testing.T) {
	cases := map[string]*float64{
		"nil duration":      nil,
		"zero duration":     days(0),
		"negative duration": days(-2),
	}

	for name, duration := range cases {
		t.Run(name, func(t *testing.T) {
			e, repo, kicker := newTestEngine(t)

			require.Nil(t, e.Ban(context.Background(), "Admin", "bob", "  ", duration))

			bob, _ := repo.GetByUsername(context.Background(), "bob")
			assert.Nil(t, bob.BanDetails.ExpiresAt)
			assert.Equal(t, DefaultBanReason, bob.BanDetails.Reason)
			assert.Equal(t, DefaultBanReason, kicker.calls[0].reason)
		})
	}
}

func TestBan_FractionalDays(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	require.Nil(t, e.Ban(context.Background(), "Admin", "alice", "cool off", days(1.5)))

	alice, _ := repo.GetByUsername(context.Background(), "alice")
	require.NotNil(t, alice.BanDetails.ExpiresAt)
	assert.Equal(t, fixed.Add(36*time.Hour), *alice.BanDetails.ExpiresAt)
}

func TestBan_HugeDurationIsClampedAndStaysActive(t *testing.T) {
	for _, d := range []float64{200000, 1e12, math.MaxFloat64, math.Inf(1)} {
		e, repo, _ := newTestEngine(t)
		fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		e.now = func() time.Time { return fixed }

		require.Nil(t, e.Ban(context.Background(), "Admin", "alice", "spam", days(d)))

		alice, _ := repo.GetByUsername(context.Background(), "alice")
		require.NotNil(t, alice.BanDetails.ExpiresAt, "duration %v", d)
		assert.Equal(t, fixed.Add(MaxBanDays*24*time.Hour), *alice.BanDetails.ExpiresAt, "duration %v", d)
		assert.True(t, alice.IsBanned(time.Now()), "duration %v", d)

		require.Nil(t, e.SetPassword(context.Background(), "alice", "pw"))
		_, loginErr := auth.NewService(repo, "secret").Login(context.Background(), "a@x", "pw")
		require.NotNil(t, loginErr)
		assert.Equal(t, errs.ErrAccountBanned, loginErr.Code, "duration %v", d)
	}
}

func TestBan_NaNDurationIsPermanent(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	require.Nil(t, e.Ban(context.Background(), "Admin", "alice", "spam", days(math.NaN())))

	alice, _ := repo.GetByUsername(context.Background(), "alice")
	assert.Nil(t, alice.BanDetails.ExpiresAt)
	assert.True(t, alice.IsBanned(time.Now()))
}

func TestBan_AdminIsNeverBanned(t *testing.T) {
	e, repo, kicker := newTestEngine(t)

	err := e.Ban(context.Background(), "alice", "Admin", "coup", nil)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrCannotBanAdmin, err.Code)

	admin, _ := repo.GetByUsername(context.Background(), "Admin")
	assert.Equal(t, user.StatusActive, admin.Status)
	assert.Empty(t, kicker.calls)
}

func TestBan_UnknownUser(t *testing.T) {
	e, _, kicker := newTestEngine(t)

	err := e.Ban(context.Background(), "Admin", "ghost", "x", nil)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)
	assert.Empty(t, kicker.calls)
}

func TestUnban_IsIdempotent(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	require.Nil(t, e.Ban(context.Background(), "Admin", "alice", "test", days(1)))

	require.Nil(t, e.Unban(context.Background(), "alice"))
	first, _ := repo.GetByUsername(context.Background(), "alice")

	require.Nil(t, e.Unban(context.Background(), "alice"))
	second, _ := repo.GetByUsername(context.Background(), "alice")

	assert.Equal(t, user.StatusActive, first.Status)
	assert.Equal(t, user.BanDetails{}, first.BanDetails)
	assert.Equal(t, first, second)

	err := e.Unban(context.Background(), "ghost")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)
}

func TestSetPassword(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	require.Nil(t, e.SetPassword(context.Background(), "alice", "new-pw"))
	alice, _ := repo.GetByUsername(context.Background(), "alice")
	assert.True(t, auth.CheckPassword(alice.PasswordHash, "new-pw"))

	err := e.SetPassword(context.Background(), "alice", "")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidParams, err.Code)

	err = e.SetPassword(context.Background(), "ghost", "pw")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)
}

func TestListUsers_ExcludesCaller(t *testing.T) {
	e, _, _ := newTestEngine(t)

	users, err := e.ListUsers(context.Background(), "Admin")
	require.Nil(t, err)

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"alice", "bob"}, names)
}
