package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

const (
	testSecret   = "test-jwt-secret"
	testAdminKey = "ADMIN@2025"
)

// fakeDeliverer records the last code per contact.
type fakeDeliverer struct {
	mu    sync.Mutex
	codes map[string]string
	sends int
	fail  error
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{codes: make(map[string]string)}
}

func (f *fakeDeliverer) Deliver(_ context.Context, contact, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.codes[contact] = code
	f.sends++
	return nil
}

func (f *fakeDeliverer) code(contact string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[contact]
}

func (f *fakeDeliverer) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store   *store.Store
	auth    *Auth
	ballots *Ballots
	tally   *Tally
	mail    *fakeDeliverer
	clock   *fakeClock
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return openFixture(t, dir)
}

func openFixture(t *testing.T, dir string) *fixture {
	t.Helper()

	backend, err := store.NewJSONBackend(dir)
	require.NoError(t, err)
	st, err := store.Open(backend, nil)
	require.NoError(t, err)

	mail := newFakeDeliverer()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	auth, err := NewAuth(st, mail, AuthOptions{
		JWTSecret:  testSecret,
		Issuer:     "test",
		TokenTTL:   2 * time.Hour,
		CodeTTL:    5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
		AdminKey:   testAdminKey,
	}, nil)
	require.NoError(t, err)
	auth.WithClock(clock.Now)

	voteKey := util.DeriveVoteKey("test-encryption-secret")
	return &fixture{
		store:   st,
		auth:    auth,
		ballots: NewBallots(st, voteKey, []byte(testSecret), nil).WithClock(clock.Now),
		tally:   NewTally(st, []byte(testSecret), nil).WithClock(clock.Now),
		mail:    mail,
		clock:   clock,
		dir:     dir,
	}
}

// login runs both login steps and returns the session.
func (f *fixture) login(t *testing.T, roll, email, password, adminProof string) Session {
	t.Helper()
	require.NoError(t, f.auth.BeginLogin(context.Background(), roll, password, adminProof))
	s, err := f.auth.CompleteLogin(roll, f.mail.code(email))
	require.NoError(t, err)
	return s
}

var errSMTPDown = errors.New("smtp down")
