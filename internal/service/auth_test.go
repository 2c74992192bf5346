package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aathi-11/university-voting-portal/internal/models"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	sub, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, sub.Role)
	assert.False(t, sub.HasVoted)
	assert.NotEqual(t, "Pw0rd!", sub.PasswordHash)
	assert.True(t, strings.HasPrefix(sub.PasswordHash, "$2"), "bcrypt hash expected")

	_, err = f.auth.Register("S1", "other@x.edu", "another")
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	for _, bad := range [][3]string{
		{"", "s@x.edu", "pw"},
		{"S2", "not-an-email", "pw"},
		{"S2", "s2@x.edu", ""},
	} {
		_, err := f.auth.Register(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidInput, "%v", bad)
	}
}

func TestBeginLogin_PasswordCheck(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	code := f.mail.code("s1@x.edu")
	assert.Len(t, code, 6)
	assert.True(t, f.auth.HasPendingCode("S1"))

	for _, pw := range []string{"Pw0rd", "pw0rd!", "Pw0rd!!", ""} {
		err := f.auth.BeginLogin(context.Background(), "S1", pw, "")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "password %q", pw)
	}
}

func TestBeginLogin_IndistinguishableRejections(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)
	_, _, err = f.auth.SeedAdmin("admin1", "admin@x.edu", "Admin@123")
	require.NoError(t, err)

	unknown := f.auth.BeginLogin(context.Background(), "ghost", "Pw0rd!", "")
	wrongPw := f.auth.BeginLogin(context.Background(), "S1", "nope", "")
	wrongProof := f.auth.BeginLogin(context.Background(), "admin1", "Admin@123", "wrong-key")
	noProof := f.auth.BeginLogin(context.Background(), "admin1", "Admin@123", "")

	for _, err := range []error{unknown, wrongPw, wrongProof, noProof} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error(), "message must not reveal the cause")
	}
	assert.Zero(t, f.mail.sends)

	require.NoError(t, f.auth.BeginLogin(context.Background(), "admin1", "Admin@123", testAdminKey))
	assert.Equal(t, 1, f.mail.sends)
}

func TestCompleteLogin_SingleUse(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	code := f.mail.code("s1@x.edu")

	s, err := f.auth.CompleteLogin("S1", code)
	require.NoError(t, err)
	assert.Equal(t, "S1", s.Roll)
	assert.Equal(t, models.RoleStudent, s.Role)
	assert.Equal(t, f.clock.Now().Add(2*time.Hour), s.ExpiresAt)

	_, err = f.auth.CompleteLogin("S1", code)
	assert.ErrorIs(t, err, ErrCodeInvalid, "code must not be replayable")
}

func TestCompleteLogin_Expiry(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	code := f.mail.code("s1@x.edu")

	// exactly at the expiry instant the code is still accepted
	f.clock.Advance(5 * time.Minute)
	assert.True(t, f.auth.HasPendingCode("S1"))

	f.clock.Advance(time.Millisecond)
	_, err = f.auth.CompleteLogin("S1", code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
	assert.False(t, f.auth.HasPendingCode("S1"))
}

func TestCompleteLogin_WrongAndMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	_, err = f.auth.CompleteLogin("S1", "123456")
	assert.ErrorIs(t, err, ErrCodeInvalid, "no pending code")

	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	code := f.mail.code("s1@x.edu")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err = f.auth.CompleteLogin("S1", wrong)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// a wrong guess does not void the code on its own
	_, err = f.auth.CompleteLogin("S1", code)
	assert.NoError(t, err)
}

func TestCompleteLogin_TooManyAttempts(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)
	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	code := f.mail.code("s1@x.edu")

	guesses := 0
	for n := 100000; guesses < maxCodeAttempts; n++ {
		g := fmt.Sprint(n)
		if g == code {
			continue
		}
		_, err := f.auth.CompleteLogin("S1", g)
		require.ErrorIs(t, err, ErrCodeInvalid)
		guesses++
	}

	_, err = f.auth.CompleteLogin("S1", code)
	assert.ErrorIs(t, err, ErrCodeInvalid, "code is voided after too many guesses")
}

func TestBeginLogin_NewCodeReplacesOld(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	var first string
	for {
		require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
		if first == "" {
			first = f.mail.code("s1@x.edu")
			continue
		}
		if f.mail.code("s1@x.edu") != first {
			break
		}
	}
	_, err = f.auth.CompleteLogin("S1", first)
	assert.ErrorIs(t, err, ErrCodeInvalid)
	_, err = f.auth.CompleteLogin("S1", f.mail.code("s1@x.edu"))
	assert.NoError(t, err)
}

func TestBeginLogin_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)

	f.mail.setFail(errSMTPDown)
	err = f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", "")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.False(t, f.auth.HasPendingCode("S1"), "an undelivered code must not be pending")

	f.mail.setFail(nil)
	require.NoError(t, f.auth.BeginLogin(context.Background(), "S1", "Pw0rd!", ""))
	_, err = f.auth.CompleteLogin("S1", f.mail.code("s1@x.edu"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("S1", "s1@x.edu", "Pw0rd!")
	require.NoError(t, err)
	s := f.login(t, "S1", "s1@x.edu", "Pw0rd!", "")

	id, err := f.auth.Validate(s.Token)
	require.NoError(t, err)
	assert.Equal(t, "S1", id.Roll)
	assert.Equal(t, models.RoleStudent, id.Role)
	assert.NotEmpty(t, id.TokenID)

	_, err = f.auth.Validate("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.auth.Validate(s.Token + "x")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// absolute expiry, no sliding
	f.clock.Advance(2*time.Hour + time.Second)
	_, err = f.auth.Validate(s.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	f := newFixture(t)

	sub, created, err := f.auth.SeedAdmin("admin1", "admin@x.edu", "Admin@123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, sub.Role)

	sub, created, err = f.auth.SeedAdmin("admin2", "admin2@x.edu", "Admin@456")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "admin1", sub.Roll)

	admins := 0
	for _, s := range f.store.Subjects() {
		if s.Role == models.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)

	s := f.login(t, "admin1", "admin@x.edu", "Admin@123", testAdminKey)
	assert.Equal(t, models.RoleAdmin, s.Role)
}

func TestConcurrentLogins_DifferentSubjects(t *testing.T) {
	f := newFixture(t)
	const n = 8
	for i := 0; i < n; i++ {
		_, err := f.auth.Register(fmt.Sprintf("S%d", i), fmt.Sprintf("s%d@x.edu", i), "Pw0rd!")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roll := fmt.Sprintf("S%d", i)
			if err := f.auth.BeginLogin(context.Background(), roll, "Pw0rd!", ""); err != nil {
				errs <- err
				return
			}
			if _, err := f.auth.CompleteLogin(roll, f.mail.code(fmt.Sprintf("s%d@x.edu", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrAlreadyVoted))
	assert.True(t, IsClientError(fmt.Errorf("wrap: %w", ErrInvalidCredentials)))
	assert.False(t, IsClientError(ErrDeliveryFailed))
	assert.False(t, IsClientError(fmt.Errorf("disk full")))
}
