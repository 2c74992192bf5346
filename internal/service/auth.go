package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aathi-11/university-voting-portal/internal/mailer"
	"github.com/aathi-11/university-voting-portal/internal/models"
	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

const (
	codeDigits      = 6
	maxCodeAttempts = 5
)

// AuthOptions configures the credential and session manager.
type AuthOptions struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	CodeTTL    time.Duration
	BcryptCost int
	AdminKey   string
}

// Session is what a successful CompleteLogin hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	Roll      string    `json:"roll"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity is the validated content of a session token.
type Identity struct {
	Roll      string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type pendingCode struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// Auth drives password + one-time-code login and issues session tokens.
// Pending codes live only in this process.
type Auth struct {
	store     *store.Store
	deliverer mailer.Deliverer
	opts      AuthOptions
	log       *slog.Logger
	now       func() time.Time

	locks     *keyedMutex
	mu        sync.Mutex
	pending   map[string]pendingCode
	dummyHash []byte
}

func NewAuth(st *store.Store, deliverer mailer.Deliverer, opts AuthOptions, logger *slog.Logger) (*Auth, error) {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 2 * time.Hour
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	// unknown identifiers are compared against this so every rejection costs one bcrypt run
	dummy, err := bcrypt.GenerateFromPassword([]byte("no-such-subject"), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Auth{
		store:     st,
		deliverer: deliverer,
		opts:      opts,
		log:       logger,
		now:       time.Now,
		locks:     newKeyedMutex(),
		pending:   make(map[string]pendingCode),
		dummyHash: dummy,
	}, nil
}

// WithClock replaces the time source.
func (a *Auth) WithClock(now func() time.Time) *Auth {
	a.now = now
	return a
}

// Register creates a student account. Only the bcrypt hash of password is kept.
func (a *Auth) Register(roll, email, password string) (models.Subject, error) {
	roll = strings.TrimSpace(roll)
	email = strings.TrimSpace(email)
	if err := validateAccount(roll, email, password); err != nil {
		return models.Subject{}, err
	}

	if _, exists := a.store.Subject(roll); exists {
		return models.Subject{}, ErrDuplicateIdentifier
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.opts.BcryptCost)
	if err != nil {
		return models.Subject{}, fmt.Errorf("hash password: %w", err)
	}

	sub := models.Subject{
		Roll:         roll,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := a.store.AddSubject(sub); err != nil {
		return models.Subject{}, err
	}
	a.log.Info("subject registered", "roll", roll)
	return sub, nil
}

// SeedAdmin creates the admin account unless an admin already exists. The
// returned bool reports whether an account was created.
func (a *Auth) SeedAdmin(roll, email, password string) (models.Subject, bool, error) {
	if err := validateAccount(roll, email, password); err != nil {
		return models.Subject{}, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.opts.BcryptCost)
	if err != nil {
		return models.Subject{}, false, fmt.Errorf("hash password: %w", err)
	}

	admin := models.Subject{
		Roll:         roll,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	sub, created, err := a.store.AddSubjectIfNone(admin, func(s models.Subject) bool {
		return s.Role == models.RoleAdmin
	})
	if err != nil {
		return models.Subject{}, false, err
	}
	if created {
		a.log.Info("admin seeded", "roll", roll)
	}
	return sub, created, nil
}

// BeginLogin checks the password (and, for admins, the admin proof) and
// sends a fresh one-time code. Every rejection is ErrInvalidCredentials and
// costs the same single bcrypt comparison. A code is only pending once it
// has been delivered; a newer code replaces an older one.
func (a *Auth) BeginLogin(ctx context.Context, roll, password, adminProof string) error {
	sub, known := a.store.Subject(roll)

	hash := a.dummyHash
	if known {
		hash = []byte(sub.PasswordHash)
	}
	pwErr := bcrypt.CompareHashAndPassword(hash, []byte(password))

	proofOK := true
	if known && sub.Role == models.RoleAdmin {
		proofOK = subtle.ConstantTimeCompare([]byte(adminProof), []byte(a.opts.AdminKey)) == 1
	}

	if !known || pwErr != nil || !proofOK {
		a.log.Info("login rejected", "roll", roll)
		return ErrInvalidCredentials
	}

	unlock := a.locks.Lock(roll)
	defer unlock()

	code, err := util.RandomDigits(codeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := a.deliverer.Deliver(ctx, sub.Email, code, sub.Roll); err != nil {
		a.log.Error("otp delivery failed", "roll", roll, "error", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	a.mu.Lock()
	a.pending[roll] = pendingCode{code: code, expiresAt: a.now().Add(a.opts.CodeTTL)}
	a.mu.Unlock()

	a.log.Info("otp issued", "roll", roll)
	return nil
}

// CompleteLogin consumes the pending code for roll and issues a session
// token. Codes are single use, expire after the code TTL and are voided
// after too many wrong guesses.
func (a *Auth) CompleteLogin(roll, code string) (Session, error) {
	unlock := a.locks.Lock(roll)
	defer unlock()

	now := a.now()

	a.mu.Lock()
	p, ok := a.pending[roll]
	switch {
	case !ok:
		a.mu.Unlock()
		return Session{}, ErrCodeInvalid
	case now.After(p.expiresAt):
		delete(a.pending, roll)
		a.mu.Unlock()
		return Session{}, ErrCodeInvalid
	case subtle.ConstantTimeCompare([]byte(p.code), []byte(code)) != 1:
		p.attempts++
		if p.attempts >= maxCodeAttempts {
			delete(a.pending, roll)
		} else {
			a.pending[roll] = p
		}
		a.mu.Unlock()
		return Session{}, ErrCodeInvalid
	}
	delete(a.pending, roll)
	a.mu.Unlock()

	sub, ok := a.store.Subject(roll)
	if !ok {
		return Session{}, ErrCodeInvalid
	}

	token, err := util.IssueToken(a.opts.JWTSecret, a.opts.Issuer, sub.Roll, sub.Role, a.opts.TokenTTL, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	a.log.Info("login completed", "roll", roll, "role", sub.Role)
	return Session{
		Token:     token,
		Roll:      sub.Roll,
		Role:      sub.Role,
		ExpiresAt: now.Add(a.opts.TokenTTL),
	}, nil
}

// Validate checks a bearer token's signature and absolute expiry.
func (a *Auth) Validate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := util.ParseToken(a.opts.JWTSecret, token, a.now())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	id := Identity{Roll: claims.Roll, Role: claims.Role, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// HasPendingCode reports whether roll has an unexpired code outstanding.
func (a *Auth) HasPendingCode(roll string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[roll]
	return ok && !a.now().After(p.expiresAt)
}

func validateAccount(roll, email, password string) error {
	for _, err := range []error{
		util.ValidateRoll(roll),
		util.ValidateContact(email),
		util.ValidatePassword(password),
	} {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

// IsClientError reports whether err is one of the caller-visible outcomes
// rather than an infrastructure failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidCredentials, ErrCodeInvalid, ErrUnauthenticated,
		ErrMissingCandidate, ErrDuplicateIdentifier, ErrSubjectNotFound, ErrAlreadyVoted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
