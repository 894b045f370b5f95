// Package session holds the authenticated user's state for the lifetime of
// the process: bearer token, identity, and the small preferences that
// outlive a login.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/store"
)

var (
	ErrNoSession      = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, please log in again")
)

const (
	keyToken         = "session.token"
	keySalt          = "session.salt"
	keyCachedUser    = "session.user"
	keyRememberEmail = "remember.email"
	keyDarkMode      = "ui.dark_mode"

	DefaultCheckDelay = 300 * time.Millisecond
)

// KV is the durable key-value store backing the session
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures a Session
type Options struct {
	Store      KV
	SecretPath string        // machine-local secret for sealing remembered tokens
	TempDir    string        // directory for the per-user ephemeral session file
	CheckDelay time.Duration // pause before the expiry check on protected entry
	Now        func() time.Time
}

// Session is the application context for the signed-in user
type Session struct {
	store      KV
	secretPath string
	ephemeral  string
	delay      time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	token    string
	remember bool
	claims   *Claims
	user     *model.User
}

// New creates an empty session. Call Restore to pick up a previous login.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "taskprox-"+strconv.Itoa(os.Getuid()))
	}
	if opts.SecretPath == "" {
		opts.SecretPath = filepath.Join(opts.TempDir, ".secret")
	}
	if opts.CheckDelay < 0 {
		opts.CheckDelay = 0
	}

	return &Session{
		store:      opts.Store,
		secretPath: opts.SecretPath,
		ephemeral:  filepath.Join(opts.TempDir, "session"),
		delay:      opts.CheckDelay,
		now:        opts.Now,
	}
}

// Init starts a session from a freshly issued token. With remember set the
// token is sealed into the durable store, otherwise it only lives in the
// ephemeral session file.
func (s *Session) Init(ctx context.Context, token string, remember bool) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}

	if remember {
		if err := s.persistToken(ctx, token); err != nil {
			return err
		}
		s.removeEphemeral()
	} else {
		if err := s.writeEphemeral(token); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, keyToken); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.token = token
	s.remember = remember
	s.claims = claims
	s.user = nil
	s.mu.Unlock()

	logger.Info("Session started", logger.F("email", claims.Email), logger.F("remember", remember))
	return nil
}

// Restore loads a previous login, preferring the ephemeral session
func (s *Session) Restore(ctx context.Context) error {
	token, remember := s.readEphemeral(), false
	if token == "" {
		t, err := s.loadToken(ctx)
		if err != nil {
			return err
		}
		token, remember = t, true
	}
	if token == "" {
		return ErrNoSession
	}

	claims, err := ParseClaims(token)
	if err != nil {
		logger.Warn("Discarding unreadable session", logger.F("error", err))
		s.Teardown(ctx)
		return ErrNoSession
	}

	var user *model.User
	if raw, err := s.store.Get(ctx, keyCachedUser); err == nil {
		u := &model.User{}
		if json.Unmarshal([]byte(raw), u) == nil {
			user = u
		}
	}

	s.mu.Lock()
	s.token = token
	s.remember = remember
	s.claims = claims
	s.user = user
	s.mu.Unlock()
	return nil
}

// Validate guards protected entry points. After a short pause it checks the
// token expiry and tears the session down when it has passed.
func (s *Session) Validate(ctx context.Context) error {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.RLock()
	claims := s.claims
	s.mu.RUnlock()

	if claims == nil {
		return ErrNoSession
	}
	if exp := claims.Expiry(); !exp.IsZero() && !s.now().Before(exp) {
		logger.Info("Session expired", logger.F("email", claims.Email), logger.F("expired_at", exp))
		if err := s.Teardown(ctx); err != nil {
			return err
		}
		return ErrSessionExpired
	}
	return nil
}

// Teardown forgets the token and cached user. The remembered email and
// display preferences survive.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.remember = false
	s.claims = nil
	s.user = nil
	s.mu.Unlock()

	s.removeEphemeral()
	if err := s.store.Delete(ctx, keyToken, keyCachedUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token returns the bearer token, empty when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether a token is held
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// RememberMe reports whether the token is kept across restarts
func (s *Session) RememberMe() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remember
}

// ExpiresAt returns the token expiry, zero when unknown
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return time.Time{}
	}
	return s.claims.Expiry()
}

// Identity returns who the current user is for permission checks
func (s *Session) Identity() permission.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return permission.Identity{}
	}
	id := permission.Identity{Email: s.claims.Email, FullName: s.claims.FullName()}
	if id.FullName == "" && s.user != nil {
		id.FullName = s.user.FullName()
	}
	return id
}

// User returns the cached profile. It is display-only.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser caches the profile returned by the backend
func (s *Session) SetUser(ctx context.Context, u *model.User) error {
	if u == nil {
		return nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyCachedUser, string(data)); err != nil {
		return err
	}

	cp := *u
	s.mu.Lock()
	s.user = &cp
	s.mu.Unlock()
	return nil
}

// RememberedEmail returns the email pre-filled on the login form
func (s *Session) RememberedEmail(ctx context.Context) string {
	v, err := s.store.Get(ctx, keyRememberEmail)
	if err != nil {
		return ""
	}
	return v
}

// SetRememberedEmail stores or, when empty, clears the login email
func (s *Session) SetRememberedEmail(ctx context.Context, email string) error {
	if email == "" {
		return s.store.Delete(ctx, keyRememberEmail)
	}
	return s.store.Set(ctx, keyRememberEmail, email)
}

// DarkMode returns the stored theme flag; fallback applies when unset
func (s *Session) DarkMode(ctx context.Context, fallback bool) bool {
	v, err := s.store.Get(ctx, keyDarkMode)
	if err != nil {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// SetDarkMode stores the theme flag
func (s *Session) SetDarkMode(ctx context.Context, on bool) error {
	return s.store.Set(ctx, keyDarkMode, strconv.FormatBool(on))
}

func (s *Session) sealer(ctx context.Context) (*sealer, error) {
	secret, err := loadSecret(s.secretPath)
	if err != nil {
		return nil, err
	}

	var salt []byte
	raw, err := s.store.Get(ctx, keySalt)
	switch {
	case err == nil:
		salt, err = base64.StdEncoding.DecodeString(raw)
		if err != nil || len(salt) != saltSize {
			return nil, fmt.Errorf("corrupt session salt")
		}
	case errors.Is(err, store.ErrNotFound):
		if salt, err = randomBytes(saltSize); err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, keySalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return newSealer(secret, salt)
}

func (s *Session) persistToken(ctx context.Context, token string) error {
	sl, err := s.sealer(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare token storage: %w", err)
	}
	sealed, err := sl.seal([]byte(token))
	if err != nil {
		return err
	}
	return s.store.Set(ctx, keyToken, sealed)
}

func (s *Session) loadToken(ctx context.Context) (string, error) {
	sealed, err := s.store.Get(ctx, keyToken)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	sl, err := s.sealer(ctx)
	if err != nil {
		return "", err
	}
	token, err := sl.open(sealed)
	if err != nil {
		logger.Warn("Stored token could not be opened", logger.F("error", err))
		s.store.Delete(ctx, keyToken)
		return "", nil
	}
	return string(token), nil
}

func (s *Session) writeEphemeral(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.ephemeral), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.ephemeral, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *Session) readEphemeral() string {
	data, err := os.ReadFile(s.ephemeral)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *Session) removeEphemeral() {
	if err := os.Remove(s.ephemeral); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove session file", logger.F("error", err))
	}
}
