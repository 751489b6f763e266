// Package session holds the authenticated user's credentials and keeps them
// on disk between runs.
//
// The durable state is exactly two files under the config dir, token.json
// and user.json, mirroring the two storage keys the web client keeps in the
// browser. Disk sync only begins after the store's own Load has completed,
// so a store that never managed to read its files will not clobber them
// with its empty startup state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"path/filepath"
	"sync"

	"github.com/taskdeck/taskdeck/internal/api"
)

const (
	tokenFile = "token.json"
	userFile  = "user.json"
)

var (
	// ErrInvalidEmail rejects a malformed email before any network call.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrEmptyPassword rejects a blank password before any network call.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrNotAuthenticated reports an operation that needs a logged-in user.
	ErrNotAuthenticated = errors.New("not logged in; run 'taskdeck login' first")
)

// Authenticator is the slice of the api client the store needs to obtain
// credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.Credentials, error)
	Signup(ctx context.Context, email, password string) (*api.Credentials, error)
}

// Store is the client-side session: one bearer token plus the user it
// belongs to. The zero value is unusable; construct with New and call
// Load before anything else.
type Store struct {
	mu      sync.Mutex
	dir     string
	token   string
	user    api.User
	hasUser bool
	loaded  bool
}

// New returns a store persisting under dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads the persisted token and user. Missing files mean a logged-out
// session and are not an error; unreadable or unparseable files are. Only
// after a successful Load do later credential changes sync to disk.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tok struct {
		Token string `json:"token"`
	}
	ok, err := readJSON(filepath.Join(s.dir, tokenFile), &tok)
	if err != nil {
		return err
	}
	if ok {
		s.token = tok.Token
	}

	var user api.User
	ok, err = readJSON(filepath.Join(s.dir, userFile), &user)
	if err != nil {
		return err
	}
	if ok {
		s.user = user
		s.hasUser = true
	}

	s.loaded = true
	return nil
}

// Login validates the credentials locally, exchanges them with the backend
// and stores the result.
func (s *Store) Login(ctx context.Context, auth Authenticator, email, password string) error {
	if err := checkCredentials(email, password); err != nil {
		return err
	}
	creds, err := auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adopt(creds)
}

// Signup creates an account and stores its first credentials.
func (s *Store) Signup(ctx context.Context, auth Authenticator, email, password string) error {
	if err := checkCredentials(email, password); err != nil {
		return err
	}
	creds, err := auth.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adopt(creds)
}

// Logout clears the session in memory and on disk. Calling it when already
// logged out is fine.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = api.User{}
	s.hasUser = false
	if !s.loaded {
		return nil
	}
	for _, name := range []string{tokenFile, userFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Token returns the current bearer token, empty when logged out.
// Part of the api client's TokenSource contract.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Invalidate drops the session after the backend rejected its token.
// Part of the api client's TokenSource contract; removal failures are
// ignored since there is nothing the caller could do mid-request.
func (s *Store) Invalidate() {
	_ = s.Logout()
}

// User returns the stored user identity, if any.
func (s *Store) User() (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.hasUser
}

// UserID returns the id of the logged-in user. When user.json is missing
// it falls back to the token's subject claim.
func (s *Store) UserID() (string, error) {
	s.mu.Lock()
	token, user, hasUser := s.token, s.user, s.hasUser
	s.mu.Unlock()

	if token == "" {
		return "", ErrNotAuthenticated
	}
	if hasUser && user.ID != "" {
		return user.ID, nil
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", errors.New("token carries no user id")
	}
	return claims.UserID, nil
}

// Claims decodes the current token's claims for display.
func (s *Store) Claims() (*Claims, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	return DecodeClaims(token)
}

func (s *Store) adopt(creds *api.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = creds.Token
	s.user = creds.User
	s.hasUser = true
	return s.persist()
}

// persist writes both files. Inert until Load has run.
func (s *Store) persist() error {
	if !s.loaded {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tok := struct {
		Token string `json:"token"`
	}{Token: s.token}
	if err := writeJSON(filepath.Join(s.dir, tokenFile), tok); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, userFile), s.user)
}

func checkCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
