package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskdeck/taskdeck/internal/api"
)

type fakeAuth struct {
	creds *api.Credentials
	err   error
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*api.Credentials, error) {
	f.calls++
	return f.creds, f.err
}

func (f *fakeAuth) Signup(ctx context.Context, email, password string) (*api.Credentials, error) {
	f.calls++
	return f.creds, f.err
}

func loadedStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(dir)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, dir
}

func testCreds() *api.Credentials {
	return &api.Credentials{
		Token: "t1",
		User:  api.User{ID: "u1", Email: "a@x.com"},
	}
}

// --- Login / logout lifecycle ---

func TestStore_LoginPersistsBothFiles(t *testing.T) {
	s, dir := loadedStore(t)
	auth := &fakeAuth{creds: testCreds()}

	if err := s.Login(context.Background(), auth, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Error("expected IsAuthenticated after login")
	}
	if s.Token() != "t1" {
		t.Errorf("expected token 't1', got %q", s.Token())
	}
	for _, name := range []string{"token.json", "user.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestStore_LogoutRemovesBothFiles(t *testing.T) {
	s, dir := loadedStore(t)
	auth := &fakeAuth{creds: testCreds()}
	if err := s.Login(context.Background(), auth, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("expected logged out state")
	}
	for _, name := range []string{"token.json", "user.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected %s to be gone, stat err = %v", name, err)
		}
	}

	// Idempotent.
	if err := s.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestStore_LoadRestoresSession(t *testing.T) {
	s, dir := loadedStore(t)
	auth := &fakeAuth{creds: testCreds()}
	if err := s.Login(context.Background(), auth, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A fresh store over the same dir picks the session back up.
	restored := New(dir)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !restored.IsAuthenticated() {
		t.Error("expected restored session to be authenticated")
	}
	user, ok := restored.User()
	if !ok || user.Email != "a@x.com" {
		t.Errorf("expected restored user, got %+v ok=%v", user, ok)
	}
}

func TestStore_PersistInertBeforeLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(dir) // Load intentionally skipped

	auth := &fakeAuth{creds: testCreds()}
	if err := s.Login(context.Background(), auth, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Error("in-memory session should still be set")
	}
	if _, err := os.Stat(filepath.Join(dir, "token.json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("nothing may be written before the initial Load has run")
	}
}

func TestStore_LoginValidation(t *testing.T) {
	s, _ := loadedStore(t)
	auth := &fakeAuth{creds: testCreds()}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", ErrInvalidEmail},
		{"malformed email", "not-an-email", "secret1", ErrInvalidEmail},
		{"empty password", "a@x.com", "", ErrEmptyPassword},
	}
	for _, tt := range tests {
		err := s.Login(context.Background(), auth, tt.email, tt.password)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
	if auth.calls != 0 {
		t.Errorf("validation failures must not reach the network, got %d calls", auth.calls)
	}
}

func TestStore_LoginFailureLeavesStateUntouched(t *testing.T) {
	s, dir := loadedStore(t)
	auth := &fakeAuth{err: errors.New("invalid email or password")}

	if err := s.Login(context.Background(), auth, "a@x.com", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
	if s.IsAuthenticated() {
		t.Error("failed login must not authenticate")
	}
	if _, err := os.Stat(filepath.Join(dir, "token.json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed login must not persist anything")
	}
}

func TestStore_InvalidateClearsSession(t *testing.T) {
	s, dir := loadedStore(t)
	auth := &fakeAuth{creds: testCreds()}
	if err := s.Login(context.Background(), auth, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s.Invalidate()

	if s.IsAuthenticated() {
		t.Error("Invalidate must drop the session")
	}
	if _, err := os.Stat(filepath.Join(dir, "token.json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Invalidate must remove persisted credentials")
	}
}

// --- Claims ---

func signTestToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"iat":   jwt.NewNumericDate(exp.Add(-time.Hour)),
		"exp":   jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signTestToken(t, "u1", "a@x.com", exp)

	claims, err := DecodeClaims(token)
	if err != nil {
		t.Fatalf("DecodeClaims: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("expected sub 'u1', got %q", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("expected email 'a@x.com', got %q", claims.Email)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("expected exp %v, got %v", exp, claims.ExpiresAt)
	}
	if claims.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
	if !claims.Expired(exp.Add(time.Minute)) {
		t.Error("token should report expired after exp")
	}
}

func TestDecodeClaims_Garbage(t *testing.T) {
	if _, err := DecodeClaims("not.a.jwt"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestStore_UserIDFallsBackToClaims(t *testing.T) {
	s, dir := loadedStore(t)
	token := signTestToken(t, "u9", "b@x.com", time.Now().Add(time.Hour))
	auth := &fakeAuth{creds: &api.Credentials{Token: token, User: api.User{ID: "u9", Email: "b@x.com"}}}
	if err := s.Login(context.Background(), auth, "b@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Simulate a session whose user.json has gone missing.
	if err := os.Remove(filepath.Join(dir, "user.json")); err != nil {
		t.Fatalf("remove user.json: %v", err)
	}
	restored := New(dir)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	id, err := restored.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if id != "u9" {
		t.Errorf("expected claim fallback 'u9', got %q", id)
	}
}

func TestStore_UserIDRequiresToken(t *testing.T) {
	s, _ := loadedStore(t)
	if _, err := s.UserID(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

// --- Corrupt state ---

func TestStore_LoadRejectsCorruptTokenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s := New(dir)
	if err := s.Load(); err == nil {
		t.Error("expected Load to report the corrupt file")
	}
	if s.IsAuthenticated() {
		t.Error("corrupt state must not authenticate")
	}
}
