package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/calorie-tracker/internal/crypto"
	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/limiter"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/repository"
)

type fakeUsers struct {
	byName map[string]*model.User
	nextID int64

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return 0, errs.ErrAlreadyExists
	}
	f.nextID++
	cpy := *u
	cpy.ID = f.nextID
	f.byName[u.Username] = &cpy
	return cpy.ID, nil
}
func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byName: map[string]*model.User{}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{})
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty username/password, got %v", err)
	}
	if _, err := s.Register(ctx, "alice", "pwd", "pwd2"); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on mismatched confirmation, got %v", err)
	}

	id, err := s.Register(ctx, " alice ", "pwd", "pwd")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == 0 {
		t.Fatalf("empty user id")
	}
	stored := users.byName["alice"]
	if stored == nil || stored.PwdHash == "pwd" || !pkgcrypto.VerifyPassword("pwd", stored.PwdHash) {
		t.Fatalf("password must be stored hashed: %+v", stored)
	}

	if _, err := s.Register(ctx, "alice", "pwd2", "pwd2"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}

	users.createErr = errors.New("boom")
	if _, err := s.Register(ctx, "bob", "pwd", "pwd"); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func newUser(t *testing.T, id int64, name, pw string) *model.User {
	t.Helper()
	h, err := pkgcrypto.HashPassword(pw)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &model.User{ID: id, Username: name, PwdHash: h}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	u := newUser(t, 7, "alice", "correct")
	users := &fakeUsers{byName: map[string]*model.User{"alice": u}}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, lim)
	ctx := context.Background()

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(ctx, "alice", "correct", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(ctx, "alice", "correct", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	if _, _, err := s.LoginWithIP(ctx, "nope", "x", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}

	users.getErr = errors.New("db down")
	if _, _, err := s.LoginWithIP(ctx, "alice", "correct", ""); err == nil || errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("storage error must not look like bad credentials, got %v", err)
	}
	users.getErr = nil

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(ctx, "alice", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	lim.failBlocked = false
	if _, _, err := s.LoginWithIP(ctx, "alice", "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, gotUser, err := s.LoginWithIP(ctx, "alice", "correct", "127.0.0.1:123")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID || gotUser.Username != "alice" {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}

	id, err := s.ParseSession(tok.AccessToken)
	if err != nil || id != u.ID {
		t.Fatalf("ParseSession: id=%d err=%v", id, err)
	}
}

func TestAuth_TokensCarryUniqueID(t *testing.T) {
	t.Parallel()

	s := NewAuthService(&fakeUsers{}, []byte("k"), time.Minute, &fakeLimiter{})
	a, _, err := s.issueAccessToken(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _, err := s.issueAccessToken(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatalf("tokens issued in the same second must differ")
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(a, &claims, func(*jwt.Token) (any, error) { return []byte("k"), nil }); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID == "" || claims.Subject != "1" {
		t.Fatalf("bad claims: %+v", claims)
	}
}

func TestAuth_ParseSession_Rejects(t *testing.T) {
	t.Parallel()

	s := NewAuthService(&fakeUsers{}, []byte("k"), time.Minute, &fakeLimiter{})
	good, _, err := s.issueAccessToken(3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewAuthService(&fakeUsers{}, []byte("other"), time.Minute, &fakeLimiter{})
	foreign, _, _ := other.issueAccessToken(3)

	expired := NewAuthService(&fakeUsers{}, []byte("k"), time.Minute, &fakeLimiter{})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.issueAccessToken(3)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSub, _ := noSubject.SignedString([]byte("k"))

	for name, tok := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-jwt",
		"foreign":  foreign,
		"expired":  old,
		"alg none": unsigned,
		"subject":  badSub,
	} {
		if _, err := s.ParseSession(tok); !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", name, err)
		}
	}

	if id, err := s.ParseSession(good); err != nil || id != 3 {
		t.Fatalf("good token: id=%d err=%v", id, err)
	}
}

func TestAuth_Whoami(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byName: map[string]*model.User{"bob": {ID: 9, Username: "bob"}}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{})

	u, err := s.Whoami(context.Background(), 9)
	if err != nil || u.Username != "bob" {
		t.Fatalf("Whoami: %+v %v", u, err)
	}
	if _, err := s.Whoami(context.Background(), 10); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("missing user must be unauthorized, got %v", err)
	}
	users.getErr = errors.New("boom")
	if _, err := s.Whoami(context.Background(), 9); err == nil || errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want storage error, got %v", err)
	}
}
