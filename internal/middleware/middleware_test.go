package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"members/internal/model"
	"members/internal/obs"
	"members/internal/permission"
	"members/internal/service"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions struct {
	users map[string]*model.User
	err   error
}

func (s stubSessions) ResolveSession(_ context.Context, token string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, service.ErrUnauthenticated
}

type stubActors struct {
	fail bool
}

func (s stubActors) ResolveActor(_ context.Context, ref permission.ActorRef) (permission.Actor, error) {
	if s.fail {
		return permission.Actor{}, permission.ErrAnonymousRoleMissing
	}
	role := &model.Role{Name: model.AnonymousRoleName}
	// ByUser of a nil user is anonymous; any other ref here carries a user.
	if ref == permission.Anonymous() {
		return permission.Actor{Role: role}, nil
	}
	return permission.Actor{User: &model.User{ID: 7}, Role: &model.Role{Name: model.MemberRoleName}, Authenticated: true}, nil
}

func newSessionRouter(signer *TokenSigner, actors stubActors) *gin.Engine {
	return newRouterWithSessions(signer, stubSessions{users: map[string]*model.User{"tok-1": {ID: 7, RoleID: 2}}}, actors)
}

func newRouterWithSessions(signer *TokenSigner, sessions stubSessions, actors stubActors) *gin.Engine {
	r := gin.New()
	r.Use(Session(signer, sessions, actors))
	r.GET("/whoami", func(c *gin.Context) {
		actor := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"authenticated": actor.Authenticated,
			"user_id":       actor.UserID(),
			"token":         SessionTokenFrom(c),
		})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func whoami(t *testing.T, r *gin.Engine, mutate func(*http.Request)) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	mutate(req)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestTokenSignerRoundTrip(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	signed, err := signer.Sign(&model.Session{Token: "tok-1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	token, err := signer.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("expected tok-1, got %q", token)
	}

	if _, err := NewTokenSigner("other-secret").Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	expired, err := signer.Sign(&model.Session{Token: "tok-1", UserID: 7, ExpiresAt: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for expired jwt, got %v", err)
	}
}

func TestSessionResolvesCookieAndBearer(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	r := newSessionRouter(signer, stubActors{})
	signed, err := signer.Sign(&model.Session{Token: "tok-1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	body := whoami(t, r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: signed})
	})
	if body["authenticated"] != true || body["token"] != "tok-1" {
		t.Fatalf("cookie session not resolved: %v", body)
	}

	body = whoami(t, r, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})
	if body["authenticated"] != true {
		t.Fatalf("bearer session not resolved: %v", body)
	}
}

func TestSessionFallsBackToAnonymous(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	r := newSessionRouter(signer, stubActors{})
	unknown, err := signer.Sign(&model.Session{Token: "gone", UserID: 9, ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]func(*http.Request){
		"no credentials":  func(*http.Request) {},
		"garbage bearer":  func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") },
		"unknown session": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: SessionCookie, Value: unknown}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := whoami(t, r, mutate)
			if body["authenticated"] != false || body["token"] != "" {
				t.Fatalf("expected anonymous caller, got %v", body)
			}
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/private", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestSessionAbortsWithoutAnonymousRole(t *testing.T) {
	r := newSessionRouter(NewTokenSigner("test-secret"), stubActors{fail: true})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestSessionStoreFailureAborts(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	r := newRouterWithSessions(signer, stubSessions{err: errors.New("connection refused")}, stubActors{})
	signed, err := signer.Sign(&model.Session{Token: "tok-1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for _, path := range []string{"/whoami", "/private"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500 with a failing session store, got %d", path, rr.Code)
		}
	}

	// without credentials the store is never consulted
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected anonymous 200, got %d", rr.Code)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 1)
	r := gin.New()
	r.POST("/login", limiter.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	if rr := send("10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("expected first call 200, got %d", rr.Code)
	}
	rr := send("10.0.0.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if rr := send("10.0.0.2"); rr.Code != http.StatusOK {
		t.Fatalf("other clients must not be limited, got %d", rr.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.Allow("a")
	limiter.Allow("b")

	now = now.Add(limiter.ttl + time.Second)
	limiter.Allow("b")
	if n := limiter.Sweep(); n != 1 {
		t.Fatalf("expected 1 bucket left, got %d", n)
	}
}

func TestTraceAndRequestLog(t *testing.T) {
	logger := obs.Logger()
	orig := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)

	r := gin.New()
	r.Use(TraceID(), RequestLog())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(TraceHeader, "trace-abc")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Header().Get(TraceHeader) != "trace-abc" {
		t.Fatalf("trace id not echoed: %q", rr.Header().Get(TraceHeader))
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["route"] != "/items/:id" || entry["status"] != float64(http.StatusTeapot) || entry["trace_id"] != "trace-abc" {
		t.Fatalf("unexpected log entry %v", entry)
	}
}
