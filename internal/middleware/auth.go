package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"members/internal/model"
	"members/internal/permission"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookie = "session"

	actorKey = "actor"
	tokenKey = "session_token"
)

var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenSigner wraps opaque session tokens in HS256 JWTs so clients can carry
// them in a cookie or a Bearer header.
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

func (s *TokenSigner) Sign(session *model.Session) (string, error) {
	claims := sessionClaims{
		SessionID: session.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(session.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies raw and returns the session token it carries.
func (s *TokenSigner) Parse(raw string) (string, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims.SessionID, nil
}

// SetSessionCookie stores the signed session as an HttpOnly cookie.
// Secure deployments are cross-origin and need SameSite=None.
func SetSessionCookie(c *gin.Context, signed string, expiresAt time.Time, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, signed, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// bearer reads the signed session from the cookie first, then from the
// Authorization header.
func bearer(c *gin.Context) string {
	if raw, err := c.Cookie(SessionCookie); err == nil && raw != "" {
		return raw
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.User, error)
}

type ActorResolver interface {
	ResolveActor(ctx context.Context, ref permission.ActorRef) (permission.Actor, error)
}

// Session resolves the caller once per request. Missing, invalid and expired
// sessions continue as the anonymous actor. A failing session store or a
// failure to load the caller's role aborts the request.
func Session(signer *TokenSigner, sessions SessionResolver, actors ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ref := permission.Anonymous()

		if raw := bearer(c); raw != "" {
			if token, err := signer.Parse(raw); err == nil {
				user, err := sessions.ResolveSession(ctx, token)
				switch {
				case err == nil:
					ref = permission.ByUser(user)
					c.Set(tokenKey, token)
				case !errors.Is(err, service.ErrUnauthenticated):
					_ = c.Error(err)
					c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resolve session"))
					return
				}
			}
		}

		actor, err := actors.ResolveActor(ctx, ref)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resolve caller"))
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Session. Without it the caller has
// no role and every check fails with a resolution error.
func ActorFrom(c *gin.Context) permission.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(permission.Actor); ok {
			return actor
		}
	}
	return permission.Actor{}
}

// SessionTokenFrom returns the opaque token of an authenticated request.
func SessionTokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		c.Next()
	}
}
