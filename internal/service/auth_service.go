package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"members/internal/credential"
	"members/internal/model"
	"members/internal/repository"
	"members/internal/webmodel"
)

// --- DTOs ---

type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Phone     *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// --- Interface ---

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*webmodel.UserView, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	StartSession(ctx context.Context, userID uint, originAddress string) (*model.Session, error)
	Login(ctx context.Context, req LoginRequest, originAddress string) (*model.Session, error)
	ResolveSession(ctx context.Context, token string) (*model.User, error)
	Logout(ctx context.Context, token string) error
	ReapExpiredSessions(ctx context.Context) (int64, error)
}

// --- Implementation ---

const sessionInsertAttempts = 3

type authService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	sessions  repository.SessionRepository
	txManager repository.TransactionManager
	audit     AuditService
	hasher    *credential.Hasher
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	sessions repository.SessionRepository,
	txManager repository.TransactionManager,
	audit AuditService,
	hasher *credential.Hasher,
	sessionTTL time.Duration,
) AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &authService{
		users:     users,
		roles:     roles,
		sessions:  sessions,
		txManager: txManager,
		audit:     audit,
		hasher:    hasher,
		ttl:       sessionTTL,
		now:       time.Now,
	}
}

// Register creates an unapproved account with the default member role.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*webmodel.UserView, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("invalid email address")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, validationError("first_name and last_name are required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(ctx, req.Password, salt)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidArgument) {
			return nil, validationError("password is required")
		}
		return nil, err
	}

	role, err := s.roles.FindByName(ctx, model.MemberRoleName)
	if err != nil {
		return nil, fmt.Errorf("load default role: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		PasswordHash: hash,
		PasswordSalt: salt,
		RoleID:       role.ID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return conflictAs("email already registered", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID:     &user.ID,
			Action:     model.ActionRegisterUser,
			EntityType: "user",
			EntityID:   user.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	user.Role = *role
	return webmodel.FromDBModel[webmodel.UserView](user)
}

// Authenticate matches email case-insensitively and verifies the password.
// Every failure is an *AuthenticationError.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if password == "" {
		return nil, &AuthenticationError{Reason: "empty password"}
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		// Spend the same work as a real check.
		_, _ = s.hasher.Hash(ctx, password, "no-such-account")
		return nil, &AuthenticationError{Reason: "email not found"}
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &AuthenticationError{Reason: "password incorrect"}
	}
	return user, nil
}

// StartSession stores a new random token valid for the configured lifetime.
func (s *authService) StartSession(ctx context.Context, userID uint, originAddress string) (*model.Session, error) {
	for attempt := 0; attempt < sessionInsertAttempts; attempt++ {
		token, err := credential.GenerateToken()
		if err != nil {
			return nil, err
		}
		session := &model.Session{
			Token:     token,
			UserID:    userID,
			IPAddress: originAddress,
			ExpiresAt: s.now().Add(s.ttl),
		}
		err = s.sessions.Create(ctx, session)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, errors.New("could not allocate a unique session token")
}

func (s *authService) Login(ctx context.Context, req LoginRequest, originAddress string) (*model.Session, error) {
	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			log.Printf("login failed from %s: %s", originAddress, authErr.Reason)
		}
		return nil, err
	}
	if !user.Approved {
		return nil, fmt.Errorf("%w: account is awaiting approval", ErrForbidden)
	}
	return s.StartSession(ctx, user.ID, originAddress)
}

// ResolveSession returns the user owning token. Expired sessions are deleted
// on sight.
func (s *authService) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			log.Printf("delete expired session: %v", err)
		}
		return nil, ErrUnauthenticated
	}

	user, err := s.users.FindWithRelations(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}

func (s *authService) ReapExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
