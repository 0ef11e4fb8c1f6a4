package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/internal/users"
	pkgAuth "github.com/loomline/storefront-backend/pkg/auth"
	"github.com/loomline/storefront-backend/pkg/auth/session"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	minPasswordLength         = 8
)

// Service defines the behavior needed by the auth controller. Login and
// register both rotate the caller's session, so they receive the current
// session id and hand back the replacement inside AuthResult.
type Service interface {
	Register(ctx context.Context, currentSessionID string, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, currentSessionID string, req LoginRequest) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	MintToken(ctx context.Context, sessionID string, userID uuid.UUID, role enums.UserRole) (*TokenResult, error)
}

type service struct {
	users       userRepository
	session     sessionManager
	limiter     rateLimiter
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
	limits      config.AuthRateLimitConfig
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Authenticate(ctx context.Context, currentID string, userID uuid.UUID, role enums.UserRole) (string, *session.Record, error)
	Destroy(ctx context.Context, sessionID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Limiter        rateLimiter
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
	RateLimits     config.AuthRateLimitConfig
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		limiter:     params.Limiter,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
		limits:      params.RateLimits,
	}, nil
}

// Register creates a customer account and logs it in, rotating the caller's
// anonymous session so the browsing cart carries over to the new account.
func (s *service) Register(ctx context.Context, currentSessionID string, req RegisterRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRegistration(email, req); err != nil {
		return nil, err
	}
	if err := s.allow(ctx, "register:email:"+email, s.limits.RegisterEmailLimit, s.limits.RegisterWindow); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         enums.UserRoleCustomer,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost a race with a concurrent registration for the same email.
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return s.issueSession(ctx, currentSessionID, user)
}

// Login verifies credentials and rotates the session, carrying the current
// cart into the authenticated session. The rate limit window counts every
// attempt, successful or not.
func (s *service) Login(ctx context.Context, currentSessionID string, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.allow(ctx, "login:email:"+email, s.limits.LoginEmailLimit, s.limits.LoginWindow); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	s.upgradeHash(ctx, user, req.Password)

	if err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, currentSessionID, user)
}

// Logout destroys the session record. The controller clears the cookie.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.session.Destroy(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "destroy session")
	}
	return nil
}

// Me returns the profile for the authenticated user.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

// MintToken issues a short-lived JWT bound to the caller's session. The
// session id becomes the jti claim, so destroying the session also kills
// every token minted from it.
func (s *service) MintToken(ctx context.Context, sessionID string, userID uuid.UUID, role enums.UserRole) (*TokenResult, error) {
	now := time.Now().UTC()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.jwtCfg.Expiration()),
	}, nil
}

// authenticate expects a normalized email. Unknown email, wrong password and
// deactivated account all collapse into the same unauthorized error.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// upgradeHash re-encodes the stored password when the configured argon2id
// parameters are stronger than the ones the hash was produced with. Best
// effort; a failed upgrade never blocks a login that already verified.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return
	}
	user.PasswordHash = hash
}

func (s *service) recordLogin(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return nil
}

func (s *service) issueSession(ctx context.Context, currentSessionID string, user *models.User) (*AuthResult, error) {
	sessionID, _, err := s.session.Authenticate(ctx, currentSessionID, user.ID, user.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}
	return &AuthResult{
		SessionID: sessionID,
		User:      users.FromModel(user),
	}, nil
}

func (s *service) allow(ctx context.Context, scope string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}
	ok, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: rate limit")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, retry later")
	}
	return nil
}

func validateRegistration(email string, req RegisterRequest) error {
	problems := map[string]string{}
	if email == "" {
		problems["email"] = "required"
	} else if !strings.Contains(email, "@") {
		problems["email"] = "must be a valid email address"
	}
	if len(req.Password) < minPasswordLength {
		problems["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(req.FirstName) == "" {
		problems["first_name"] = "required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		problems["last_name"] = "required"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid registration details").WithDetails(problems)
	}
	return nil
}
