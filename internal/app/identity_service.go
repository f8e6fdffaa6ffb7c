package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classquiz-service/internal/domain"
)

// IdentityService resolves credentials to profiles and owns the persisted
// session token. When an external IdentityProvider is configured, sign-in
// and sign-up are delegated to it and its failures surface unchanged.
type IdentityService struct {
	users    UserRepository
	sessions SessionStore
	provider IdentityProvider
	presence *Tracker
	secret   []byte
	tokenTTL time.Duration
	validate *validator.Validate
	clock    func() time.Time
	newID    func() string
}

func NewIdentityService(users UserRepository, sessions SessionStore, secret []byte, tokenTTL time.Duration) *IdentityService {
	return &IdentityService{
		users:    users,
		sessions: sessions,
		secret:   secret,
		tokenTTL: tokenTTL,
		validate: validator.New(),
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// UseProvider switches sign-in/sign-up/sign-out to the external provider.
func (s *IdentityService) UseProvider(p IdentityProvider) { s.provider = p }

// BindPresence ties the presence tracker to session begin/end.
func (s *IdentityService) BindPresence(t *Tracker) { s.presence = t }

// WithClock is test-only for deterministic timestamps.
func (s *IdentityService) WithClock(now func() time.Time) { s.clock = now }

type sessionClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Login matches the supplied credentials against the user store (or the
// external provider), marks the user active, persists a fresh session
// token, and returns the public profile. A non-empty role must match the
// stored one; any mismatch is reported as ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, email, password string, role domain.Role) (domain.PublicProfile, error) {
	if s.provider != nil {
		ident, err := s.provider.SignIn(ctx, email, password)
		if err != nil {
			return domain.PublicProfile{}, &domain.ProviderError{Op: "sign-in", Err: err}
		}
		if role != "" && ident.Role != role {
			return domain.PublicProfile{}, domain.ErrInvalidCredentials
		}
		return s.adoptProviderIdentity(ctx, ident)
	}

	cred, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PublicProfile{}, domain.ErrInvalidCredentials
		}
		return domain.PublicProfile{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return domain.PublicProfile{}, domain.ErrInvalidCredentials
	}
	if role != "" && cred.Role != role {
		return domain.PublicProfile{}, domain.ErrInvalidCredentials
	}
	return s.beginSession(ctx, cred.ID)
}

// RegisterInput is validated before any store access.
type RegisterInput struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     domain.Role `json:"role" validate:"required,oneof=teacher student"`
}

// Register creates a new user with roster fields matching the role, marks
// it active, persists a session token, and returns the profile.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (domain.PublicProfile, error) {
	if err := s.validate.Struct(input); err != nil {
		return domain.PublicProfile{}, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return domain.PublicProfile{}, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.PublicProfile{}, err
	}

	if s.provider != nil {
		ident, err := s.provider.SignUp(ctx, input.Name, input.Email, input.Password, input.Role)
		if err != nil {
			return domain.PublicProfile{}, &domain.ProviderError{Op: "sign-up", Err: err}
		}
		return s.adoptProviderIdentity(ctx, ident)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.PublicProfile{}, err
	}

	cred := domain.StoredCredential{
		ID:           s.newID(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
		Active:       true,
		LastActive:   s.clock(),
	}
	switch input.Role {
	case domain.RoleTeacher:
		cred.StudentIDs = []string{}
	case domain.RoleStudent:
		cred.ClassroomIDs = []string{}
	}
	if err := s.users.Put(ctx, cred); err != nil {
		return domain.PublicProfile{}, err
	}
	return s.beginSession(ctx, cred.ID)
}

// Logout clears the active flag of the session's user, discards the
// persisted token, and stops the presence tracker. Without a session it
// only clears the token slot.
func (s *IdentityService) Logout(ctx context.Context) error {
	token, ok, err := s.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if ok {
		if claims, err := s.parseToken(token); err == nil {
			_ = s.users.Update(ctx, claims.Subject, func(cred *domain.StoredCredential) error {
				cred.Active = false
				return nil
			})
		}
	}
	if s.provider != nil {
		if err := s.provider.SignOut(ctx); err != nil {
			return &domain.ProviderError{Op: "sign-out", Err: err}
		}
	}
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	if s.presence != nil {
		s.presence.EndSession()
	}
	return nil
}

// RestoreSession re-validates the persisted token on process start and
// re-marks its user active. It reports ok=false, with no error, when no
// usable session exists; stale tokens are discarded on the way.
func (s *IdentityService) RestoreSession(ctx context.Context) (domain.PublicProfile, bool, error) {
	token, ok, err := s.sessions.Get(ctx)
	if err != nil || !ok {
		return domain.PublicProfile{}, false, err
	}
	claims, err := s.parseToken(token)
	if err != nil {
		_ = s.sessions.Clear(ctx)
		return domain.PublicProfile{}, false, nil
	}
	if _, err := s.users.Get(ctx, claims.Subject); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.sessions.Clear(ctx)
			return domain.PublicProfile{}, false, nil
		}
		return domain.PublicProfile{}, false, err
	}
	profile, err := s.beginSession(ctx, claims.Subject)
	if err != nil {
		return domain.PublicProfile{}, false, err
	}
	return profile, true, nil
}

// Heartbeat refreshes the user's last-active timestamp and extends the
// persisted token's TTL.
func (s *IdentityService) Heartbeat(ctx context.Context, userID string) error {
	if err := s.markActive(ctx, userID); err != nil {
		return err
	}
	token, ok, err := s.sessions.Get(ctx)
	if err != nil || !ok {
		return err
	}
	return s.sessions.Set(ctx, token)
}

// SessionToken returns the currently persisted session token, if any.
func (s *IdentityService) SessionToken(ctx context.Context) (string, bool, error) {
	return s.sessions.Get(ctx)
}

// Authenticate resolves a bearer token to a profile.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (domain.PublicProfile, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return domain.PublicProfile{}, domain.ErrInvalidCredentials
	}
	cred, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PublicProfile{}, domain.ErrInvalidCredentials
		}
		return domain.PublicProfile{}, err
	}
	return cred.Profile(), nil
}

func (s *IdentityService) beginSession(ctx context.Context, userID string) (domain.PublicProfile, error) {
	if err := s.markActive(ctx, userID); err != nil {
		return domain.PublicProfile{}, err
	}
	cred, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	token, err := s.issueToken(cred)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	if err := s.sessions.Set(ctx, token); err != nil {
		return domain.PublicProfile{}, err
	}
	if s.presence != nil {
		s.presence.StartSession(cred.ID)
	}
	return cred.Profile(), nil
}

// adoptProviderIdentity mirrors the provider's identity into the local
// store so roster and presence queries keep working in delegated mode.
func (s *IdentityService) adoptProviderIdentity(ctx context.Context, ident ProviderIdentity) (domain.PublicProfile, error) {
	_, err := s.users.Get(ctx, ident.ID)
	if errors.Is(err, domain.ErrNotFound) {
		cred := domain.StoredCredential{
			ID:         ident.ID,
			Name:       ident.Name,
			Email:      ident.Email,
			Role:       ident.Role,
			LastActive: s.clock(),
		}
		switch ident.Role {
		case domain.RoleTeacher:
			cred.StudentIDs = []string{}
		case domain.RoleStudent:
			cred.ClassroomIDs = []string{}
		}
		if err := s.users.Put(ctx, cred); err != nil {
			return domain.PublicProfile{}, err
		}
	} else if err != nil {
		return domain.PublicProfile{}, err
	}
	return s.beginSession(ctx, ident.ID)
}

func (s *IdentityService) markActive(ctx context.Context, userID string) error {
	now := s.clock()
	return s.users.Update(ctx, userID, func(cred *domain.StoredCredential) error {
		cred.Active = true
		cred.LastActive = now
		return nil
	})
}

func (s *IdentityService) issueToken(cred domain.StoredCredential) (string, error) {
	now := s.clock()
	claims := sessionClaims{
		Role: cred.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *IdentityService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
