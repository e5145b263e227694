package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ErrCredentialNotFound is returned by a CredentialStore when no user has the email.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrInvalidCredentials is the one answer for both unknown email and wrong password.
var ErrInvalidCredentials = &apperr.Error{
	Kind:    apperr.KindUnauthorized,
	Message: "email or password incorrect",
}

// Credential is the stored login record of a user.
type Credential struct {
	ID           int
	Email        string
	Name         string
	Role         Role
	PasswordHash string
}

type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (*Credential, error)
}

type Service struct {
	credentials CredentialStore
	tokens      *TokenManager
	revoker     Revoker

	dummyHashOnce sync.Once
	dummyHash     string
}

// NewService creates the session service. revoker may be nil, in which case
// logout only clears the cookie.
func NewService(credentials CredentialStore, tokens *TokenManager, revoker Revoker) *Service {
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		revoker:     revoker,
	}
}

func (s *Service) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

// Login checks the password and mints a session token.
func (s *Service) Login(ctx context.Context, email, password string) (_ *Identity, _ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", apperr.Validation("Email and password are required")
	}

	cred, err := s.credentials.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			// same bcrypt cost as a real comparison
			pkg.CheckPasswordHash(password, s.getDummyHash())
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", apperr.Internal(err)
	}

	if !pkg.CheckPasswordHash(password, cred.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	identity := Identity{
		ID:    cred.ID,
		Email: cred.Email,
		Name:  cred.Name,
		Role:  cred.Role,
	}
	token, _, err := s.tokens.Mint(identity)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	span.SetAttributes(attribute.Int("user.id", identity.ID))
	return &identity, token, nil
}

// Logout revokes token if it is still valid. It never fails: problems are
// only logged and the caller clears the cookie either way.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" || s.revoker == nil {
		return
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		log.Debugf("logout with unusable token: %s", err)
		return
	}
	if claims.ExpiresAt == nil || claims.RegisteredClaims.ID == "" {
		return
	}

	if err := s.revoker.Revoke(ctx, claims.RegisteredClaims.ID, claims.ExpiresAt.Time); err != nil {
		log.Errorf("revoke token for user %d: %s", claims.UserID, err)
	}
}

// CurrentUser resolves the identity in token. Any failure means anonymous.
func (s *Service) CurrentUser(ctx context.Context, token string) *Identity {
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		log.Tracef("current user: rejected token: %s", err)
		return nil
	}

	if s.revoker != nil && claims.RegisteredClaims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.RegisteredClaims.ID)
		if err != nil {
			log.Errorf("current user: check revocation: %s", err)
			return nil
		}
		if revoked {
			log.Tracef("current user: token of user %d revoked", claims.UserID)
			return nil
		}
	}

	return claims.Identity()
}

func (s *Service) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		hash, err := pkg.HashPassword("not-a-real-password")
		if err != nil {
			log.Errorf("generate dummy password hash: %s", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
