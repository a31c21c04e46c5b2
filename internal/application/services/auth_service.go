package services

import (
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues broadcaster tokens and validates inbound tokens.
// Viewer tokens come from the external identity collaborator and share
// the signing secret; we only validate those.
type AuthService struct {
	jwtSecret    string
	passwordHash string
	logger       *logging.ChanneledLogger
}

// NewAuthService builds an auth service from global configuration.
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		jwtSecret:    config.JWTSecret,
		passwordHash: config.BroadcasterPassHash,
		logger:       logger,
	}
}

// Login checks the broadcaster password against the configured bcrypt
// hash and issues a broadcaster-role token.
func (s *AuthService) Login(broadcasterID, password string) (string, error) {
	if s.passwordHash == "" {
		return "", domainerrors.NewVerification("broadcaster login not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		s.logger.Auth().Warn("Failed broadcaster login", "broadcasterId", broadcasterID)
		return "", domainerrors.NewVerification("invalid credentials")
	}

	token, err := security.GenerateToken(broadcasterID, security.RoleBroadcaster, s.jwtSecret, config.TokenLifetime)
	if err != nil {
		return "", err
	}
	s.logger.Auth().Info("Broadcaster logged in", "broadcasterId", broadcasterID)
	return token, nil
}

// Validate parses a token and returns its subject and role.
func (s *AuthService) Validate(token string) (subject, role string, err error) {
	claims, err := security.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		return "", "", domainerrors.NewVerification("invalid token")
	}
	subject, role = security.SubjectFromClaims(claims)
	if subject == "" || role == "" {
		return "", "", domainerrors.NewVerification("token missing subject or role")
	}
	return subject, role, nil
}
