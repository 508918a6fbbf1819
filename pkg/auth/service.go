package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// CookieName is the cookie browser clients carry the JWT in.
const CookieName = "bosun_jwt"

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingYachtID       = errors.New("missing yacht ID in token")
	ErrYachtIDMismatch      = errors.New("yacht ID mismatch between token and URL")
	ErrInvalidRole          = errors.New("missing or unknown role in token")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// ValidateRequest extracts and validates a JWT from the request.
	// It checks for the token in:
	//   1. Cookie named "bosun_jwt" (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	// Returns the validated claims, the raw token string, or an error.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// RequireYachtID validates that the claims carry a yacht ID and a known role.
	RequireYachtID(claims *Claims) error

	// ValidateYachtIDMatch ensures the URL yacht ID matches the token yacht ID.
	// If urlYachtID is empty, validation is skipped.
	ValidateYachtIDMatch(claims *Claims, urlYachtID string) error
}

type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client and logger.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	var tokenString string
	var tokenSource string

	if cookie, err := r.Cookie(CookieName); err == nil {
		tokenString = cookie.Value
		tokenSource = "cookie"
	} else {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.logger.Debug("No JWT found in request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))
			return nil, "", ErrMissingAuthorization
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return nil, "", ErrInvalidAuthFormat
		}
		tokenString = parts[1]
		tokenSource = "header"
	}

	claims, err := s.jwksClient.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return nil, "", err
	}

	return claims, tokenString, nil
}

func (s *authService) RequireYachtID(claims *Claims) error {
	if claims.YachtID == "" {
		return ErrMissingYachtID
	}
	if claims.Role == "" {
		return ErrInvalidRole
	}
	return nil
}

func (s *authService) ValidateYachtIDMatch(claims *Claims, urlYachtID string) error {
	if urlYachtID != "" && claims.YachtID != urlYachtID {
		s.logger.Warn("Yacht ID mismatch",
			zap.String("url_yacht_id", urlYachtID),
			zap.String("token_yacht_id", claims.YachtID))
		return ErrYachtIDMismatch
	}
	return nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)
