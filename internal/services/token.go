package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"routelynk/internal/config"
	"routelynk/internal/logger"
	"routelynk/internal/models"
	"routelynk/internal/storage"
)

var (
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	ErrInvalidToken     = errors.New("invalid access token")
)

// Audience expected on identity-provider assertions.
const assertionAudience = "routelynk"

// TokenService exchanges identity-provider assertions for RouteLynk access
// tokens and verifies those tokens on inbound requests. Tokens are only
// minted against a verified assertion; there is no self-service mint for an
// arbitrary email.
type TokenService struct {
	store storage.Store
	cfg   config.AuthConfig
	log   *logger.Logger
}

func NewTokenService(store storage.Store, cfg config.AuthConfig, log *logger.Logger) *TokenService {
	return &TokenService{store: store, cfg: cfg, log: log}
}

// Exchange verifies an assertion signed by the external identity provider,
// upserts the user record (first login creates it with the user role), and
// issues an access token.
func (s *TokenService) Exchange(assertion string) (string, *models.User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.IdPSecret), nil
	}, jwt.WithIssuer(s.cfg.IdPIssuer), jwt.WithAudience(assertionAudience), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		s.log.LogSecurity("ASSERTION_REJECTED", fmt.Sprintf("Identity assertion rejected: %v", err))
		return "", nil, ErrInvalidAssertion
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", nil, ErrInvalidAssertion
	}
	name, _ := claims["name"].(string)
	image, _ := claims["picture"].(string)

	now := time.Now()
	user, err := s.store.UpsertUser(&models.User{
		Email:     email,
		Name:      name,
		Image:     image,
		Role:      models.RoleUser,
		Status:    models.AccountActive,
		CreatedAt: now,
		LastLogin: now,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	accessToken, err := s.issue(email)
	if err != nil {
		return "", nil, err
	}

	s.log.LogSecurity("TOKEN_ISSUED", fmt.Sprintf("Access token issued for %s", email))
	return accessToken, user, nil
}

func (s *TokenService) issue(email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.TokenTTL).Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.SigningSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the caller's email.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SigningSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}
