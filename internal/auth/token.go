package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

const tokenIssuer = "proctored-quiz-service"

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller
type Principal struct {
	Subject string          `json:"subject"`
	Email   string          `json:"email"`
	Role    models.UserRole `json:"role"`
}

// Verifier turns a bearer token into a principal
type Verifier interface {
	Verify(token string) (*Principal, error)
}

type Claims struct {
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for subject and returns it with its expiry
func (m *TokenManager) Issue(subject string, role models.UserRole) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		Email: subject,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (m *TokenManager) Verify(tokenStr string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch claims.Role {
	case models.RoleStudent, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &Principal{Subject: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

type chain []Verifier

// Chain tries each verifier in order and returns the first success
func Chain(verifiers ...Verifier) Verifier {
	var c chain
	for _, v := range verifiers {
		if v != nil {
			c = append(c, v)
		}
	}
	return c
}

func (c chain) Verify(token string) (*Principal, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		p, err := v.Verify(token)
		if err == nil {
			return p, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrInvalidToken
	}
	return nil, errors.Join(errs...)
}
