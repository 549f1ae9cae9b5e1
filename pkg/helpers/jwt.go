package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a token with its purpose so a refresh token can never be
// presented where an access token is required (and vice versa).
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenEmail   TokenKind = "email"
)

var (
	ErrUnsupportedAlgorithm = errors.New("jwt: algorithm must be HS256 or HS512")
	ErrInvalidToken         = errors.New("jwt: invalid token")
	ErrExpiredToken         = errors.New("jwt: token expired")
	ErrWrongTokenKind       = errors.New("jwt: wrong token kind")
)

// JWTManager signs and verifies tokens with a process-wide secret.
// Now is overridable so expiry behavior can be tested with a fake clock.
type JWTManager struct {
	Secret     []byte
	Method     jwt.SigningMethod
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

var defaultManager *JWTManager

func NewJWTManager(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*JWTManager, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, ErrUnsupportedAlgorithm
	}
	m := &JWTManager{
		Secret:     []byte(secret),
		Method:     method,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
	}
	defaultManager = m
	return m, nil
}

// DefaultJWT returns the last constructed JWTManager (used for auto-wiring routes)
func DefaultJWT() *JWTManager { return defaultManager }

type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// CreateAccessToken mints a short-lived token for the given subject (email).
func (m *JWTManager) CreateAccessToken(subject string) (string, time.Time, error) {
	return m.create(subject, TokenAccess, m.AccessTTL)
}

// CreateRefreshToken mints a long-lived token used solely to obtain new pairs.
func (m *JWTManager) CreateRefreshToken(subject string) (string, time.Time, error) {
	return m.create(subject, TokenRefresh, m.RefreshTTL)
}

// CreateEmailToken mints a confirmation token with no expiry.
func (m *JWTManager) CreateEmailToken(subject string) (string, error) {
	now := m.Now()
	claims := &Claims{
		Kind: string(TokenEmail),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(m.Method, claims).SignedString(m.Secret)
}

func (m *JWTManager) create(subject string, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := m.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(m.Method, claims).SignedString(m.Secret)
	return s, exp, err
}

// Decode verifies signature and expiry and checks the kind tag, returning the
// subject. Callers rely on the distinct errors for HTTP status mapping.
func (m *JWTManager) Decode(tokenStr string, expected TokenKind) (string, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !tkn.Valid {
		return "", ErrInvalidToken
	}
	if claims.Kind != string(expected) {
		return "", ErrWrongTokenKind
	}
	return claims.Subject, nil
}
