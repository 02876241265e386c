package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenBytes = 64

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// Identity is the subject an access token is minted for.
type Identity struct {
	UserID    string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

type Claims struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	GivenName   string   `json:"given_name"`
	FamilyName  string   `json:"family_name"`
	Roles       []string `json:"role,omitempty"`
	Permissions []string `json:"permission,omitempty"`
	jwtlib.RegisteredClaims
}

// ValidationOptions is built per call; nothing about validation is process wide.
type ValidationOptions struct {
	CheckExpiry bool
}

type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: signing secret is empty")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: access token ttl must be positive")
	}
	return &Service{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTTL,
		now:      time.Now,
	}, nil
}

// WithClock swaps the time source, mostly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) ExpiresInSeconds() int {
	return int(s.ttl / time.Second)
}

func (s *Service) IssueAccessToken(id Identity, roles, permissions []string) (string, error) {
	now := s.now()
	claims := Claims{
		Name:        id.Username,
		Email:       id.Email,
		GivenName:   id.FirstName,
		FamilyName:  id.LastName,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.UserID,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwtlib.ClaimStrings{s.audience}
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// IssueRefreshToken returns 64 random bytes, base64 encoded. Uniqueness is
// enforced by the ledger.
func (s *Service) IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Validate checks signature, algorithm, issuer and audience, and expiry when
// asked to. Any failure wraps ErrInvalidToken.
func (s *Service) Validate(tokenStr string, opts ValidationOptions) (*Claims, error) {
	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
	}
	if opts.CheckExpiry {
		parserOpts = append(parserOpts,
			jwtlib.WithExpirationRequired(),
			jwtlib.WithIssuer(s.issuer),
		)
		if s.audience != "" {
			parserOpts = append(parserOpts, jwtlib.WithAudience(s.audience))
		}
	} else {
		parserOpts = append(parserOpts, jwtlib.WithoutClaimsValidation())
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	// WithoutClaimsValidation skips issuer and audience too.
	if !opts.CheckExpiry {
		if claims.Issuer != s.issuer {
			return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
		}
		if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
			return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
		}
	}
	return claims, nil
}

// ExtractTokenID returns the jti of a correctly signed token, expired or not.
func (s *Service) ExtractTokenID(tokenStr string) (string, bool) {
	claims, err := s.Validate(tokenStr, ValidationOptions{CheckExpiry: false})
	if err != nil || claims.ID == "" {
		return "", false
	}
	return claims.ID, true
}
