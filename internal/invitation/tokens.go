// Package invitation issues and validates the signed links attendees use to
// accept or decline a meeting without signing in.
//
// Tokens are HS256 JWTs. The signing key is derived from the server secret
// with HKDF-SHA256 so the raw secret never signs anything directly.
package invitation

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrMalformed is returned when a token cannot be decoded or lacks required claims.
	ErrMalformed = errors.New("invitation: malformed token")
	// ErrExpired is returned when a token is past its expiry.
	ErrExpired = errors.New("invitation: token expired")
	// ErrSignatureMismatch is returned when a token was not signed by this service.
	ErrSignatureMismatch = errors.New("invitation: signature mismatch")
)

const (
	// DefaultTTL bounds how long a link stays valid when the meeting is far off.
	DefaultTTL    = 7 * 24 * time.Hour
	DefaultIssuer = "room-booking"

	keyInfo = "room-booking invitation signing key v1"
)

// Config configures a Service.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the validated content of an invitation token.
type Claims struct {
	TokenID   string
	MeetingID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	MeetingID string `json:"mid"`
	jwt.RegisteredClaims
}

// Service signs and verifies invitation tokens. It is safe for concurrent use.
type Service struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	parser *jwt.Parser
}

// NewService derives the signing key from cfg.Secret.
func NewService(cfg Config, now func() time.Time) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("invitation: secret is required")
	}
	if now == nil {
		now = time.Now
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cfg.Secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("invitation: derive signing key: %w", err)
	}

	return &Service{
		key:    key,
		issuer: issuer,
		ttl:    ttl,
		now:    now,
		newID:  uuid.NewString,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(now),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(issuer),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// ExpiryFor returns the expiry for a link to a meeting ending at meetingEnd:
// the configured TTL from now, but never past the meeting end.
func (s *Service) ExpiryFor(meetingEnd time.Time) time.Time {
	expiry := s.now().Add(s.ttl)
	if !meetingEnd.IsZero() && meetingEnd.Before(expiry) {
		return meetingEnd
	}
	return expiry
}

// Issue signs a token binding meetingID and email until expiresAt.
func (s *Service) Issue(meetingID, email string, expiresAt time.Time) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if meetingID == "" || email == "" {
		return "", fmt.Errorf("%w: meeting id and email are required", ErrMalformed)
	}

	now := s.now()
	if !expiresAt.After(now) {
		return "", fmt.Errorf("%w: expiry %s is not after issue time", ErrExpired, expiresAt.Format(time.RFC3339))
	}

	claims := tokenClaims{
		MeetingID: meetingID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.newID(),
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("invitation: sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry and returns the bound claims.
func (s *Service) Validate(token string) (Claims, error) {
	var claims tokenClaims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if claims.MeetingID == "" || claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing meeting or attendee", ErrMalformed)
	}

	out := Claims{
		TokenID:   claims.ID,
		MeetingID: claims.MeetingID,
		Email:     claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
