package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/geotutor/geotutor/backend-go/internal/typeid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("token does not grant this action")
)

// Role is what a token holder may do in a session.
type Role string

const (
	// RoleDriver may move points and reveal wedges.
	RoleDriver Role = "driver"
	// RoleViewer only watches.
	RoleViewer Role = "viewer"
)

func (r Role) valid() bool {
	return r == RoleDriver || r == RoleViewer
}

// Claims identify one participant of one session.
type Claims struct {
	SessionID string `json:"sid"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// ParticipantID is the stable id of the token holder.
func (c *Claims) ParticipantID() string {
	return c.Subject
}

type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewService(jwtSecret string, ttl time.Duration) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// IssueToken signs a token for a new participant of sessionID.
func (s *Service) IssueToken(sessionID string, role Role) (string, error) {
	return s.issue(sessionID, role, typeid.NewClientID())
}

// Refresh re-signs claims with a fresh expiry, keeping the participant id.
func (s *Service) Refresh(c *Claims) (string, error) {
	return s.issue(c.SessionID, c.Role, c.Subject)
}

func (s *Service) issue(sessionID string, role Role, subject string) (string, error) {
	if !role.valid() {
		return "", fmt.Errorf("%q: %w", role, ErrInvalidRole)
	}

	now := s.now()
	claims := Claims{
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.SessionID == "" || !claims.Role.valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Authorize checks that claims grant role in sessionID. Drivers may do
// everything viewers may.
func Authorize(c *Claims, sessionID string, role Role) error {
	if c == nil || c.SessionID != sessionID {
		return fmt.Errorf("session %s: %w", sessionID, ErrForbidden)
	}
	if role == RoleDriver && c.Role != RoleDriver {
		return fmt.Errorf("%s token in session %s: %w", c.Role, sessionID, ErrForbidden)
	}
	return nil
}
