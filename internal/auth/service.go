// Package auth gates the editing API behind a shared access key. A
// client exchanges the key for a short-lived JWT; the token then
// authorizes both the HTTP API and the websocket upgrade. There are no
// user accounts: a diagram workspace is shared by everyone holding the
// key, and tokens only distinguish sessions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

type Service struct {
	jwtSecret []byte

	// accessKeyHash is the bcrypt hash of the shared key. Empty means
	// open access, for local development.
	accessKeyHash string
}

func NewService(jwtSecret, accessKeyHash string) *Service {
	return &Service{
		jwtSecret:     []byte(jwtSecret),
		accessKeyHash: accessKeyHash,
	}
}

type AuthResult struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

// Authenticate checks the shared access key and issues a session token.
func (s *Service) Authenticate(accessKey string) (*AuthResult, error) {
	if s.accessKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.accessKeyHash), []byte(accessKey)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	sessionID := "sess-" + uuid.New().String()[:8]
	token, err := s.issueToken(sessionID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, SessionID: sessionID}, nil
}

// ValidateToken parses and verifies a session token, returning the
// session id it was issued to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	sessionID, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid token subject")
	}
	return sessionID, nil
}

func (s *Service) issueToken(sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
