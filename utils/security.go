package utils

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskr/models"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// LoginRequest carries the submitted credentials and the client details
// recorded on the session.
type LoginRequest struct {
	Name      string
	Password  string
	UserAgent string
	IPAddress string
}

// Authorize checks a submitted CSRF token against the session's token.
func Authorize(session *models.Session, csrfToken string) error {
	if session == nil {
		return ErrSessionNotFound
	}
	if csrfToken == "" || session.CSRFToken == "" ||
		subtle.ConstantTimeCompare([]byte(csrfToken), []byte(session.CSRFToken)) != 1 {
		return ErrInvalidCSRF
	}
	return nil
}

// RegisterUser validates the register form and creates the user.
func RegisterUser(ctx context.Context, users UserStore, name, email, password, confirm string) (*models.User, error) {
	if err := ValidateRegistration(name, email, password, confirm); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	exists, err := users.UserExists(ctx, name, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u := models.User{Name: name, Email: email, PasswordHash: passwordHash}
	u.ID, err = users.InsertUser(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Printf("registered user %d (%s)", u.ID, u.Name)
	return &u, nil
}

// LoginUser checks the credentials and opens a session valid for ttl.
func LoginUser(ctx context.Context, users UserStore, sessions SessionStore, req LoginRequest, ttl time.Duration) (*models.Session, error) {
	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := users.GetUserByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Printf("User lookup failed for %q", req.Name)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPasswordHash(req.Password, u.PasswordHash) {
		log.Printf("Password verification failed for user: %s", u.Name)
		return nil, ErrInvalidCredentials
	}

	sessionToken, err := GenerateToken(32)
	if err != nil {
		return nil, err
	}
	csrfToken, err := GenerateToken(32)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := models.Session{
		SessionToken: sessionToken,
		UserID:       u.ID,
		UserName:     u.Name,
		CreatedAt:    now.Format(time.RFC3339),
		ExpiresAt:    now.Add(ttl).Format(time.RFC3339),
		LastActivity: now.Format(time.RFC3339),
		CSRFToken:    csrfToken,
		UserAgent:    req.UserAgent,
		IPAddress:    req.IPAddress,
	}
	if err := sessions.StoreSession(ctx, session, ttl); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	log.Printf("Login successful for user: %s", u.Name)
	return &session, nil
}

// LogoutUser ends the session behind sessionToken. It reports whether a
// session existed; logging out twice is not an error.
func LogoutUser(ctx context.Context, sessions SessionStore, sessionToken string) (bool, error) {
	if sessionToken == "" {
		return false, nil
	}
	err := sessions.DeleteSession(ctx, sessionToken)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}
