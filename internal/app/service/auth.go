package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/shortlink/internal/errx"
)

//go:generate mockgen -destination=../../mocks/auth.go -package=mocks github.com/atinyakov/shortlink/internal/app/service AuthIface

// AuthIface is what the HTTP and gRPC layers need to log users in and to
// check bearer tokens.
type AuthIface interface {
	Authenticate(username, password string) (string, error)
	ParseRawJWT(tokenString string) (*Claims, error)
	TokenTTL() time.Duration
}

// Claims are the claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	// User is the name of the authenticated user.
	User string `json:"user"`
}

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = time.Hour

var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRepository checks user credentials.
type UserRepository interface {
	ValidateUser(username, password string) bool
}

// InMemoryUsers keeps bcrypt password hashes in a map.
type InMemoryUsers struct {
	mu    sync.RWMutex
	users map[string][]byte
}

func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{
		users: make(map[string][]byte),
	}
}

// Add registers username, replacing any previous password.
func (u *InMemoryUsers) Add(username, password string) error {
	if username == "" {
		return errors.New("username must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[username] = hash

	return nil
}

func (u *InMemoryUsers) ValidateUser(username, password string) bool {
	u.mu.RLock()
	hash, ok := u.users[username]
	u.mu.RUnlock()

	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Auth issues and verifies HS256 signed access tokens.
type Auth struct {
	users  UserRepository
	secret []byte
	ttl    time.Duration
}

func NewAuth(users UserRepository, secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Auth{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (a *Auth) TokenTTL() time.Duration {
	return a.ttl
}

// Authenticate checks the credentials and returns a signed token for username.
func (a *Auth) Authenticate(username, password string) (string, error) {
	const op = "service.Authenticate"

	if !a.users.ValidateUser(username, password) {
		return "", errx.E(op, errx.Unauthorized, ErrInvalidCredentials)
	}

	token, err := a.BuildJWTString(username)
	if err != nil {
		return "", errx.E(op, errx.Internal, err)
	}
	return token, nil
}

// BuildJWTString signs a token for user that expires after the configured TTL.
func (a *Auth) BuildJWTString(user string) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		User: user,
	})

	return token.SignedString(a.secret)
}

// ParseRawJWT verifies tokenString and returns its claims.
func (a *Auth) ParseRawJWT(tokenString string) (*Claims, error) {
	const op = "service.ParseRawJWT"

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, errx.E(op, errx.Unauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.User == "" {
		return nil, errx.E(op, errx.Unauthorized, errors.New("invalid token or claims"))
	}

	return claims, nil
}
