package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	ErrUserNotFoundWithEmail = errors.New("no user found for given email")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrGeneratingJwt         = errors.New("error generating jwt")
	ErrEmailAlreadyInUse     = errors.New("email is already in use")
	ErrUserDisabled          = errors.New("user account is disabled")
)

type LoginResult struct {
	UserId      uuid.UUID
	AccessToken string
}

type NewUserArgs struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// IdentityProvider abstracts how users are authenticated so that the
// services do not depend on a particular token or credential scheme.
type IdentityProvider interface {
	AuthMiddleware() chi.Middlewares

	LoginWithEmail(email, password string) (LoginResult, error)

	CreateUser(args NewUserArgs) (LoginResult, error)

	GetTokenExpiration(r *http.Request) (time.Time, error)
}

type requestContextKey string

const userRequestContextKey requestContextKey = "user"
