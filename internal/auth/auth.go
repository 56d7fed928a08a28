package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaf-dev/scaf/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// UserContextKey is the key used to store the current user in Gin context
const UserContextKey = "current_user"

// CurrentUser is the authenticated caller, produced once by the auth
// boundary and passed explicitly into operations that need it. Handlers
// and services never reach into raw provider claims.
type CurrentUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// LoginRequest represents a login request (local mode)
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Authenticator is an interface for authentication providers
type Authenticator interface {
	// Middleware returns a Gin middleware that rejects unauthenticated
	// requests with 401 and stores a CurrentUser in the context.
	Middleware() gin.HandlerFunc
}

// FromContext extracts the authenticated user from the Gin context.
func FromContext(c *gin.Context) (CurrentUser, bool) {
	v, exists := c.Get(UserContextKey)
	if !exists {
		return CurrentUser{}, false
	}
	user, ok := v.(CurrentUser)
	return user, ok
}

// currentUserOf builds the boundary value from a stored account.
func currentUserOf(u *models.User) CurrentUser {
	return CurrentUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
