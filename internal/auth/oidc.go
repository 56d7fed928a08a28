package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/scaf-dev/scaf/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// OIDCAuthenticator verifies bearer ID tokens against an external
// identity provider's public keys. Callers may send either a provider
// ID token or a Scaf JWT obtained from the OAuth2 callback; either way
// the middleware resolves a local account and attaches a CurrentUser.
type OIDCAuthenticator struct {
	provider  *oidc.Provider
	config    *oauth2.Config
	verifier  *oidc.IDTokenVerifier
	db        *gorm.DB
	localAuth *LocalAuthenticator
}

// OIDCConfig holds OIDC configuration
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// NewOIDCAuthenticator discovers the provider and builds a verifier.
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig, db *gorm.DB, jwtSecret string) (*OIDCAuthenticator, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &OIDCAuthenticator{
		provider:  provider,
		config:    oauth2Config,
		verifier:  verifier,
		db:        db,
		localAuth: NewLocalAuthenticator(db, jwtSecret),
	}, nil
}

// AuthURL returns the URL to redirect users to for authentication
func (a *OIDCAuthenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// providerClaims are the ID-token claims Scaf consumes.
type providerClaims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// HandleCallback exchanges the OAuth2 code, verifies the ID token, and
// returns a Scaf JWT for the resolved local account.
func (a *OIDCAuthenticator) HandleCallback(ctx context.Context, code string) (*LoginResponse, error) {
	oauth2Token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	user, err := a.resolveUser(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	token, err := a.localAuth.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{Token: token, User: user}, nil
}

// resolveUser verifies a provider ID token and finds or creates the
// matching local account by subject.
func (a *OIDCAuthenticator) resolveUser(ctx context.Context, rawIDToken string) (*models.User, error) {
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims providerClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	var user models.User
	result := a.db.Where("subject = ?", claims.Sub).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
		if i := strings.IndexByte(username, '@'); i > 0 {
			username = username[:i]
		}
	}
	if username == "" {
		username = claims.Sub
	}

	user = models.User{
		Username:    username,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Subject:     claims.Sub,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("Created user from OIDC claims", "username", user.Username, "subject", claims.Sub)
	return &user, nil
}

// Middleware returns a Gin middleware enforcing a valid bearer token.
// A Scaf JWT is tried first; anything else is verified as a provider
// ID token against the remote key set.
func (a *OIDCAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		user, err := a.localAuth.validateAndLoadUser(tokenString)
		if err != nil {
			user, err = a.resolveUser(c.Request.Context(), tokenString)
		}
		if err != nil {
			slog.Warn("Invalid token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(UserContextKey, currentUserOf(user))
		c.Next()
	}
}
