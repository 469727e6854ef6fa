package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// DevUserID is the user of unauthenticated requests when no secret is configured
const DevUserID = "anonymous"

// Authenticator resolves the user of an HTTP request. Without a JWT service
// every request is accepted as the user named by the X-User-ID header.
type Authenticator struct {
	jwt *JWTService
}

// NewAuthenticator creates an authenticator; jwt may be nil in development
func NewAuthenticator(jwt *JWTService) *Authenticator {
	return &Authenticator{jwt: jwt}
}

// Enabled reports whether tokens are checked
func (a *Authenticator) Enabled() bool {
	return a.jwt != nil
}

// Authenticate validates the request token and returns its user
func (a *Authenticator) Authenticate(r *http.Request) (*UserContext, error) {
	if a.jwt == nil {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = DevUserID
		}
		return &UserContext{UserID: userID}, nil
	}

	token := ExtractToken(r)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &UserContext{UserID: claims.UserID, Roles: claims.Roles}, nil
}

// ExtractToken reads the token from the Authorization header, the auth_token
// cookie or the token query parameter, in that order. Browsers cannot set
// headers on websocket upgrades, hence the fallbacks.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return header
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}
