package cloud

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
)

// Session is what the service needs from an access token. The token is
// verified by the storage backend; only its claims are read here.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// ParseSession reads the subject and expiry of a bearer token.
func ParseSession(token string, now time.Time) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperror.New(apperror.KindInvalid, "access token is required")
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, apperror.Wrap(err, apperror.KindInvalid, "malformed access token")
	}
	if claims.Subject == "" {
		return Session{}, apperror.New(apperror.KindInvalid, "access token has no subject")
	}

	s := Session{Token: token, UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
		if !s.ExpiresAt.After(now) {
			return Session{}, apperror.New(apperror.KindInvalid, "access token expired")
		}
	}
	return s, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
