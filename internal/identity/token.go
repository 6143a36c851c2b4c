// Package identity decodes session tokens for display and manages the viewer
// session. Nothing here verifies a signature: claims read by this package
// must never be used for authorization decisions, which stay with the backend.
package identity

import (
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the display claims found in a session token
type Claims struct {
	Subject  string         `json:"sub,omitempty"`
	Username string         `json:"username,omitempty"`
	Raw      map[string]any `json:"-"`
}

// Empty reports whether no claims were decoded
func (c Claims) Empty() bool {
	return c.Subject == "" && c.Username == "" && len(c.Raw) == 0
}

// TokenSource yields the stored session token, or "" when there is none
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource backed by a fixed string
type StaticToken string

// Token returns the string itself
func (t StaticToken) Token() string {
	return string(t)
}

// Reader decodes tokens without verifying them
type Reader struct {
	parser *jwt.Parser
	logger *slog.Logger
}

// NewReader creates a token reader
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// Read returns the claims of the token held by src. A nil source, an absent
// token or a malformed token all yield empty claims; failures are logged.
func (r *Reader) Read(src TokenSource) Claims {
	if src == nil {
		return Claims{}
	}
	return r.Decode(src.Token())
}

// Decode returns the claims of a raw token string, or empty claims
func (r *Reader) Decode(token string) Claims {
	if token == "" {
		return Claims{}
	}

	claims, err := r.decode(token)
	if err != nil {
		r.logger.Error("invalid session token", "error", err)
		return Claims{}
	}
	return claims
}

func (r *Reader) decode(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := r.parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("failed to decode token: %w", err)
	}

	claims := Claims{Raw: map[string]any(mc)}
	claims.Subject = claimString(mc["sub"])
	if claims.Subject == "" {
		claims.Subject = claimString(mc["id"])
	}
	claims.Username = claimString(mc["username"])
	return claims, nil
}

// claimString renders string and numeric claims; jwt decodes numbers as float64
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
