package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims fable issues and accepts. The user ID
// lives in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies bearer tokens and attaches the caller's
// user ID to request contexts.
//
// With an empty secret the manager runs in dev mode: requests identify
// themselves with an X-User-ID header instead of a signed token.
type Manager struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates an auth manager. An empty secret enables dev mode.
func NewManager(secret string, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

// DevMode reports whether header-based identification is active.
func (m *Manager) DevMode() bool {
	return len(m.secret) == 0
}

// GenerateToken issues a signed token for the given user ID.
func (m *Manager) GenerateToken(userID string) (string, error) {
	if m.DevMode() {
		return "", fmt.Errorf("cannot issue tokens without an auth secret")
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns the user ID it identifies.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}

// userIDKey is the context key for the authenticated user ID.
type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext retrieves the authenticated user ID.
// Returns "" if the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// Middleware authenticates requests and rejects anonymous ones.
// Bearer tokens are verified against the secret; in dev mode the
// X-User-ID header is trusted instead.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.identify(r)
		if err != nil {
			m.logger.Debug("unauthenticated request",
				"path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, `{"error":%q}`, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Manager) identify(r *http.Request) (string, error) {
	if m.DevMode() {
		if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("missing X-User-ID header")
	}

	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", fmt.Errorf("missing bearer token")
	}
	return m.VerifyToken(tokenString)
}
