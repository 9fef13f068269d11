package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/socialchef/scribe/internal/config"
)

type contextKey string

const AdminIDKey contextKey = "adminID"

// AdminAuthMiddleware accepts HS256 tokens signed with ADMIN_JWT_SECRET whose
// subject is the configured admin id and whose issuer is the service name.
func AdminAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	expectedSub := strconv.FormatInt(cfg.AdminID, 10)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Unauthorized: Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.AdminJWTSecret), nil
			}, jwt.WithIssuer(cfg.ServiceName), jwt.WithExpirationRequired())

			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub != expectedSub {
				http.Error(w, "Forbidden: Not the admin", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), AdminIDKey, cfg.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminID extracts the authenticated admin id from request context
func GetAdminID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(AdminIDKey).(int64)
	return id, ok
}
