package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthConfig controls the JWT unary interceptor. Grounded on the
// teacher's pkg/api/rest/middleware.AuthConfig, adapted from an HTTP
// Authorization header to gRPC request metadata.
type AuthConfig struct {
	JWTSecret     string
	Enabled       bool
	PublicMethods map[string]bool
	AdminMethods  map[string]bool
	RequireAdmin  bool
}

// Claims mirrors the teacher's middleware.Claims, embedding the standard
// registered claim set.
type Claims struct {
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	Namespace string   `json:"namespace"`
	jwt.RegisteredClaims
}

type claimsContextKey struct{}

// ClaimsFromContext returns the Claims attached by UnaryAuthInterceptor,
// if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// UnaryAuthInterceptor validates a Bearer token carried in the
// "authorization" metadata key, rejecting the call with Unauthenticated
// or PermissionDenied on failure. Methods are identified by their bare
// name (e.g. "Build"), not the fully qualified "/service/method" form.
func UnaryAuthInterceptor(cfg AuthConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !cfg.Enabled {
			return handler(ctx, req)
		}

		method := methodName(info.FullMethod)
		if cfg.PublicMethods[method] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing request metadata")
		}
		tokens := md.Get("authorization")
		if len(tokens) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization token")
		}

		raw := strings.TrimPrefix(tokens[0], "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		if cfg.RequireAdmin && cfg.AdminMethods[method] && !hasRole(claims, "admin") {
			return nil, status.Error(codes.PermissionDenied, "admin role required")
		}

		return handler(context.WithValue(ctx, claimsContextKey{}, claims), req)
	}
}

func methodName(fullMethod string) string {
	idx := strings.LastIndex(fullMethod, "/")
	if idx < 0 {
		return fullMethod
	}
	return fullMethod[idx+1:]
}

func hasRole(claims *Claims, role string) bool {
	for _, r := range claims.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GenerateToken mints a signed token for claims, useful for tests and
// local development tooling.
func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
