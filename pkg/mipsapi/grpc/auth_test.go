package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func unaryInfo(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: "/mipsindex.VectorIndexService/" + method}
}

func echoHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return ctx, nil
}

func TestAuthInterceptorRejectsMissingToken(t *testing.T) {
	interceptor := UnaryAuthInterceptor(AuthConfig{Enabled: true, JWTSecret: "secret"})
	_, err := interceptor(context.Background(), nil, unaryInfo("Search"), echoHandler)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestAuthInterceptorAllowsPublicMethod(t *testing.T) {
	interceptor := UnaryAuthInterceptor(AuthConfig{
		Enabled:       true,
		JWTSecret:     "secret",
		PublicMethods: map[string]bool{"Search": true},
	})
	_, err := interceptor(context.Background(), nil, unaryInfo("Search"), echoHandler)
	if err != nil {
		t.Fatalf("expected public method to bypass auth, got %v", err)
	}
}

func TestAuthInterceptorAcceptsValidToken(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Roles: []string{"user"}}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	interceptor := UnaryAuthInterceptor(AuthConfig{Enabled: true, JWTSecret: "secret"})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	result, err := interceptor(ctx, nil, unaryInfo("Build"), echoHandler)
	if err != nil {
		t.Fatalf("expected valid token to be accepted, got %v", err)
	}

	resultCtx := result.(context.Context)
	claims, ok := ClaimsFromContext(resultCtx)
	if !ok {
		t.Fatal("expected claims to be attached to context")
	}
	if claims.UserID != "u1" {
		t.Fatalf("UserID = %q, want u1", claims.UserID)
	}
}

func TestAuthInterceptorRejectsAdminMethodWithoutRole(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Roles: []string{"user"}}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	interceptor := UnaryAuthInterceptor(AuthConfig{
		Enabled:      true,
		JWTSecret:    "secret",
		RequireAdmin: true,
		AdminMethods: map[string]bool{"Reset": true},
	})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	_, err = interceptor(ctx, nil, unaryInfo("Reset"), echoHandler)
	if err == nil {
		t.Fatal("expected permission denied for non-admin on admin method")
	}
}

func TestAuthInterceptorRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	interceptor := UnaryAuthInterceptor(AuthConfig{Enabled: true, JWTSecret: "other-secret"})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	_, err = interceptor(ctx, nil, unaryInfo("Build"), echoHandler)
	if err == nil {
		t.Fatal("expected rejection for token signed with a different secret")
	}
}
