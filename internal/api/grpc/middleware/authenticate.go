package middleware

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/model"
)

// IdentityResolver resolves the identity behind an access token.
type IdentityResolver interface {
	Authenticate(ctx context.Context, accessToken string) (model.Identity, error)
}

// Authenticate validates bearer tokens and injects the identity into context.
type Authenticate struct {
	resolver       IdentityResolver
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(resolver IdentityResolver, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{resolver: resolver, contextManager: contextManager, logger: logger}
}

// AuthFunc reads the bearer token, resolves it and returns a context carrying
// the identity. It is meant for auth.UnaryServerInterceptor.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	tokenString, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, err
	}

	identity, err := m.resolver.Authenticate(ctx, tokenString)
	if err != nil {
		if model.IsTokenError(err) {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		m.logger.Error("Authenticate middleware: identity lookup failed",
			"error", err.Error())
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return m.contextManager.SetIdentityToContext(ctx, identity), nil
}
