package handler

import (
	"context"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/service"
)

// AuthService defines the session lifecycle operations served over gRPC.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (model.Principal, error)
	Login(ctx context.Context, email, password string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	VerifyEmail(ctx context.Context, verificationToken string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

var _ AuthServer = (*Auth)(nil)

// Auth handles gRPC endpoints for authentication.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register creates a principal and sends the verification email.
func (h *Auth) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	password := stringField(req, "password")
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}

	principal, err := h.authService.Register(ctx, service.RegisterParams{
		Email:    email,
		Password: password,
		ClientIP: clientIP(ctx),
	})
	if err != nil {
		h.logger.Info("Auth handler: registration failed",
			"email", email,
			"error", err.Error())
		return nil, ToStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"id":       principal.ID.String(),
		"email":    principal.Email,
		"verified": principal.Verified,
	})
}

// Login exchanges credentials for a token pair.
func (h *Auth) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	password := stringField(req, "password")
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}

	pair, err := h.authService.Login(ctx, email, password)
	if err != nil {
		return nil, ToStatus(err)
	}

	return tokenPair(pair)
}

// Refresh rotates the refresh token.
func (h *Auth) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refreshToken := stringField(req, "refresh_token")
	if refreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}

	pair, err := h.authService.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, RefreshStatus(err)
	}

	return tokenPair(pair)
}

// Logout revokes the bearer access token and the refresh token in the body.
func (h *Auth) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accessToken, _ := auth.AuthFromMD(ctx, "bearer")

	if err := h.authService.Logout(ctx, accessToken, stringField(req, "refresh_token")); err != nil {
		h.logger.Error("Auth handler: logout failed",
			"error", err.Error())
		return nil, ToStatus(err)
	}

	return &structpb.Struct{}, nil
}

// VerifyEmail consumes a verification token.
func (h *Auth) VerifyEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	verificationToken := stringField(req, "token")
	if verificationToken == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	if err := h.authService.VerifyEmail(ctx, verificationToken); err != nil {
		return nil, ToStatus(err)
	}

	return &structpb.Struct{}, nil
}

// ResendVerification sends a new verification link.
func (h *Auth) ResendVerification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}

	if err := h.authService.ResendVerification(ctx, email); err != nil {
		return nil, ToStatus(err)
	}

	return &structpb.Struct{}, nil
}

// ForgotPassword sends a reset link. The reply does not tell whether the
// email is registered.
func (h *Auth) ForgotPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}

	if err := h.authService.RequestPasswordReset(ctx, email); err != nil {
		return nil, ToStatus(err)
	}

	return &structpb.Struct{}, nil
}

// ResetPassword sets a new password with a reset token.
func (h *Auth) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resetToken := stringField(req, "token")
	newPassword := stringField(req, "new_password")
	if resetToken == "" || newPassword == "" {
		return nil, status.Error(codes.InvalidArgument, "token and new_password are required")
	}

	if err := h.authService.ResetPassword(ctx, resetToken, newPassword); err != nil {
		return nil, ToStatus(err)
	}

	return &structpb.Struct{}, nil
}

// Me returns the identity of the authenticated caller.
func (h *Auth) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := h.contextManager.GetIdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
	}

	return structpb.NewStruct(map[string]any{
		"subject": identity.Subject,
		"role":    string(identity.Role),
	})
}

func tokenPair(pair model.TokenPair) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresInMillis,
	})
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
