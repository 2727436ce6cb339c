package handler

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcctx "github.com/dtroode/sessionguard/internal/api/grpc/context"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/service"
	"github.com/dtroode/sessionguard/internal/testutil"
)

type authServiceMock struct {
	mock.Mock
}

func (m *authServiceMock) Register(ctx context.Context, params service.RegisterParams) (model.Principal, error) {
	ret := m.Called(ctx, params)
	return ret.Get(0).(model.Principal), ret.Error(1)
}

func (m *authServiceMock) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	ret := m.Called(ctx, email, password)
	return ret.Get(0).(model.TokenPair), ret.Error(1)
}

func (m *authServiceMock) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	ret := m.Called(ctx, refreshToken)
	return ret.Get(0).(model.TokenPair), ret.Error(1)
}

func (m *authServiceMock) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return m.Called(ctx, accessToken, refreshToken).Error(0)
}

func (m *authServiceMock) VerifyEmail(ctx context.Context, verificationToken string) error {
	return m.Called(ctx, verificationToken).Error(0)
}

func (m *authServiceMock) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *authServiceMock) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *authServiceMock) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.Called(ctx, resetToken, newPassword).Error(0)
}

func newHandler(svc *authServiceMock) *Auth {
	return NewAuth(svc, grpcctx.NewManager(), testutil.MakeNoopLogger())
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestAuth_Login(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("Login", mock.Anything, "a@b.c", "pw").Return(model.TokenPair{
		AccessToken:     "access",
		RefreshToken:    "refresh",
		TokenType:       "Bearer",
		ExpiresInMillis: 900000,
	}, nil)

	resp, err := newHandler(svc).Login(context.Background(), mustStruct(t, map[string]any{"email": "a@b.c", "password": "pw"}))
	require.NoError(t, err)

	fields := resp.AsMap()
	assert.Equal(t, "access", fields["access_token"])
	assert.Equal(t, "refresh", fields["refresh_token"])
	assert.Equal(t, "Bearer", fields["token_type"])
	assert.Equal(t, float64(900000), fields["expires_in"])
}

func TestAuth_Login_Errors(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("Login", mock.Anything, "a@b.c", "pw").Return(model.TokenPair{}, model.ErrRateLimitExceeded)
	h := newHandler(svc)

	_, err := h.Login(context.Background(), mustStruct(t, map[string]any{"email": "a@b.c"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.Login(context.Background(), mustStruct(t, map[string]any{"email": "a@b.c", "password": "pw"}))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestAuth_Register_PassesClientIP(t *testing.T) {
	svc := &authServiceMock{}
	id := uuid.New()
	svc.On("Register", mock.Anything, service.RegisterParams{Email: "a@b.c", Password: "pw", ClientIP: "192.0.2.7"}).
		Return(model.Principal{ID: id, Email: "a@b.c"}, nil)

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 41000}})
	resp, err := newHandler(svc).Register(ctx, mustStruct(t, map[string]any{"email": "a@b.c", "password": "pw"}))
	require.NoError(t, err)
	assert.Equal(t, id.String(), resp.AsMap()["id"])
	assert.Equal(t, false, resp.AsMap()["verified"])
	svc.AssertExpectations(t)
}

func TestAuth_Refresh(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("Refresh", mock.Anything, "stolen").Return(model.TokenPair{}, model.ErrTokenNotFound)
	h := newHandler(svc)

	_, err := h.Refresh(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.Refresh(context.Background(), mustStruct(t, map[string]any{"refresh_token": "stolen"}))
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, msgInvalidToken, st.Message())
}

func TestAuth_Refresh_HidesPrincipalState(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("Refresh", mock.Anything, "disabled").Return(model.TokenPair{}, model.ErrUserInactive)
	svc.On("Refresh", mock.Anything, "unverified").Return(model.TokenPair{}, model.ErrUserNotVerified)
	h := newHandler(svc)

	for _, refreshToken := range []string{"disabled", "unverified"} {
		_, err := h.Refresh(context.Background(), mustStruct(t, map[string]any{"refresh_token": refreshToken}))
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unauthenticated, st.Code(), refreshToken)
		assert.Equal(t, msgInvalidToken, st.Message(), refreshToken)
	}
}

func TestAuth_Logout_ReadsBearerToken(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("Logout", mock.Anything, "access", "refresh").Return(nil)
	svc.On("Logout", mock.Anything, "", "").Return(errors.New("db down"))
	h := newHandler(svc)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer access"))
	_, err := h.Logout(ctx, mustStruct(t, map[string]any{"refresh_token": "refresh"}))
	require.NoError(t, err)

	_, err = h.Logout(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Internal, status.Code(err))
	svc.AssertExpectations(t)
}

func TestAuth_ActionTokenEndpoints(t *testing.T) {
	svc := &authServiceMock{}
	svc.On("VerifyEmail", mock.Anything, "v-token").Return(model.ErrExpiredToken)
	svc.On("ResendVerification", mock.Anything, "a@b.c").Return(nil)
	svc.On("RequestPasswordReset", mock.Anything, "a@b.c").Return(nil)
	svc.On("ResetPassword", mock.Anything, "r-token", "new").Return(nil)
	h := newHandler(svc)
	ctx := context.Background()

	_, err := h.VerifyEmail(ctx, mustStruct(t, map[string]any{"token": "v-token"}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.ResendVerification(ctx, mustStruct(t, map[string]any{"email": "a@b.c"}))
	require.NoError(t, err)

	_, err = h.ForgotPassword(ctx, mustStruct(t, map[string]any{"email": "a@b.c"}))
	require.NoError(t, err)

	_, err = h.ResetPassword(ctx, mustStruct(t, map[string]any{"token": "r-token"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.ResetPassword(ctx, mustStruct(t, map[string]any{"token": "r-token", "new_password": "new"}))
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestAuth_Me(t *testing.T) {
	h := newHandler(&authServiceMock{})

	_, err := h.Me(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := grpcctx.NewManager().SetIdentityToContext(context.Background(), model.Identity{Subject: "a@b.c", Role: model.RoleAdmin})
	resp, err := h.Me(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"subject": "a@b.c", "role": "ADMIN"}, resp.AsMap())
}
