package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/auth"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/storage"
	"github.com/arvhn/tally/pkg/api"
)

// AuthService implements registration, login, and session introspection.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
	}
}

// Handlers returns the service's Connect handlers. Register and Login are
// unauthenticated; GetCurrentUser requires a session.
func (s *AuthService) Handlers(authed connect.Interceptor, open ...connect.Interceptor) Handlers {
	return Handlers{
		api.AuthRegisterProcedure:       connect.NewUnaryHandler(api.AuthRegisterProcedure, s.Register, handlerOptions(open...)...),
		api.AuthLoginProcedure:          connect.NewUnaryHandler(api.AuthLoginProcedure, s.Login, handlerOptions(open...)...),
		api.AuthGetCurrentUserProcedure: connect.NewUnaryHandler(api.AuthGetCurrentUserProcedure, s.GetCurrentUser, handlerOptions(append([]connect.Interceptor{authed}, open...)...)...),
	}
}

// Register creates a new account and returns a session token.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	slog.Info("Register request", "email", req.Msg.Email, "handle", req.Msg.MemberHandle)

	if req.Msg.Email == "" || req.Msg.DisplayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	account, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.MemberHandle, req.Msg.Password)
	if err != nil {
		slog.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch err {
		case auth.ErrEmailExists, auth.ErrHandleExists, auth.ErrHandleMerged:
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case auth.ErrWeakPassword:
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connectError(err, connect.CodeInternal)
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		slog.Error("Failed to generate token", "account_id", account.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Account registered", "account_id", account.ID, "canonical", account.CanonicalMemberID)
	return connect.NewResponse(&api.RegisterResponse{
		Account: toAPIAccount(account),
		Token:   token,
	}), nil
}

// Login authenticates an account and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	account, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		slog.Error("Failed to generate token", "account_id", account.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&api.LoginResponse{
		Account: toAPIAccount(account),
		Token:   token,
	}), nil
}

// GetCurrentUser returns the authenticated account, alias set included.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		slog.Error("GetCurrentUser failed", "account_id", accountID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if account == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{Account: toAPIAccount(account)}), nil
}
