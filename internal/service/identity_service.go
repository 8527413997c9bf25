package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/internal/storage"
	"github.com/arvhn/tally/pkg/api"
)

// defaultClaimTTL bounds invite tokens and link requests that arrive
// without an explicit TTL.
const defaultClaimTTL = 7 * 24 * time.Hour

// IdentityService implements the claim entry points and the operator
// debug interface over the alias graph.
type IdentityService struct {
	store    storage.Store
	claimer  *identity.Claimer
	resolver *identity.Resolver
}

// NewIdentityService creates a new identity service.
func NewIdentityService(store storage.Store) *IdentityService {
	return &IdentityService{
		store:    store,
		claimer:  identity.NewClaimer(store),
		resolver: identity.NewResolver(store),
	}
}

// Handlers returns the service's Connect handlers. Every procedure
// requires authentication.
func (s *IdentityService) Handlers(interceptors ...connect.Interceptor) Handlers {
	opts := handlerOptions(interceptors...)
	return Handlers{
		api.IdentityCreateInviteProcedure:      connect.NewUnaryHandler(api.IdentityCreateInviteProcedure, s.CreateInvite, opts...),
		api.IdentityClaimInviteProcedure:       connect.NewUnaryHandler(api.IdentityClaimInviteProcedure, s.ClaimInvite, opts...),
		api.IdentityCreateLinkRequestProcedure: connect.NewUnaryHandler(api.IdentityCreateLinkRequestProcedure, s.CreateLinkRequest, opts...),
		api.IdentityAcceptLinkRequestProcedure: connect.NewUnaryHandler(api.IdentityAcceptLinkRequestProcedure, s.AcceptLinkRequest, opts...),
		api.IdentityRejectLinkRequestProcedure: connect.NewUnaryHandler(api.IdentityRejectLinkRequestProcedure, s.RejectLinkRequest, opts...),
		api.IdentityResolveMemberProcedure:     connect.NewUnaryHandler(api.IdentityResolveMemberProcedure, s.ResolveMember, opts...),
		api.IdentityListAliasesProcedure:       connect.NewUnaryHandler(api.IdentityListAliasesProcedure, s.ListAliases, opts...),
	}
}

// CreateInvite issues an invite token for a manually entered member
// identifier. Claiming the token merges that identifier into the claimant's
// account.
func (s *IdentityService) CreateInvite(ctx context.Context, req *connect.Request[api.CreateInviteRequest]) (*connect.Response[api.CreateInviteResponse], error) {
	created, err := s.createRequest(ctx, models.ClaimKindInvite, req.Msg.TargetMemberID, req.Msg.TTLSeconds)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CreateInviteResponse{
		TokenID:   created.ID,
		ExpiresAt: created.ExpiresAt,
	}), nil
}

// CreateLinkRequest issues a link request asking an account to adopt a
// member identifier as an alias.
func (s *IdentityService) CreateLinkRequest(ctx context.Context, req *connect.Request[api.CreateLinkRequestRequest]) (*connect.Response[api.CreateLinkRequestResponse], error) {
	created, err := s.createRequest(ctx, models.ClaimKindLink, req.Msg.TargetMemberID, req.Msg.TTLSeconds)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CreateLinkRequestResponse{
		RequestID: created.ID,
		ExpiresAt: created.ExpiresAt,
	}), nil
}

func (s *IdentityService) createRequest(ctx context.Context, kind models.ClaimKind, rawTarget string, ttlSeconds int64) (*models.ClaimRequest, error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	target, err := identity.Normalize(rawTarget)
	if err != nil {
		return nil, connectError(err, connect.CodeInvalidArgument)
	}

	// A target that already resolves to an account is not claimable; fail
	// at creation rather than at claim time.
	canonical, err := s.resolver.ResolveCanonical(ctx, target)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	if canonical != target {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("member %q is already linked to %q", target, canonical))
	}
	if owner, err := s.store.GetAccountByMemberID(ctx, target); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	} else if owner != nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("member %q is a registered account", target))
	}

	ttl := defaultClaimTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	request := &models.ClaimRequest{
		Kind:             kind,
		CreatorAccountID: accountID,
		TargetMemberID:   target,
		Status:           models.ClaimPending,
		ExpiresAt:        time.Now().Add(ttl).Unix(),
	}
	if err := s.store.CreateClaimRequest(ctx, request); err != nil {
		slog.Error("Failed to create claim request", "kind", kind, "target", target, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Claim request created", "request_id", request.ID, "kind", kind, "target", target)
	return request, nil
}

// ClaimInvite claims an invite token on behalf of the authenticated
// account, merging the token's target identifier into it.
func (s *IdentityService) ClaimInvite(ctx context.Context, req *connect.Request[api.ClaimInviteRequest]) (*connect.Response[api.ClaimResponse], error) {
	return s.claim(ctx, req.Msg.TokenID, models.ClaimKindInvite)
}

// AcceptLinkRequest accepts a link request on behalf of the authenticated
// account. Identical merge semantics to ClaimInvite; only the request's
// provenance differs.
func (s *IdentityService) AcceptLinkRequest(ctx context.Context, req *connect.Request[api.AcceptLinkRequestRequest]) (*connect.Response[api.ClaimResponse], error) {
	return s.claim(ctx, req.Msg.RequestID, models.ClaimKindLink)
}

func (s *IdentityService) claim(ctx context.Context, requestID string, kind models.ClaimKind) (*connect.Response[api.ClaimResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	if requestID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("request id required"))
	}

	request, err := s.store.GetClaimRequest(ctx, requestID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if request.Kind != kind {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("request %s is a %s request", requestID, request.Kind))
	}

	result, err := s.claimer.Claim(ctx, requestID, accountID)
	middleware.ObserveClaim(err)
	if err != nil {
		if code := identity.CodeOf(err); code != "" {
			slog.Warn("Claim rejected", "request_id", requestID, "account_id", accountID, "code", code)
		} else {
			slog.Error("Claim failed", "request_id", requestID, "account_id", accountID, "error", err)
		}
		return nil, connectError(err, connect.CodeInternal)
	}

	slog.Info("Claim succeeded",
		"request_id", requestID,
		"target", result.TargetMemberID,
		"canonical", result.CanonicalMemberID,
		"fan_out_rows", result.FanOutRowsAdded,
	)
	return connect.NewResponse(toAPIClaim(result)), nil
}

// RejectLinkRequest transitions a pending link request to REJECTED.
func (s *IdentityService) RejectLinkRequest(ctx context.Context, req *connect.Request[api.RejectLinkRequestRequest]) (*connect.Response[api.RejectLinkRequestResponse], error) {
	if middleware.GetAccountID(ctx) == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	rejected, err := s.store.RejectPending(ctx, req.Msg.RequestID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !rejected {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("request %s is not pending", req.Msg.RequestID))
	}
	return connect.NewResponse(&api.RejectLinkRequestResponse{}), nil
}

// ResolveMember resolves a member identifier to its canonical identifier.
// Operator debug interface; read-only.
func (s *IdentityService) ResolveMember(ctx context.Context, req *connect.Request[api.ResolveMemberRequest]) (*connect.Response[api.ResolveMemberResponse], error) {
	canonical, err := s.resolver.ResolveCanonical(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	return connect.NewResponse(&api.ResolveMemberResponse{
		MemberID:          req.Msg.MemberID,
		CanonicalMemberID: canonical,
	}), nil
}

// ListAliases lists every alias of the canonical identifier the given
// member identifier resolves to. Operator debug interface; read-only.
func (s *IdentityService) ListAliases(ctx context.Context, req *connect.Request[api.ListAliasesRequest]) (*connect.Response[api.ListAliasesResponse], error) {
	canonical, err := s.resolver.ResolveCanonical(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	aliases, err := s.resolver.Aliases(ctx, canonical)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	return connect.NewResponse(&api.ListAliasesResponse{
		CanonicalMemberID: canonical,
		AliasMemberIDs:    aliases,
	}), nil
}
