package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/internal/storage"
	"github.com/arvhn/tally/pkg/api"
)

// FriendService implements manual contact creation and the deduplicated
// friend-list view.
type FriendService struct {
	store    storage.Store
	resolver *identity.Resolver
}

// NewFriendService creates a new friend service.
func NewFriendService(store storage.Store) *FriendService {
	return &FriendService{
		store:    store,
		resolver: identity.NewResolver(store),
	}
}

// Handlers returns the service's Connect handlers.
func (s *FriendService) Handlers(interceptors ...connect.Interceptor) Handlers {
	opts := handlerOptions(interceptors...)
	return Handlers{
		api.FriendAddProcedure:  connect.NewUnaryHandler(api.FriendAddProcedure, s.AddFriend, opts...),
		api.FriendListProcedure: connect.NewUnaryHandler(api.FriendListProcedure, s.ListFriends, opts...),
	}
}

// AddFriend creates a manually entered contact row for the authenticated
// account.
func (s *FriendService) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	memberID, err := identity.Normalize(req.Msg.MemberID)
	if err != nil {
		return nil, connectError(err, connect.CodeInvalidArgument)
	}
	if req.Msg.DisplayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("display name required"))
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if account != nil && account.CanonicalMemberID == memberID {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("cannot add yourself as a contact"))
	}

	friend := &models.FriendRecord{
		OwnerAccountID: accountID,
		MemberID:       memberID,
		DisplayName:    req.Msg.DisplayName,
	}

	// A contact whose identifier already belongs to an account arrives
	// pre-linked.
	canonical, err := s.resolver.ResolveCanonical(ctx, memberID)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	if owner, err := s.store.GetAccountByMemberID(ctx, canonical); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	} else if owner != nil {
		friend.HasLinkedAccount = true
		friend.LinkedMemberID = owner.CanonicalMemberID
		friend.LinkedAccountID = owner.ID
		friend.LinkedAccountEmail = owner.Email
	}

	if err := s.store.CreateFriend(ctx, friend); err != nil {
		if errors.Is(err, storage.ErrDuplicateFriend) {
			return nil, connect.NewError(connect.CodeAlreadyExists,
				fmt.Errorf("contact %q already exists", memberID))
		}
		slog.Error("AddFriend failed", "owner", accountID, "member", memberID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Friend added", "owner", accountID, "member", memberID, "linked", friend.HasLinkedAccount)
	return connect.NewResponse(&api.AddFriendResponse{
		Friend: &api.Friend{
			ID:                 friend.ID,
			MemberID:           friend.MemberID,
			DisplayName:        friend.DisplayName,
			HasLinkedAccount:   friend.HasLinkedAccount,
			CanonicalMemberID:  canonical,
			LinkedMemberID:     friend.LinkedMemberID,
			LinkedAccountID:    friend.LinkedAccountID,
			LinkedAccountEmail: friend.LinkedAccountEmail,
		},
	}), nil
}

// ListFriends returns the authenticated account's friend list with
// duplicate rows for the same canonical person collapsed.
func (s *FriendService) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	rows, err := s.store.ListFriends(ctx, accountID)
	if err != nil {
		slog.Error("ListFriends failed", "owner", accountID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	entries, err := identity.DedupFriends(ctx, s.resolver, rows)
	if err != nil {
		slog.Error("Friend dedup failed", "owner", accountID, "error", err)
		return nil, connectError(err, connect.CodeInternal)
	}

	friends := make([]*api.Friend, len(entries))
	for i, entry := range entries {
		friends[i] = toAPIFriend(entry)
	}
	return connect.NewResponse(&api.ListFriendsResponse{Friends: friends}), nil
}
