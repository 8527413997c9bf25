package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/internal/storage"
	"github.com/arvhn/tally/pkg/api"
)

// GroupService implements group management. New membership writes store
// canonical identifiers; rows written before a merge are resolved through
// the alias graph at read time.
type GroupService struct {
	store    storage.Store
	resolver *identity.Resolver
}

// NewGroupService creates a new group service.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{
		store:    store,
		resolver: identity.NewResolver(store),
	}
}

// Handlers returns the service's Connect handlers.
func (s *GroupService) Handlers(interceptors ...connect.Interceptor) Handlers {
	opts := handlerOptions(interceptors...)
	return Handlers{
		api.GroupCreateProcedure:     connect.NewUnaryHandler(api.GroupCreateProcedure, s.CreateGroup, opts...),
		api.GroupGetProcedure:        connect.NewUnaryHandler(api.GroupGetProcedure, s.GetGroup, opts...),
		api.GroupAddMembersProcedure: connect.NewUnaryHandler(api.GroupAddMembersProcedure, s.AddGroupMembers, opts...),
		api.GroupListProcedure:       connect.NewUnaryHandler(api.GroupListProcedure, s.ListGroups, opts...),
	}
}

// canonicalMembers normalizes and resolves member identifiers so new writes
// carry canonical ids, deduplicating after resolution.
func (s *GroupService) canonicalMembers(ctx context.Context, raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	members := make([]string, 0, len(raw))
	for _, m := range raw {
		canonical, err := s.resolver.ResolveCanonical(ctx, m)
		if err != nil {
			return nil, err
		}
		if !seen[canonical] {
			seen[canonical] = true
			members = append(members, canonical)
		}
	}
	return members, nil
}

// resolveGroup rewrites a group's member list through the alias graph for
// presentation, collapsing members merged since the rows were written.
func (s *GroupService) resolveGroup(ctx context.Context, group *models.Group) error {
	members, err := s.canonicalMembers(ctx, group.Members)
	if err != nil {
		return err
	}
	group.Members = members
	return nil
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	if middleware.GetAccountID(ctx) == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group name required"))
	}

	members, err := s.canonicalMembers(ctx, req.Msg.Members)
	if err != nil {
		return nil, connectError(err, connect.CodeInvalidArgument)
	}

	group := &models.Group{Name: req.Msg.Name, Members: members}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group by ID with members resolved to canonical
// identifiers.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err := s.resolveGroup(ctx, group); err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// AddGroupMembers adds members to an existing group and returns the
// updated group.
func (s *GroupService) AddGroupMembers(ctx context.Context, req *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error) {
	if middleware.GetAccountID(ctx) == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	members, err := s.canonicalMembers(ctx, req.Msg.Members)
	if err != nil {
		return nil, connectError(err, connect.CodeInvalidArgument)
	}

	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, members); err != nil {
		slog.Error("AddGroupMembers failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err := s.resolveGroup(ctx, group); err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	return connect.NewResponse(&api.AddGroupMembersResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	apiGroups := make([]*api.Group, len(groups))
	for i := range groups {
		if err := s.resolveGroup(ctx, &groups[i]); err != nil {
			return nil, connectError(err, connect.CodeInternal)
		}
		apiGroups[i] = toAPIGroup(&groups[i])
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: apiGroups}), nil
}
