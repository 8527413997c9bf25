package service

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/pkg/api"
)

func TestGroups_RPC(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register("alice@mail.com", "Alice", "alice")

	t.Run("create resolves and deduplicates members", func(t *testing.T) {
		resp, err := call[api.CreateGroupRequest, api.CreateGroupResponse](env, api.GroupCreateProcedure, token, &api.CreateGroupRequest{
			Name:    "Trip",
			Members: []string{"Alice", "alice", "BOB"},
		})
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if len(resp.Group.Members) != 2 {
			t.Errorf("expected alice deduplicated, got %v", resp.Group.Members)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := call[api.CreateGroupRequest, api.CreateGroupResponse](env, api.GroupCreateProcedure, token, &api.CreateGroupRequest{
			Members: []string{"alice"},
		})
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("missing group", func(t *testing.T) {
		_, err := call[api.GetGroupRequest, api.GetGroupResponse](env, api.GroupGetProcedure, token, &api.GetGroupRequest{GroupID: "nope"})
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestGroups_MergedMembersCollapse(t *testing.T) {
	// A group written with two identifiers for the same person shows one
	// member once the identifiers merge. Rows are never rewritten; the
	// collapse happens at read time.
	env := newTestEnv(t)
	_, token := env.register("alice@mail.com", "Alice", "alice")

	group, err := call[api.CreateGroupRequest, api.CreateGroupResponse](env, api.GroupCreateProcedure, token, &api.CreateGroupRequest{
		Name:    "Dinner club",
		Members: []string{"alice", "charlie@mail.com", "555-0100"},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if len(group.Group.Members) != 3 {
		t.Fatalf("setup: %v", group.Group.Members)
	}

	ctx := context.Background()
	now := time.Now().Unix()
	for _, alias := range []string{"charlie@mail.com", "555-0100"} {
		if err := env.store.InsertAliasEdge(ctx, &models.AliasEdge{AliasID: alias, CanonicalID: "bob", CreatedAt: now}); err != nil {
			t.Fatalf("seed edge failed: %v", err)
		}
	}

	got, err := call[api.GetGroupRequest, api.GetGroupResponse](env, api.GroupGetProcedure, token, &api.GetGroupRequest{
		GroupID: group.Group.ID,
	})
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Group.Members) != 2 {
		t.Errorf("expected merged members to collapse, got %v", got.Group.Members)
	}

	members := map[string]bool{}
	for _, m := range got.Group.Members {
		members[m] = true
	}
	if !members["alice"] || !members["bob"] {
		t.Errorf("resolved members: %v", got.Group.Members)
	}
}
