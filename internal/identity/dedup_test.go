package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvhn/tally/internal/models"
)

func TestDedupFriends_CollapsesMergedRows(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(memEdges{
		"charlie@mail.com": "bob",
		"555-0100":         "bob",
	})

	rows := []models.FriendRecord{
		{ID: "f1", MemberID: "charlie@mail.com", DisplayName: "Charlie"},
		{ID: "f2", MemberID: "555-0100", DisplayName: "C (phone)"},
		{ID: "f3", MemberID: "dora", DisplayName: "Dora"},
	}

	entries, err := DedupFriends(ctx, r, rows)
	require.NoError(t, err)
	require.Len(t, entries, 2, "two rows for bob collapse into one")

	assert.Equal(t, "bob", entries[0].CanonicalMemberID)
	assert.Equal(t, []string{"555-0100", "charlie@mail.com"}, entries[0].AliasMemberIDs)
	assert.Equal(t, "dora", entries[1].CanonicalMemberID)
	assert.Empty(t, entries[1].AliasMemberIDs)
}

func TestDedupFriends_RepresentativePrecedence(t *testing.T) {
	ctx := context.Background()

	t.Run("linked row wins", func(t *testing.T) {
		r := NewResolver(memEdges{"a-alias": "p", "b-alias": "p"})
		rows := []models.FriendRecord{
			{ID: "f1", MemberID: "a-alias"},
			{ID: "f2", MemberID: "b-alias", HasLinkedAccount: true},
		}
		entries, err := DedupFriends(ctx, r, rows)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "f2", entries[0].Representative.ID)
	})

	t.Run("larger alias set wins among unlinked", func(t *testing.T) {
		// Both rows resolve to p, but p itself carries the alias set while
		// a-alias carries none of its own.
		r := NewResolver(memEdges{"a-alias": "p"})
		rows := []models.FriendRecord{
			{ID: "f1", MemberID: "a-alias"},
			{ID: "f2", MemberID: "p"},
		}
		entries, err := DedupFriends(ctx, r, rows)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "f2", entries[0].Representative.ID)
	})

	t.Run("lexicographic tiebreak", func(t *testing.T) {
		r := NewResolver(memEdges{"xx": "p", "aa": "p"})
		rows := []models.FriendRecord{
			{ID: "f1", MemberID: "xx"},
			{ID: "f2", MemberID: "aa"},
		}
		entries, err := DedupFriends(ctx, r, rows)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "f2", entries[0].Representative.ID)
	})
}

func TestDedupFriends_Deterministic(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(memEdges{"alias-1": "p", "alias-2": "p"})
	rows := []models.FriendRecord{
		{ID: "f1", MemberID: "alias-1"},
		{ID: "f2", MemberID: "alias-2"},
		{ID: "f3", MemberID: "q"},
	}

	first, err := DedupFriends(ctx, r, rows)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := DedupFriends(ctx, r, rows)
		require.NoError(t, err)
		assert.Equal(t, first, again, "repeated runs over unchanged data are stable")
	}
}

func TestDedupFriends_GroupOrderFollowsRows(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(memEdges{})
	rows := []models.FriendRecord{
		{ID: "f1", MemberID: "zoe"},
		{ID: "f2", MemberID: "adam"},
	}

	entries, err := DedupFriends(ctx, r, rows)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "zoe", entries[0].CanonicalMemberID, "entries keep first-seen row order")
	assert.Equal(t, "adam", entries[1].CanonicalMemberID)
}

func TestDedupFriends_UnionIncludesRowAliases(t *testing.T) {
	// A row written under an alias that the graph does not know yet (e.g.
	// the edge landed after the row) still contributes to the union.
	ctx := context.Background()
	r := NewResolver(memEdges{"known-alias": "p"})
	rows := []models.FriendRecord{
		{ID: "f1", MemberID: "p"},
		{ID: "f2", MemberID: "known-alias"},
	}

	entries, err := DedupFriends(ctx, r, rows)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"known-alias"}, entries[0].AliasMemberIDs)
	assert.NotContains(t, entries[0].AliasMemberIDs, "p", "canonical is never listed as its own alias")
}

func TestDedupFriends_Empty(t *testing.T) {
	entries, err := DedupFriends(context.Background(), NewResolver(memEdges{}), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
