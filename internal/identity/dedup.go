package identity

import (
	"context"
	"sort"

	"github.com/arvhn/tally/internal/models"
)

// FriendEntry is one deduplicated friend-list entry: a representative row
// plus the full alias set for the person it stands for.
type FriendEntry struct {
	// Representative is the row chosen to stand for the person.
	Representative models.FriendRecord

	// CanonicalMemberID is the resolved canonical identifier.
	CanonicalMemberID string

	// AliasMemberIDs is the sorted union of every alias identifier seen
	// across the collapsed rows plus the alias graph's set for the
	// canonical identifier. The union is what keeps a completed merge from
	// re-surfacing as a duplicate on the next refresh.
	AliasMemberIDs []string
}

// DedupFriends collapses duplicate friend rows for the same canonical
// person. Rows are grouped by canonical identity through the resolver, not
// by raw member id, so rows written before a merge land in the same group
// as rows written after it.
//
// Representative precedence within a group: a row already marked linked
// wins; otherwise the row whose identifier carries the larger alias set;
// otherwise the lexicographically smallest normalized identifier. The
// precedence is total, so repeated runs over unchanged data return the same
// representative.
func DedupFriends(ctx context.Context, r *Resolver, rows []models.FriendRecord) ([]FriendEntry, error) {
	type group struct {
		canonical string
		rows      []models.FriendRecord
	}

	groups := make(map[string]*group)
	var order []string // canonical ids in first-seen order

	for _, row := range rows {
		canonical, err := r.ResolveCanonical(ctx, row.MemberID)
		if err != nil {
			return nil, err
		}
		g, ok := groups[canonical]
		if !ok {
			g = &group{canonical: canonical}
			groups[canonical] = g
			order = append(order, canonical)
		}
		g.rows = append(g.rows, row)
	}

	entries := make([]FriendEntry, 0, len(groups))
	for _, canonical := range order {
		g := groups[canonical]

		rep, err := pickRepresentative(ctx, r, g.rows)
		if err != nil {
			return nil, err
		}

		aliases, err := r.Aliases(ctx, canonical)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(aliases)+len(g.rows))
		for _, a := range aliases {
			seen[a] = true
		}
		for _, row := range g.rows {
			norm, err := Normalize(row.MemberID)
			if err != nil {
				return nil, err
			}
			if norm != canonical {
				seen[norm] = true
			}
		}
		union := make([]string, 0, len(seen))
		for a := range seen {
			union = append(union, a)
		}
		sort.Strings(union)

		entries = append(entries, FriendEntry{
			Representative:    rep,
			CanonicalMemberID: canonical,
			AliasMemberIDs:    union,
		})
	}
	return entries, nil
}

func pickRepresentative(ctx context.Context, r *Resolver, rows []models.FriendRecord) (models.FriendRecord, error) {
	best := rows[0]
	bestAliases, err := aliasCount(ctx, r, best.MemberID)
	if err != nil {
		return models.FriendRecord{}, err
	}

	for _, row := range rows[1:] {
		n, err := aliasCount(ctx, r, row.MemberID)
		if err != nil {
			return models.FriendRecord{}, err
		}
		if betterRepresentative(row, n, best, bestAliases) {
			best, bestAliases = row, n
		}
	}
	return best, nil
}

func betterRepresentative(a models.FriendRecord, aAliases int, b models.FriendRecord, bAliases int) bool {
	if a.HasLinkedAccount != b.HasLinkedAccount {
		return a.HasLinkedAccount
	}
	if aAliases != bAliases {
		return aAliases > bAliases
	}
	return MustNormalize(a.MemberID) < MustNormalize(b.MemberID)
}

func aliasCount(ctx context.Context, r *Resolver, memberID string) (int, error) {
	norm, err := Normalize(memberID)
	if err != nil {
		return 0, err
	}
	aliases, err := r.edges.AliasesOf(ctx, norm)
	if err != nil {
		return 0, err
	}
	return len(aliases), nil
}
