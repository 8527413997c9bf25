package identity

import (
	"context"
	"sort"
)

// EdgeSource reads the authoritative alias edge rows. Implementations must
// be safe for concurrent readers; the resolver itself holds no state.
type EdgeSource interface {
	// CanonicalOf returns the canonical identifier aliasID maps to.
	// ok is false when aliasID has no outgoing edge.
	CanonicalOf(ctx context.Context, aliasID string) (canonical string, ok bool, err error)

	// AliasesOf returns every alias identifier mapped to canonicalID.
	AliasesOf(ctx context.Context, canonicalID string) ([]string, error)
}

// Resolver resolves member identifiers to their canonical identifier by
// reading the alias graph. The graph is a forest: every edge points from an
// alias directly to a canonical identifier, so resolution is at most one
// hop. An alias-to-alias edge is a broken invariant, not a chain to walk.
type Resolver struct {
	edges EdgeSource
}

// NewResolver creates a resolver over the given edge source.
func NewResolver(edges EdgeSource) *Resolver {
	return &Resolver{edges: edges}
}

// ResolveCanonical returns the canonical identifier for id. An identifier
// with no outgoing edge is canonical by definition; identifiers unknown to
// the system resolve to themselves.
//
// Returns ALIAS_CHAIN_CORRUPTION if the edge target itself has an outgoing
// edge. That indicates a bug in edge insertion and is surfaced rather than
// silently followed.
func (r *Resolver) ResolveCanonical(ctx context.Context, id string) (string, error) {
	norm, err := Normalize(id)
	if err != nil {
		return "", err
	}

	target, ok, err := r.edges.CanonicalOf(ctx, norm)
	if !ok || err != nil {
		return norm, err
	}

	// Forest invariant: the target must be a root.
	if _, chained, err := r.edges.CanonicalOf(ctx, target); err != nil {
		return "", err
	} else if chained {
		return "", &Error{
			Code:     CodeAliasChainCorruption,
			Message:  "alias edge points at another alias",
			MemberID: norm,
		}
	}

	return target, nil
}

// Aliases returns the sorted alias set for a canonical identifier. Used by
// the operator debug interface and the dedup view.
func (r *Resolver) Aliases(ctx context.Context, canonicalID string) ([]string, error) {
	norm, err := Normalize(canonicalID)
	if err != nil {
		return nil, err
	}
	aliases, err := r.edges.AliasesOf(ctx, norm)
	if err != nil {
		return nil, err
	}
	sort.Strings(aliases)
	return aliases, nil
}

// CheckConflict fails with ALIAS_CONFLICT if aliasID already resolves to a
// canonical identifier different from canonicalID. Both inputs must already
// be normalized.
func (r *Resolver) CheckConflict(ctx context.Context, aliasID, canonicalID string) error {
	existing, ok, err := r.edges.CanonicalOf(ctx, aliasID)
	if err != nil {
		return err
	}
	if ok && existing != canonicalID {
		return &Error{
			Code:     CodeAliasConflict,
			Message:  "identifier already belongs to a different account",
			MemberID: aliasID,
		}
	}
	return nil
}

// CheckCycle fails with ALIAS_CYCLE if canonicalID resolves back to aliasID,
// i.e. the proposed canonical is itself already an alias of the identifier
// being claimed. Both inputs must already be normalized.
func (r *Resolver) CheckCycle(ctx context.Context, aliasID, canonicalID string) error {
	if aliasID == canonicalID {
		return &Error{
			Code:     CodeAliasCycle,
			Message:  "identifier cannot alias itself",
			MemberID: aliasID,
		}
	}
	resolved, err := r.ResolveCanonical(ctx, canonicalID)
	if err != nil {
		return err
	}
	if resolved == aliasID {
		return &Error{
			Code:     CodeAliasCycle,
			Message:  "proposed canonical is already an alias of the target",
			MemberID: aliasID,
		}
	}
	return nil
}
