package models

// Account represents a registered user account.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// Email is the account's email address (unique). Used for login.
	Email string

	// DisplayName is the human-readable name shown to other users.
	DisplayName string

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	// CanonicalMemberID is the account's permanent member identifier,
	// chosen at registration and never mutated afterwards. It is the root
	// of this account's alias tree.
	CanonicalMemberID string

	// AliasMemberIDs is the denormalized set of member identifiers merged
	// into this account. It is a materialized read-optimization over the
	// authoritative alias_edges rows, rebuildable from them, and is only
	// appended to inside the same transaction that writes an edge.
	// Invariant: CanonicalMemberID is never an element.
	AliasMemberIDs []string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account update.
	UpdatedAt int64
}

// AliasEdge maps one alias member identifier to its canonical owner.
// Edges are written once by a successful claim and never deleted; each
// alias maps to exactly one canonical identifier, and an edge never points
// at another alias.
type AliasEdge struct {
	// AliasID is the merged member identifier (normalized).
	AliasID string

	// CanonicalID is the owning account's canonical member identifier.
	CanonicalID string

	// CreatedAt is the Unix timestamp when the merge happened.
	CreatedAt int64
}
