package models

// ClaimKind distinguishes how a ClaimRequest was created. Both kinds run
// through the same claim state machine; the kind only affects which error
// code an expired request surfaces.
type ClaimKind string

const (
	// ClaimKindInvite is an invite token created by a contact owner for the
	// person behind a manually entered member identifier.
	ClaimKindInvite ClaimKind = "INVITE"

	// ClaimKindLink is a link request asking an existing account to adopt a
	// member identifier as an alias.
	ClaimKindLink ClaimKind = "LINK"
)

// ClaimStatus is the lifecycle state of a ClaimRequest.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimClaimed  ClaimStatus = "CLAIMED"
	ClaimExpired  ClaimStatus = "EXPIRED"
	ClaimRejected ClaimStatus = "REJECTED"
)

// ClaimRequest authorizes merging one member identifier into an account.
// A request transitions to CLAIMED at most once; CLAIMED and EXPIRED are
// terminal. Requests are kept forever for audit and are mutated only by
// the claim core.
type ClaimRequest struct {
	// ID is the unique identifier for the request (UUID format).
	ID string

	// Kind is how the request was created (invite token or link request).
	Kind ClaimKind

	// CreatorAccountID is the account that issued the invite or link
	// request (for invites, the contact owner).
	CreatorAccountID string

	// TargetMemberID is the alias being claimed (normalized).
	TargetMemberID string

	// Status is the current lifecycle state. PENDING requests past their
	// expiry are treated as EXPIRED at the moment of use; no sweeper runs.
	Status ClaimStatus

	// ExpiresAt is the Unix timestamp after which the request is unusable.
	ExpiresAt int64

	// ClaimedBy is the account ID that won the claim, or empty.
	ClaimedBy string

	// ClaimedAt is the Unix timestamp of the successful claim, or zero.
	ClaimedAt int64

	// CreatedAt is the Unix timestamp when the request was created.
	CreatedAt int64
}

// Expired reports whether the request is past its expiry at the given
// Unix timestamp.
func (r *ClaimRequest) Expired(now int64) bool {
	return now >= r.ExpiresAt
}
