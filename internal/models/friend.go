package models

// FriendRecord is one (owner, contact) row in an account's friend list.
//
// Several rows may exist for what is logically one person when contacts
// were entered independently before a merge. Rows are never physically
// deleted after a merge (other tables may still reference the old member
// identifier); the dedup view collapses them at read time.
type FriendRecord struct {
	// ID is the unique identifier for the row (UUID format).
	ID string

	// OwnerAccountID is the account whose friend list this row belongs to.
	OwnerAccountID string

	// MemberID is the contact's member identifier (normalized). May be an
	// alias or a canonical identifier.
	MemberID string

	// DisplayName is the owner's chosen name for the contact.
	DisplayName string

	// HasLinkedAccount is true once the contact's identifier has been
	// claimed by a registered account.
	HasLinkedAccount bool

	// LinkedMemberID is the canonical member identifier once linked.
	LinkedMemberID string

	// LinkedAccountID is the claiming account's ID once linked.
	LinkedAccountID string

	// LinkedAccountEmail is the claiming account's email once linked.
	LinkedAccountEmail string

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64
}
