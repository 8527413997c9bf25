package models

import "github.com/shopspring/decimal"

// Expense represents a shared expense with per-member split amounts.
// Split arithmetic happens client-side; the server only validates that the
// splits are consistent with the total.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the owning group, or empty for a standalone expense.
	GroupID string

	// Title is the human-readable description.
	Title string

	// Total is the full expense amount.
	Total decimal.Decimal

	// PayerMemberID is the member identifier of who paid (normalized).
	PayerMemberID string

	// Splits are the per-member owed amounts. Split member identifiers are
	// whatever was current at write time and are never rewritten; readers
	// resolve them through the alias graph.
	Splits []Split

	// CreatedBy is the account ID that recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// Split is one member's share of an expense.
type Split struct {
	// MemberID is the member identifier that owes this share (normalized).
	MemberID string

	// Amount is the owed amount.
	Amount decimal.Decimal
}
