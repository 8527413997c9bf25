package models

// Group represents a recurring set of people who split expenses together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates").
	Name string

	// Members is the list of member identifiers in this group. New writes
	// store canonical identifiers; rows written before a merge may still
	// hold an alias and are resolved at read time.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
