// Package models defines the core domain models for tally.
//
// # Identity model
//
// Every person is named by member identifiers (normalized strings). An
// Account owns exactly one canonical member identifier, fixed at
// registration. Contacts entered by hand before that person registers get
// their own ad-hoc member identifiers; when the person later claims an
// invite or accepts a link request, those identifiers become aliases of the
// account's canonical identifier via AliasEdge rows.
//
// The alias graph is a forest: every edge points from an alias directly to
// a canonical identifier. Alias-to-alias edges are never written; the
// resolver treats one as corruption, not as a chain to follow.
//
// # Reference records
//
// Group membership, expense splits, and visibility fan-out rows may hold
// either canonical or alias identifiers. Historic rows are never rewritten
// in place; readers resolve identifiers through the alias graph.
package models
