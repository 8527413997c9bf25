// Package identity implements the alias-resolution graph, the transactional
// claim protocol, the reconciliation step, and the friend dedup view.
package identity

import "strings"

// Normalize canonicalizes a raw member identifier: whitespace is trimmed and
// the identifier is case-folded. Every comparison, storage key, and lookup
// touching a member identifier goes through this first.
//
// Returns INVALID_IDENTIFIER if the identifier is empty after trimming.
func Normalize(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", &Error{Code: CodeInvalidIdentifier, Message: "member identifier is empty"}
	}
	return id, nil
}

// MustNormalize is Normalize for identifiers already validated upstream.
// Panics on empty input; use only on values the caller has checked.
func MustNormalize(raw string) string {
	id, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return id
}
