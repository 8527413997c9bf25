package identity

import (
	"errors"
	"fmt"
)

// Code categorizes identity errors. Codes are part of the wire contract:
// clients key resolution UI off them, so they are stable strings.
type Code string

const (
	// CodeSelfClaim indicates the requester tried to claim their own identity.
	CodeSelfClaim Code = "SELF_CLAIM"

	// CodeAlreadyClaimed indicates the request was already claimed; exactly
	// one of any set of concurrent attempts avoids this code.
	CodeAlreadyClaimed Code = "ALREADY_CLAIMED"

	// CodeTokenExpired indicates an invite token past its expiry.
	CodeTokenExpired Code = "TOKEN_EXPIRED"

	// CodeRequestExpired indicates a link request past its expiry.
	CodeRequestExpired Code = "REQUEST_EXPIRED"

	// CodeAliasConflict indicates the alias already resolves to a different
	// canonical identifier.
	CodeAliasConflict Code = "ALIAS_CONFLICT"

	// CodeAliasCycle indicates the proposed canonical identifier is itself
	// an alias of the identifier being claimed.
	CodeAliasCycle Code = "ALIAS_CYCLE"

	// CodeInvalidIdentifier indicates an empty or unusable member identifier.
	CodeInvalidIdentifier Code = "INVALID_IDENTIFIER"

	// CodeAliasChainCorruption indicates an alias edge pointing at another
	// alias. The forest invariant makes this unreachable through the public
	// API; seeing it means a bug in edge insertion, not user input.
	CodeAliasChainCorruption Code = "ALIAS_CHAIN_CORRUPTION"
)

// Error is an identity error with a deterministic code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// MemberID is the member identifier involved, when known.
	MemberID string

	// RequestID is the claim request involved, when known.
	RequestID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.MemberID != "" && e.RequestID != "":
		return fmt.Sprintf("%s: %s (member=%s, request=%s)", e.Code, e.Message, e.MemberID, e.RequestID)
	case e.MemberID != "":
		return fmt.Sprintf("%s: %s (member=%s)", e.Code, e.Message, e.MemberID)
	case e.RequestID != "":
		return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.RequestID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the identity error code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Code
	}
	return ""
}
