// Package service implements tally's Connect RPC services.
package service

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/pkg/api"
)

// Handlers maps procedure paths to their HTTP handlers, ready to mount on
// a mux.
type Handlers map[string]http.Handler

// Mount registers every handler on the mux at its procedure path.
func (h Handlers) Mount(mux *http.ServeMux) {
	for path, handler := range h {
		mux.Handle(path, handler)
	}
}

// handlerOptions returns the options every tally handler shares: the JSON
// codec plus any interceptors.
func handlerOptions(interceptors ...connect.Interceptor) []connect.HandlerOption {
	opts := []connect.HandlerOption{connect.WithCodec(api.Codec{})}
	if len(interceptors) > 0 {
		opts = append(opts, connect.WithInterceptors(interceptors...))
	}
	return opts
}

// connectError maps an identity error to a Connect error carrying the
// deterministic code in its message. Non-identity errors pass through with
// the given fallback code.
func connectError(err error, fallback connect.Code) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch identity.CodeOf(err) {
	case identity.CodeSelfClaim:
		return connect.NewError(connect.CodePermissionDenied, err)
	case identity.CodeAlreadyClaimed:
		return connect.NewError(connect.CodeAlreadyExists, err)
	case identity.CodeTokenExpired, identity.CodeRequestExpired:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case identity.CodeAliasConflict, identity.CodeAliasCycle:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case identity.CodeInvalidIdentifier:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case identity.CodeAliasChainCorruption:
		// Invariant violation: a bug, not a user condition.
		return connect.NewError(connect.CodeInternal, err)
	default:
		return connect.NewError(fallback, err)
	}
}
