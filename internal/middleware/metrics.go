package middleware

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arvhn/tally/internal/identity"
)

var (
	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_rpc_duration_seconds",
			Help:    "RPC handler latency by procedure.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_rpc_errors_total",
			Help: "RPC errors by procedure and Connect code.",
		},
		[]string{"procedure", "code"},
	)

	claimOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_claim_outcomes_total",
			Help: "Claim attempts by outcome (ok or identity error code).",
		},
		[]string{"outcome"},
	)
)

// MetricsInterceptor returns a Connect interceptor that records per-RPC
// latency and error counters.
func MetricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			if err != nil {
				code := "unknown"
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
				rpcErrors.WithLabelValues(procedure, code).Inc()
			}
			return resp, err
		}
	}
}

// ObserveClaim records one claim attempt's outcome. Identity error codes
// become labels; other failures count as "error".
func ObserveClaim(err error) {
	switch {
	case err == nil:
		claimOutcomes.WithLabelValues("ok").Inc()
	case identity.CodeOf(err) != "":
		claimOutcomes.WithLabelValues(string(identity.CodeOf(err))).Inc()
	default:
		claimOutcomes.WithLabelValues("error").Inc()
	}
}
