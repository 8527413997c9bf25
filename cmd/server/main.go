package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/arvhn/tally/internal/auth"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/service"
	"github.com/arvhn/tally/internal/storage/sqlite"
	"github.com/arvhn/tally/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/tally.db")
	port := getEnv("PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, 24*time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	requireAuth := middleware.RequireAuth(jwtManager)
	logRPC := middleware.LoggingInterceptor()
	measureRPC := middleware.MetricsInterceptor()

	mux := http.NewServeMux()

	authSvc := service.NewAuthService(authenticator, jwtManager, store)
	authSvc.Handlers(requireAuth, logRPC, measureRPC).Mount(mux)

	authed := []connect.Interceptor{requireAuth, logRPC, measureRPC}
	service.NewIdentityService(store).Handlers(authed...).Mount(mux)
	service.NewFriendService(store).Handlers(authed...).Mount(mux)
	service.NewGroupService(store).Handlers(authed...).Mount(mux)
	service.NewExpenseService(store).Handlers(authed...).Mount(mux)

	mux.Handle("/metrics", promhttp.Handler())

	// h2c allows HTTP/2 without TLS, which Connect clients use locally.
	handler := h2c.NewHandler(corsMiddleware(mux), &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Connect server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
