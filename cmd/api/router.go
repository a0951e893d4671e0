package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"connectrpc.com/connect"
	c "connectrpc.com/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
	"github.com/FACorreiaa/budget-tracker/pkg/observability"
)

const (
	// authBodyBytes bounds credential payloads.
	authBodyBytes int64 = 1 << 20
	// uploadOverheadBytes leaves room for the base64 envelope around a statement.
	uploadOverheadBytes int64 = 64 << 10
)

// SetupRouter configures all routes and returns the HTTP service
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("JWT secret is empty; authentication interceptor will reject requests")
	}

	publicProcedures := []string{
		v1.AuthServiceRegisterProcedure,
		v1.AuthServiceLoginProcedure,
		v1.AuthServiceRefreshTokenProcedure,
		v1.AuthServiceLogoutProcedure,
	}

	tracer := otel.GetTracerProvider().Tracer("budget/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
		interceptors.NewValidationInterceptor(),
	}
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain,
		interceptors.NewRecoveryInterceptor(deps.Logger),
		interceptors.NewLoggingInterceptor(deps.Logger),
		interceptors.NewAuthInterceptor(jwtSecret, publicProcedures...),
		observability.NewMetricsInterceptor(),
	)

	registerConnectRoutes(mux, deps, connect.WithInterceptors(chain...))
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods(),
		AllowedHeaders:   append(c.AllowedHeaders(), "Authorization", "X-Request-ID"),
		ExposedHeaders:   append(c.ExposedHeaders(), "X-Request-ID"),
		AllowCredentials: true,
		MaxAge:           7200, // Cache preflights for 2 hours
	})

	return corsHandler.Handler(mux)
}

// registerConnectRoutes mounts the four Connect services.
func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts connect.HandlerOption) {
	authPath, authHandler := budgetv1connect.NewAuthServiceHandler(deps.AuthHandler, opts)
	mux.Handle(authPath, limitBody(authHandler, authBodyBytes, true))
	deps.Logger.Info("registered Connect RPC service", "path", authPath)

	userPath, userHandler := budgetv1connect.NewUserServiceHandler(deps.UserHandler, opts)
	mux.Handle(userPath, limitBody(userHandler, authBodyBytes, false))
	deps.Logger.Info("registered Connect RPC service", "path", userPath)

	// JSON carries the statement bytes as base64.
	uploadBytes := deps.Config.Import.MaxUploadBytes*4/3 + uploadOverheadBytes
	importPath, importHandler := budgetv1connect.NewImportServiceHandler(deps.ImportHandler, opts,
		connect.WithReadMaxBytes(int(uploadBytes)))
	mux.Handle(importPath, limitBody(importHandler, uploadBytes, false))
	deps.Logger.Info("registered Connect RPC service", "path", importPath)

	expensePath, expenseHandler := budgetv1connect.NewExpenseServiceHandler(deps.ExpenseHandler, opts)
	mux.Handle(expensePath, limitBody(expenseHandler, authBodyBytes, false))
	deps.Logger.Info("registered Connect RPC service", "path", expensePath)

	deps.Logger.Info("Connect RPC routes configured")
}

// limitBody caps the request body. noStore marks responses that carry
// credentials as uncacheable.
func limitBody(next http.Handler, maxBodyBytes int64, noStore bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if noStore {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("database unhealthy")); writeErr != nil {
				deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("/health/details", func(w http.ResponseWriter, _ *http.Request) {
		writeHealthDetails(w, deps)
	})
	deps.Logger.Info("registered health details", "path", "/health/details")

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}

type componentStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// writeHealthDetails reports the database, the AI classifier and the upload
// session store. Only a database failure makes the service unavailable.
func writeHealthDetails(w http.ResponseWriter, deps *Dependencies) {
	result := map[string]componentStatus{
		"db":       {Status: "ok"},
		"ai":       {Status: "ok"},
		"sessions": {Status: "ok"},
	}
	code := http.StatusOK

	if err := deps.DB.Health(); err != nil {
		result["db"] = componentStatus{Status: "fail", Detail: err.Error()}
		code = http.StatusServiceUnavailable
	}
	if !deps.Config.AI.Enabled() {
		result["ai"] = componentStatus{Status: "warn", Detail: "ANTHROPIC_API_KEY missing"}
	}
	if deps.Sessions != nil {
		result["sessions"] = componentStatus{Status: "ok", Detail: "active uploads: " + strconv.Itoa(deps.Sessions.Len())}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		deps.Logger.Error("failed to encode health details", slog.Any("error", err))
	}
}
