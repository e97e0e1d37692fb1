package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chirpnet/chirpnet/infrastructure/http/handler"
	"github.com/chirpnet/chirpnet/infrastructure/http/middleware"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

// Server wires the router, middleware chain and timeouts around the handlers.
type Server struct {
	addr   string
	server *http.Server
	logger logger.Logger
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

func NewServer(
	config ServerConfig,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authMiddleware *middleware.AuthMiddleware,
	log logger.Logger,
) *Server {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 15 * time.Second
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}

	router := mux.NewRouter()

	router.Use(middleware.Correlation)
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	api := router.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/token/refresh", authHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/password-reset", authHandler.PasswordReset).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/logout", authMiddleware.RequireAuth(authHandler.Logout)).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/change-password", authMiddleware.RequireAuth(authHandler.ChangePassword)).Methods(http.MethodPost, http.MethodOptions)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/me", authMiddleware.RequireAuth(userHandler.Me)).Methods(http.MethodGet, http.MethodOptions)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	return &Server{
		addr:   config.Addr,
		logger: log,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info(r.Context(), "Request handled", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"duration":    time.Since(start).String(),
			})
		})
	}
}

func recoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "Panic recovered", nil, map[string]interface{}{
						"panic": rec,
						"path":  r.URL.Path,
					})
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
