package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"balance-ledger/internal/config"
	"balance-ledger/internal/handler"
	"balance-ledger/internal/identity"
	"balance-ledger/internal/service"
	"balance-ledger/internal/statestore"
)

// Server represents the HTTP host surface. It resolves caller identity,
// routes invocations to the ledger services, and owns the store lifecycle.
type Server struct {
	router *mux.Router
	server *http.Server
	store  statestore.Store
	logger *slog.Logger
	port   string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	accountService := service.NewAccountService(store, logger)
	transferService := service.NewTransferService(store, logger)

	accountHandler := handler.NewAccountHandler(accountService)
	transferHandler := handler.NewTransferHandler(transferService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if pg, ok := store.(*statestore.PostgresStore); ok {
			if err := pg.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "store unavailable"})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	// Every ledger route requires an attested caller.
	api := router.NewRoute().Subrouter()
	api.Use(authMiddleware([]byte(cfg.JWTSecret)))

	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/balance", accountHandler.SetBalance).Methods("PUT")
	api.HandleFunc("/transfers", transferHandler.Transfer).Methods("POST")

	return &Server{
		router: router,
		store:  store,
		logger: logger,
	}, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (statestore.Store, error) {
	if cfg.StoreBackend == "memory" {
		logger.Info("Using in-memory store")
		return statestore.NewMemStore(), nil
	}

	store, err := statestore.OpenPostgres(cfg.GetDBConnectionString(), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to postgres store")
	return store, nil
}

// identityClaims are the token claims the host surface attests: the
// caller's organization plus the registered subject as caller id.
type identityClaims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

func authMiddleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims := &identityClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			if claims.Org == "" || claims.Subject == "" {
				writeUnauthorized(w, "token carries no principal")
				return
			}

			ctx := identity.WithPrincipal(r.Context(), identity.Principal{
				Org: claims.Org,
				ID:  claims.Subject,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Start begins listening on the given port; port "0" picks a free one.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	s.port = strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.store != nil {
		s.store.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - keep logs out of the way
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	srv, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := srv.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return srv, port, nil
}
