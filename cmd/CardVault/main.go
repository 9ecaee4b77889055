package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebuszqo/CardVault/internal/auth"
	"github.com/sebuszqo/CardVault/internal/config"
	database "github.com/sebuszqo/CardVault/internal/db"
	"github.com/sebuszqo/CardVault/internal/payment/application"
	"github.com/sebuszqo/CardVault/internal/payment/infrastructure"
	"github.com/sebuszqo/CardVault/internal/payment/interfaces"
	"github.com/sebuszqo/CardVault/internal/user"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type Response struct {
	Message string `json:"message"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("Completed request")
	})
}

// corsMiddleware allows the configured frontend origin and answers preflight requests.
func corsMiddleware(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && origin == allowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	router         *http.ServeMux
	authHandler    *auth.Handler
	userHandler    *user.Handler
	paymentHandler *interfaces.PaymentHandler
	authService    auth.Service
	db             healthChecker
}

func NewServer(authHandler *auth.Handler, authService auth.Service, userHandler *user.Handler, paymentHandler *interfaces.PaymentHandler, db healthChecker) *Server {
	return &Server{
		authHandler:    authHandler,
		userHandler:    userHandler,
		paymentHandler: paymentHandler,
		authService:    authService,
		db:             db,
		router:         http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFoundHandler(w, r)
		return
	}
	interfaces.RespondJSON(w, http.StatusOK, Response{Message: "CardVault API"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health["status"] != "up" {
		log.Printf("Readiness check failed: %s", health["error"])
		interfaces.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not ready",
			"database": map[string]string{"status": health["status"]},
		})
		return
	}
	interfaces.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"database": health,
	})
}

func (s *Server) RegisterRoutes() {
	protected := s.authService.JWTAccessTokenMiddleware()

	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/auth/signup", http.HandlerFunc(s.authHandler.HandleSignup))
	publicRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	publicRoutes.Handle("GET /api/auth/me", protected(http.HandlerFunc(s.userHandler.HandleGetUserProfile)))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	// Stripe routes, all but the config lookup behind the access token
	stripeRoutes := http.NewServeMux()
	stripeRoutes.Handle("GET /api/stripe/config", http.HandlerFunc(s.paymentHandler.GetConfig))
	stripeRoutes.Handle("POST /api/stripe/setup-intent",
		protected(http.HandlerFunc(s.paymentHandler.CreateSetupIntent)))
	stripeRoutes.Handle("POST /api/stripe/save-payment-method",
		protected(http.HandlerFunc(s.paymentHandler.SavePaymentMethod)))
	stripeRoutes.Handle("GET /api/stripe/payment-methods",
		protected(http.HandlerFunc(s.paymentHandler.GetPaymentMethods)))
	stripeRoutes.Handle("DELETE /api/stripe/payment-methods/{paymentMethodID}",
		protected(s.paymentHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.paymentHandler.RemovePaymentMethod), "paymentMethodID")))

	// Main router
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/stripe/", stripeRoutes)
	mainRouter.Handle("/", http.HandlerFunc(rootHandler))

	s.router = mainRouter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}

	dbService, err := database.NewDBService(cfg.DBConnectionString)
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := dbService.ApplySchema(context.Background()); err != nil {
		log.Fatalf("Could not apply database schema: %v", err)
	}

	userRepo := user.NewUserRepository(dbService.DB)
	userService := user.NewUserService(userRepo)
	userHandler := user.NewHandler(userService, auth.UserIDFromRequest)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenDuration)
	authService := auth.NewAuthService(userService, jwtManager)
	authHandler := auth.NewHandler(authService)

	stripeClient := infrastructure.NewStripeClient(infrastructure.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		Timeout:   cfg.StripeHTTPTimeout,
	})
	paymentRepo := infrastructure.NewPaymentMethodRepository(dbService.DB)
	stripeGateway := infrastructure.NewStripeGateway(stripeClient)
	onboardingService := application.NewOnboardingService(paymentRepo, stripeGateway, userService)
	paymentHandler := interfaces.NewPaymentHandler(
		onboardingService,
		cfg.StripePublishableKey,
		auth.UserIDFromRequest,
		interfaces.RespondJSON,
		interfaces.RespondError,
	)

	server := NewServer(authHandler, authService, userHandler, paymentHandler, dbService)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           loggingMiddleware(corsMiddleware(cfg.FrontendURL, server.router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
