package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"estateadmin/config"
	_ "estateadmin/docs"
	authadapter "estateadmin/internal/adapters/auth"
	emailadapter "estateadmin/internal/adapters/email"
	httpdelivery "estateadmin/internal/delivery/http"
	"estateadmin/internal/delivery/http/controllers"
	"estateadmin/internal/delivery/http/middleware"
	"estateadmin/internal/repository/postgres"
	"estateadmin/internal/services"
)

const contextTimeout = 5 * time.Second

// @title Estate Admin API
// @version 1.0
// @description Multi-tenant estate administration backend: estates, collaborators, invites, and audit trail.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	estateRepo := postgres.NewEstateRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	hasher := authadapter.NewBcryptHasher(bcrypt.DefaultCost)
	issuer, verifier := authadapter.NewJWTCodec(cfg.JWTSecret)

	mailer, err := emailadapter.NewMailer(emailadapter.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: emailadapter.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.AWSInsecureSkipVerify,
		},
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, emailadapter.NewTemplateRenderer())

	gate := services.NewGate()
	auditLogger := services.NewAuditLogger(auditRepo, logger)
	authService := services.NewAuthService(userRepo, hasher, issuer, cfg.JWTExpiry, emailService, logger)
	estateService := services.NewEstateService(estateRepo, auditRepo, gate, auditLogger, contextTimeout)
	inviteService := services.NewInviteService(estateRepo, userRepo, gate, auditLogger, emailService, cfg.AppBaseURL, logger, contextTimeout)

	limiter := middleware.NewSlidingWindow(middleware.DefaultRateLimit, middleware.DefaultRateWindow, nil)

	mux := httpdelivery.NewRouter(
		verifier,
		limiter,
		controllers.NewAuthController(logger, authService),
		controllers.NewEstateController(logger, estateService),
		controllers.NewInviteController(logger, inviteService),
	)

	var handler http.Handler = mux
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
