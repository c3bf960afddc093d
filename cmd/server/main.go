package main

import (
	"fmt"
	"log"

	"aicalorie/internal/auth/apple"
	"aicalorie/internal/auth/google"
	"aicalorie/internal/config"
	"aicalorie/internal/domain"
	"aicalorie/internal/handler"
	"aicalorie/internal/port"
	"aicalorie/internal/router"
	"aicalorie/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize provider verifiers
	appleVerifier := apple.NewVerifier(cfg.Auth.Apple, cfg.Auth.HTTPTimeout)
	googleVerifier := google.NewVerifier(cfg.Auth.Google, cfg.Auth.HTTPTimeout)
	verifiers := map[string]port.TokenVerifier{
		string(domain.AuthProviderApple):  appleVerifier,
		string(domain.AuthProviderGoogle): googleVerifier,
	}

	// Initialize services
	identitySvc := service.NewIdentityService(verifiers)

	// Initialize handlers
	authH := handler.NewAuthHandler(identitySvc)
	healthH := handler.NewHealthHandler()

	// Setup router
	r := router.Setup(authH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
