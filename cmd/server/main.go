package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchgate/couchgate/internal/api"
	"github.com/couchgate/couchgate/internal/cache"
	"github.com/couchgate/couchgate/internal/config"
	"github.com/couchgate/couchgate/internal/database"
	"github.com/couchgate/couchgate/internal/provision"
	"github.com/couchgate/couchgate/internal/xtream"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting CouchGate API Server...")

	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established")

	// Initialize stores
	providerStore, err := database.NewProviderStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize provider store: %v", err)
	}
	codeStore, err := database.NewCodeStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize code store: %v", err)
	}
	profileStore, err := database.NewProfileStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize profile store: %v", err)
	}
	activityStore, err := database.NewActivityStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize activity store: %v", err)
	}
	adminStore, err := database.NewAdminStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize admin store: %v", err)
	}
	log.Println("Database stores initialized")

	// Bootstrap the first admin account from the environment
	if err := bootstrapAdmin(adminStore, cfg); err != nil {
		log.Fatalf("Failed to bootstrap admin account: %v", err)
	}

	// Upstream client and catalog
	client := xtream.NewClient()
	catalog := xtream.NewCatalog(client)
	resolver := provision.NewResolver(providerStore, client)

	// Catalog response cache
	catalogCache, err := cache.New(db, time.Duration(cfg.CatalogCacheTTL)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize catalog cache: %v", err)
	}
	if cfg.CatalogCacheTTL > 0 {
		log.Printf("Catalog cache enabled (TTL: %dm)", cfg.CatalogCacheTTL)
	} else {
		log.Println("Catalog cache disabled")
	}

	handler := api.NewHandler(resolver, client, catalog, catalogCache, codeStore, profileStore, activityStore, adminStore)
	router := api.SetupRoutes(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second, // playlist fetches can take up to 60s
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s:%d", cfg.Host, cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// bootstrapAdmin creates the initial admin account on first run. Once any
// admin exists the environment credentials are ignored.
func bootstrapAdmin(store *database.AdminStore, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.AdminPassword == "" {
		log.Println("Warning: no admin account exists and COUCHGATE_ADMIN_PASSWORD is not set; admin API is unusable until one is created")
		return nil
	}

	if _, err := store.Create(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}
	log.Printf("Created initial admin account %q", cfg.AdminUsername)
	return nil
}
