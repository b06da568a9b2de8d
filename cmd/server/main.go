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

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"

	"github.com/lu-jeremy/food-bridge/internal/config"
	"github.com/lu-jeremy/food-bridge/internal/discovery"
	"github.com/lu-jeremy/food-bridge/internal/embedding"
	"github.com/lu-jeremy/food-bridge/internal/geo"
	"github.com/lu-jeremy/food-bridge/internal/handlers"
	"github.com/lu-jeremy/food-bridge/internal/messaging"
	"github.com/lu-jeremy/food-bridge/internal/middleware"
	"github.com/lu-jeremy/food-bridge/internal/repository"
	"github.com/lu-jeremy/food-bridge/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := repository.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("Connected to %s database", cfg.DBDriver)

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	producer := messaging.NewNoopProducer()
	if cfg.EventsEnabled() {
		producer = messaging.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("Publishing marketplace events to %s", cfg.KafkaTopic)
	}
	defer producer.Close()

	geocoder := geo.NewNominatimGeocoder(cfg.GeocoderURL)
	embedder := embedding.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)

	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	identityService := service.NewIdentityService(accountRepo, geocoder, cfg.JWTSecret)
	listingService := service.NewListingService(listingRepo, accountRepo, producer, cfg.ExcludeExpired)
	requestService := service.NewRequestService(requestRepo, listingRepo, accountRepo, producer, cfg.ReservationPolicy)
	matchingService := service.NewMatchingService(embedder)
	log.Printf("Reservation policy: %s", cfg.ReservationPolicy)

	accountHandler := handlers.NewAccountHandler(identityService)
	listingHandler := handlers.NewListingHandler(listingService, matchingService)
	requestHandler := handlers.NewRequestHandler(requestService)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/accounts/register", accountHandler.Register).Methods(http.MethodPost)
	router.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/accounts/me", middleware.AuthMiddleware(accountHandler.GetProfile, cfg.JWTSecret)).Methods(http.MethodGet)

	router.HandleFunc("/listings", middleware.AuthMiddleware(listingHandler.Create, cfg.JWTSecret)).Methods(http.MethodPost)
	router.HandleFunc("/listings", middleware.AuthMiddleware(listingHandler.Browse, cfg.JWTSecret)).Methods(http.MethodGet)
	router.HandleFunc("/listings/mine", middleware.AuthMiddleware(listingHandler.MyListings, cfg.JWTSecret)).Methods(http.MethodGet)
	router.HandleFunc("/listings/{id:[0-9]+}/withdraw", middleware.AuthMiddleware(listingHandler.Withdraw, cfg.JWTSecret)).Methods(http.MethodPost)

	router.HandleFunc("/requests", middleware.AuthMiddleware(requestHandler.Create, cfg.JWTSecret)).Methods(http.MethodPost)
	router.HandleFunc("/requests/mine", middleware.AuthMiddleware(requestHandler.MyRequests, cfg.JWTSecret)).Methods(http.MethodGet)
	router.HandleFunc("/requests/{id:[0-9]+}/accept", middleware.AuthMiddleware(requestHandler.Accept, cfg.JWTSecret)).Methods(http.MethodPost)
	router.HandleFunc("/requests/{id:[0-9]+}/reject", middleware.AuthMiddleware(requestHandler.Reject, cfg.JWTSecret)).Methods(http.MethodPost)
	router.HandleFunc("/requests/{id:[0-9]+}/fulfill", middleware.AuthMiddleware(requestHandler.Fulfill, cfg.JWTSecret)).Methods(http.MethodPost)

	router.HandleFunc("/health", accountHandler.HealthCheck).Methods(http.MethodGet)

	if cfg.ConsulAddr != "" {
		consulClient, err := discovery.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			return fmt.Errorf("failed to create consul client: %w", err)
		}

		serviceID := fmt.Sprintf("food-bridge-%s", cfg.ServiceID)
		if err := consulClient.RegisterService(serviceID, "food-bridge", cfg.ServerPort); err != nil {
			return fmt.Errorf("failed to register service with consul: %w", err)
		}
		log.Printf("Registered with Consul as %s", serviceID)

		defer func() {
			if err := consulClient.DeregisterService(serviceID); err != nil {
				log.Printf("Failed to deregister service: %v", err)
			}
		}()
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting food-bridge on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited gracefully")
	return nil
}
