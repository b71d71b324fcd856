package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calvinwijaya/blackjack-wallet/internal/api"
	"github.com/calvinwijaya/blackjack-wallet/internal/auth"
	"github.com/calvinwijaya/blackjack-wallet/internal/db"
	"github.com/calvinwijaya/blackjack-wallet/internal/game"
	"github.com/calvinwijaya/blackjack-wallet/internal/store"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Parse command line flags
	var (
		port        = flag.String("port", "8080", "Server port")
		dbDriver    = flag.String("db-driver", db.DriverSQLite3, "Database driver: sqlite3, sqlite or postgres")
		dbPath      = flag.String("db", "./data/blackjack.db", "Database path or DSN")
		frontendURL = flag.String("frontend", "http://localhost:5173", "Frontend URL for CORS")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign session tokens (default $JWT_SECRET)")
		tokenTTL    = flag.Duration("token-ttl", auth.DefaultTokenTTL, "Session token lifetime")
		drawPolicy  = flag.String("draw", "uniform", "Card draw policy: uniform or weighted")
		naturals    = flag.Bool("naturals", false, "Settle a two-card 21 right after the deal")
	)
	flag.Parse()

	gate, err := auth.NewGate(*jwtSecret, *tokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v (set -jwt-secret or JWT_SECRET)", err)
	}

	var sampler game.Sampler
	switch *drawPolicy {
	case "uniform":
		sampler = game.NewUniformSampler()
	case "weighted":
		sampler = game.NewWeightedSampler()
	default:
		log.Fatalf("Unknown draw policy %q", *drawPolicy)
	}
	rules := game.Rules{Sampler: sampler, ResolveNaturals: *naturals}
	log.Printf("House rules: draw=%s naturals=%v", *drawPolicy, *naturals)

	// Create data directory if it doesn't exist
	if *dbDriver != db.DriverPostgres {
		dataDir := filepath.Dir(*dbPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize the score store
	var scores store.ScoreStore
	database, err := db.NewDatabase(*dbDriver, *dbPath)
	if err != nil {
		log.Printf("Warning: Failed to initialize database: %v", err)
		log.Println("Continuing with in-memory scores")
		scores = store.NewMemoryScoreStore()
	} else {
		log.Printf("Database initialized successfully (%s)", database.Driver())
		defer database.Close()
		scores = store.NewDatabaseScoreStore(database)
	}

	// Initialize the session table
	sessions := store.NewMemoryStore(api.NewSessionLoader(scores, rules))
	log.Println("In-memory session store initialized")

	// Initialize WebSocket hub
	hub := api.NewHub()
	go hub.Run()
	log.Println("WebSocket hub started")

	// Initialize API handlers
	handlers := api.NewHandlers(sessions, scores, gate, hub)

	// Set up router
	r := mux.NewRouter()
	handlers.RegisterRoutes(r)

	// Add middleware for logging
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
		})
	})

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{*frontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a termination signal
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
