package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"go-relay/internal/db"
	myMiddleware "go-relay/internal/middleware"
	"go-relay/internal/presence"
	"go-relay/internal/relay"
	"go-relay/internal/user"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()
	if env := os.Getenv("SERVER_ADDR"); env != "" {
		*addr = env
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("❌ DB_DSN is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(dsn)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	// 3. Optional Redis presence mirror
	var announcer relay.Announcer
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")
		announcer = presence.NewRedisTracker(redisClient, "chat:online")
	}

	// 4. Initialize User Feature
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, jwtSecret)
	userHandler := user.NewHandler(userService)

	// 5. Initialize Relay Feature
	messageRepo := relay.NewRepository(database.Conn)
	history := relay.NewHistory(messageRepo)
	registry := relay.NewRegistry(announcer)
	hub := relay.NewHub(registry, messageRepo, history)
	go hub.Run()

	verifier := relay.NewVerifier(userService, userService)
	gateway := relay.NewGateway(hub, registry, verifier, history)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 6. Define Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public Routes
	r.Post("/auth/signup", userHandler.Signup)
	r.Post("/auth/signin", userHandler.SignIn)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// WebSocket: the gateway authenticates the handshake itself, after
	// the transport is accepted.
	r.Get("/ws", gateway.ServeWs)

	// Protected Routes (Require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/api/users/profile", userHandler.Profile)
		r.Patch("/api/users/color", userHandler.UpdateColor)
		r.Get("/api/online", gateway.OnlineUsers)
		r.Get("/api/messages", gateway.MessageHistory)
	})

	log.Printf("🚀 Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}
