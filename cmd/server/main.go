package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/authgate/internal/auth"
	"github.com/ayush/authgate/internal/config"
	"github.com/ayush/authgate/internal/mailer"
	"github.com/ayush/authgate/internal/middleware"
	"github.com/ayush/authgate/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// ── User store ───────────────────────────────────────────
	var users auth.UserStore
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sq, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite open: %v", err)
		}
		defer sq.Close()
		users = sq
		log.Printf("Using sqlite store at %s", cfg.SQLitePath)
	default:
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}
		users = pgStore
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)
	cooldown := store.NewCooldown(rdb, "authgate:cooldown:", cfg.SendCooldown)

	// ── MongoDB (optional) ───────────────────────────────────
	var events auth.EventRecorder = auth.LogEvents{}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("mongo connect: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		eventStore := store.NewEventStore(mongoClient.Database(cfg.MongoDB))
		if err := eventStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		events = eventStore
	} else {
		log.Println("MONGO_URI not set, auth events go to the log")
	}

	// ── Mail ─────────────────────────────────────────────────
	var mail mailer.Mailer = mailer.Log{}
	if cfg.SMTPAddr != "" {
		mail = &mailer.SMTP{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
	} else {
		log.Println("SMTP_ADDR not set, verification mail goes to the log")
	}

	// ── MinIO (optional) ─────────────────────────────────────
	if cfg.MinioEndpoint != "" {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("minio connect: %v", err)
		}
		mail = &mailer.Archive{Store: minioStore, Next: mail}
	}

	// ── Service ──────────────────────────────────────────────
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	svc := auth.NewService(users, mail, cooldown, tokens, auth.Options{
		BaseURL:             cfg.BaseURL,
		RequireVerification: cfg.RequireVerification,
		VerificationTTL:     cfg.VerificationTTL,
		MaxCodeAttempts:     cfg.MaxCodeAttempts,
	})
	authHandler := auth.NewHandler(svc, sessions, events)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler.Mount(r, middleware.RequireAuth(sessions, tokens))

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("authgate listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
