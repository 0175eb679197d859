package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/auth"
	"github.com/hexclash/arena/internal/betting"
	"github.com/hexclash/arena/internal/config"
	"github.com/hexclash/arena/internal/handler"
	"github.com/hexclash/arena/internal/llm"
	"github.com/hexclash/arena/internal/logger"
	"github.com/hexclash/arena/internal/market"
	"github.com/hexclash/arena/internal/memory"
	"github.com/hexclash/arena/internal/middleware"
	"github.com/hexclash/arena/internal/rating"
	"github.com/hexclash/arena/internal/repository/postgres"
	redisrepo "github.com/hexclash/arena/internal/repository/redis"
	"github.com/hexclash/arena/internal/service"
	"github.com/hexclash/arena/internal/sponsor"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for epoch clock expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (epoch clock may rely on the poller)")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	battleRepo := postgres.NewBattleRepo(db)
	betRepo := postgres.NewBetRepo(db)
	sponsorshipRepo := postgres.NewSponsorshipRepo(db)
	memoryRepo := postgres.NewMemoryRepo(db)
	ratingRepo := postgres.NewRatingRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)

	// LLM strategist. Without keys the agents run on class heuristics.
	var llmClient llm.Client
	if cfg.HasLLMKeys() {
		var providers []llm.Provider
		if cfg.GroqAPIKey != "" {
			providers = append(providers, llm.NewGroq(cfg.GroqAPIKey))
		}
		if cfg.GoogleAPIKey != "" {
			providers = append(providers, llm.NewGemini(cfg.GoogleAPIKey))
		}
		if cfg.OpenRouterAPIKey != "" {
			providers = append(providers, llm.NewOpenRouter(cfg.OpenRouterAPIKey))
		}
		llmClient = llm.NewRouter(providers...)
	} else {
		log.Warn().Msg("No LLM API keys configured, agents will use heuristics")
		llmClient = llm.NewSimClient()
	}

	// Market oracle: external feed when configured, seeded walk otherwise.
	var oracle market.Oracle
	if cfg.OracleURL != "" {
		oracle = market.NewHTTPOracle(cfg.OracleURL)
	} else {
		oracle = market.NewSimOracle(time.Now().UnixNano())
	}

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	bettingSvc := betting.NewService(battleRepo, betRepo, userRepo, redisClient)
	sponsorSvc := sponsor.NewService(sponsorshipRepo, userRepo)
	memorySvc := memory.NewService(memoryRepo)
	ratingSvc := rating.NewService(ratingRepo)
	coordinator := service.NewCoordinator(
		battleRepo, redisClient, oracle, llmClient,
		memorySvc, bettingSvc, sponsorSvc, ratingSvc,
		wsHub, cfg.EpochInterval,
	)
	battleSvc := service.NewBattleService(battleRepo, redisClient, bettingSvc, sponsorSvc, cfg.MaxEpochs, cfg.EpochInterval)

	// Tick listener (epoch advance on clock expiry)
	tickListener := service.NewTickListener(redisClient.Underlying(), coordinator, redisClient)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo)
	userHandler := handler.NewUserHandler(userRepo)
	battleHandler := handler.NewBattleHandler(battleSvc, battleRepo)
	betHandler := handler.NewBetHandler(battleSvc)
	sponsorHandler := handler.NewSponsorHandler(battleSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(ratingSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, battleSvc.Snapshot)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("POST /users/me/faucet", userHandler.ClaimFaucet)
	api.HandleFunc("GET /users/{id}", userHandler.GetUser)
	api.HandleFunc("POST /battles", battleHandler.CreateBattle)
	api.HandleFunc("GET /battles", battleHandler.ListBattles)
	api.HandleFunc("GET /battles/{id}", battleHandler.GetBattle)
	api.HandleFunc("GET /battles/{id}/epochs", battleHandler.ListEpochs)
	api.HandleFunc("GET /battles/{id}/odds", battleHandler.GetOdds)
	api.HandleFunc("POST /battles/{id}/bets", betHandler.PlaceBet)
	api.HandleFunc("POST /battles/{id}/sponsorships", sponsorHandler.Sponsor)
	api.HandleFunc("GET /leaderboard", leaderboardHandler.GetLeaderboard)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Re-arm epoch clocks for battles that were live before the restart.
	if err := coordinator.RecoverActiveBattles(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active battles (non-fatal)")
	}

	// Start tick listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tickListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
