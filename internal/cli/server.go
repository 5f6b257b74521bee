package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/config"
	"space-quiz-bot/internal/infra/memory"
	pgstore "space-quiz-bot/internal/infra/postgres"
	rediscache "space-quiz-bot/internal/infra/redis"
	transport "space-quiz-bot/internal/transport/http"
	"space-quiz-bot/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		questions   app.QuestionStore
		progress    app.ProgressStore
		leaderboard app.LeaderboardStore
		users       app.UserStore
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		questions = pgstore.NewQuestionStore(pool)
		progress = pgstore.NewProgressStore(pool)
		leaderboard = pgstore.NewLeaderboardStore(pool)
		users = pgstore.NewUserStore(pool)
	} else {
		memProgress := memory.NewProgressStore()
		memLeaderboard := memory.NewLeaderboardStore()
		questions = memory.NewQuestionStore()
		progress = memProgress
		leaderboard = memLeaderboard
		users = memory.NewUserStore(memProgress, memLeaderboard)
	}

	if redisClient != nil {
		catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
		questions = rediscache.NewCatalogCache(redisClient, questions, catalogTTL)
	}

	engine := app.NewQuizService(questions, progress, leaderboard, users, cfg.Leaderboard.TopSize)

	bot, err := telegram.NewBot(cfg.Telegram.Token, engine, cfg.Telegram.AdminIDs)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go bot.Run(runCtx)

	feed := transport.NewFeedHandler(engine)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", feed.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting feed server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
