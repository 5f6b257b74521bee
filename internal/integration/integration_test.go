package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/domain"
	"space-quiz-bot/internal/infra/postgres"
	"space-quiz-bot/internal/infra/postgres/migrations"
	infraredis "space-quiz-bot/internal/infra/redis"
)

func TestFullQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	questions := infraredis.NewCatalogCache(redisClient, postgres.NewQuestionStore(pool), 5*time.Minute)
	progress := postgres.NewProgressStore(pool)
	leaderboard := postgres.NewLeaderboardStore(pool)
	users := postgres.NewUserStore(pool)
	engine := app.NewQuizService(questions, progress, leaderboard, users, 10)

	for _, q := range []domain.Question{
		{Prompt: "What is the closest star?", Options: [4]string{"Sirius", "The Sun", "Vega", "Polaris"}, CorrectOption: 2},
		{Prompt: "Which planet has rings?", Options: [4]string{"Saturn", "Mercury", "Mars", "Venus"}, CorrectOption: 1},
	} {
		if _, err := engine.AddQuestion(ctx, q); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}

	// Alice answers everything first try.
	if _, err := engine.Begin(ctx, 1, "Alice"); err != nil {
		t.Fatalf("begin alice: %v", err)
	}
	if _, err := engine.Answer(ctx, 1, 1, 2); err != nil {
		t.Fatalf("alice answer 1: %v", err)
	}
	render, err := engine.Answer(ctx, 1, 2, 1)
	if err != nil {
		t.Fatalf("alice answer 2: %v", err)
	}
	if render.Kind != domain.RenderFinished || !render.Result.NewBest {
		t.Fatalf("expected alice to finish with a new best, got %+v", render)
	}

	// Bob stumbles on the first question before finishing.
	if _, err := engine.Begin(ctx, 2, "Bob"); err != nil {
		t.Fatalf("begin bob: %v", err)
	}
	render, err = engine.Answer(ctx, 2, 1, 3)
	if err != nil {
		t.Fatalf("bob wrong answer: %v", err)
	}
	if render.Kind != domain.RenderIncorrect {
		t.Fatalf("expected incorrect render, got %+v", render)
	}
	if _, err := engine.Answer(ctx, 2, 1, 2); err != nil {
		t.Fatalf("bob answer 1: %v", err)
	}
	render, err = engine.Answer(ctx, 2, 2, 1)
	if err != nil {
		t.Fatalf("bob answer 2: %v", err)
	}
	if render.Kind != domain.RenderFinished {
		t.Fatalf("expected bob to finish, got %+v", render)
	}

	top, err := engine.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected two leaderboard rows, got %+v", top)
	}

	stats, err := engine.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("stats alice: %v", err)
	}
	if !stats.Ranked {
		t.Fatalf("alice must be ranked, got %+v", stats)
	}

	// Deleting the first question renumbers the survivor to position 1,
	// visible through the cache after invalidation.
	if _, err := engine.DeleteQuestion(ctx, 1); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	remaining, err := engine.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Position != 1 || remaining[0].Prompt != "Which planet has rings?" {
		t.Fatalf("expected renumbered catalog, got %+v", remaining)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
