package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"skill-assessment-service/internal/app"
	"skill-assessment-service/internal/domain"
	"skill-assessment-service/internal/infra/memory"
	pgstore "skill-assessment-service/internal/infra/postgres"
	pgmigrations "skill-assessment-service/internal/infra/postgres/migrations"
	infraredis "skill-assessment-service/internal/infra/redis"
	"skill-assessment-service/internal/interview"
	"skill-assessment-service/internal/llm"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAssessmentEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedSkill(t, ctx, pgURL, "skill-1", "Go")

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	skills := pgstore.NewSkillStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	loader := memory.NewStaticQuestionLoader(map[string][]string{
		"Go": {
			"Explain how goroutines differ from OS threads.",
			"What does the select statement do?",
		},
	})
	questions := infraredis.NewQuestionCache(redisClient, loader, 5*time.Minute)
	registry := infraredis.NewSessionRegistry(redisClient, 5*time.Minute)

	provider := llm.NewMockProvider(
		llm.MockResponse{Text: "Rating: 8/10 | Suggestion: Mention the scheduler."},
		llm.MockResponse{Text: "Rating: 9/10 | Suggestion: None"},
		llm.MockResponse{Text: "Solid grasp of Go concurrency fundamentals."},
	)
	rater := interview.NewRater(provider)
	summarizer := interview.NewSummarizer(provider)

	service := app.NewAssessmentService(registry, questions, rater, summarizer, skills)

	session, err := service.Start(ctx, "Go", "skill-1", false)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	defer service.Close(session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	waitFor(t, updates, inProgressAt(0))
	answer(t, session, "Goroutines are multiplexed onto OS threads by the runtime.")
	waitFor(t, updates, inProgressAt(1))
	answer(t, session, "It waits on multiple channel operations at once.")
	final := waitFor(t, updates, func(s domain.SessionSnapshot) bool {
		return s.State == domain.StateComplete
	})

	if final.Result == nil {
		t.Fatalf("expected result on complete snapshot")
	}
	if !final.Result.Passed || final.Result.TotalScore != 17 || final.Result.MaxScore != 20 {
		t.Fatalf("unexpected result: %+v", final.Result)
	}
	if final.Result.FinalFeedback != "Solid grasp of Go concurrency fundamentals." {
		t.Fatalf("unexpected feedback: %q", final.Result.FinalFeedback)
	}

	skill, err := skills.GetSkill(ctx, "skill-1")
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if !skill.Verified {
		t.Fatalf("expected skill-1 to be verified after passing")
	}

	// Second lookup for the same skill must hit the Redis cache.
	set, err := questions.Questions(ctx, "Go")
	if err != nil {
		t.Fatalf("cached questions: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 cached questions, got %d", len(set))
	}
}

func waitFor(t *testing.T, ch <-chan domain.SessionSnapshot, cond func(domain.SessionSnapshot) bool) domain.SessionSnapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("snapshot channel closed while waiting")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot condition")
		}
	}
}

func inProgressAt(index int) func(domain.SessionSnapshot) bool {
	return func(s domain.SessionSnapshot) bool {
		return s.State == domain.StateInProgress && s.QuestionIndex == index
	}
}

func answer(t *testing.T, session *app.Session, text string) {
	t.Helper()
	if err := session.Edit(text); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "assess", "POSTGRES_PASSWORD": "assesspass", "POSTGRES_DB": "assessdb"},
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
	dsn := fmt.Sprintf("postgres://assess:assesspass@%s:%s/assessdb?sslmode=disable", host, port.Port())
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

func seedSkill(t *testing.T, ctx context.Context, dsn, id, name string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO skills (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`, id, name); err != nil {
		t.Fatalf("insert skill: %v", err)
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
