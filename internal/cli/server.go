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

	"skill-assessment-service/internal/app"
	"skill-assessment-service/internal/config"
	"skill-assessment-service/internal/infra/memory"
	pgstore "skill-assessment-service/internal/infra/postgres"
	redisinfra "skill-assessment-service/internal/infra/redis"
	"skill-assessment-service/internal/interview"
	"skill-assessment-service/internal/llm"
	transport "skill-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api key not configured (set gemini.api_key or GEMINI_API_KEY)")
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

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		return err
	}
	model := llm.WithRetry(provider, llm.DefaultRetryConfig())

	source := interview.NewSource(model, cfg.Assessment.QuestionCount)
	rater := interview.NewRater(model)
	summarizer := interview.NewSummarizer(model)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	questionTTL := config.TTLDuration(cfg.Assessment.QuestionTTL, 10*time.Minute)

	var questions app.QuestionProvider
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, source, questionTTL)
	} else {
		questions = memory.NewQuestionCache(source, questionTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, sessionTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var skills app.SkillStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		skills = pgstore.NewSkillStore(pool)
	} else {
		// Without Postgres, sessions run but verification is not persisted.
		skills = memory.NewSkillStore()
	}

	var opts []app.Option
	if cfg.Assessment.QuestionSeconds > 0 {
		opts = append(opts, app.WithQuestionSeconds(cfg.Assessment.QuestionSeconds))
	}
	service := app.NewAssessmentService(registry, questions, rater, summarizer, skills, opts...)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment service on :%s (model %s)", finalPort, model.ModelID())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
