package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/generator"
	"quiz-room-service/internal/infra/broker"
	"quiz-room-service/internal/infra/memory"
	"quiz-room-service/internal/infra/postgres"
	redisinfra "quiz-room-service/internal/infra/redis"
	transport "quiz-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
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

	settings := sessionSettings(cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = postgres.NewQuizArchive(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL, app.RoomFactory(settings))
	} else {
		rooms = memory.NewRoomStore(app.RoomFactory(settings))
	}

	secret := cfg.Auth.OwnerSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Printf("auth.owner_secret not set, using a per-process secret")
	}
	tokens := auth.NewOwnerTokens(secret, config.TTLDuration(cfg.Auth.OwnerTTL, 12*time.Hour))

	opts := []app.Option{
		app.WithGenerator(generator.NewOpenAIGenerator(generator.Config{
			BaseURL: cfg.Generator.BaseURL,
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			Timeout: config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
		})),
	}
	if cfg.Broker.URL != "" {
		queue := cfg.Broker.Queue
		if queue == "" {
			queue = "quiz.results"
		}
		publisher, err := broker.Dial(cfg.Broker.URL, queue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
	}

	service := app.NewRoomService(rooms, quizRepo, tokens, settings, opts...)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(
		transport.NewAPI(service, cfg.Server.PublicURL),
		transport.NewWSHandler(service),
	)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func sessionSettings(cfg config.Config) app.Settings {
	settings := app.DefaultSettings()
	if cfg.Session.InstructorName != "" {
		settings.InstructorName = cfg.Session.InstructorName
	}
	if cfg.Session.PointsPerAnswer > 0 {
		settings.PointsPerAnswer = cfg.Session.PointsPerAnswer
	}
	settings.EnforceDeadline = cfg.Session.EnforceDeadline
	settings.DeadlineGrace = config.TTLDuration(cfg.Session.DeadlineGrace, settings.DeadlineGrace)
	return settings
}

// sampleQuizzes seeds a demo quiz for setups without an archive.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:    "demo",
			Topic: "General knowledge",
			Questions: []domain.Question{
				{ID: "demo-1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectIndex: 1, Difficulty: "Easy"},
				{ID: "demo-2", Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Jupiter", "Mars", "Saturn"}, CorrectIndex: 2, Difficulty: "Easy"},
				{ID: "demo-3", Prompt: "In which year did World War 2 begin?", Options: []string{"1914", "1939", "1941", "1945"}, CorrectIndex: 1, Difficulty: "Medium"},
			},
		},
	}
}
