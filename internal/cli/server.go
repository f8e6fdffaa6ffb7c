package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"classquiz-service/internal/app"
	"classquiz-service/internal/config"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/memory"
	infrapg "classquiz-service/internal/infra/postgres"
	infraredis "classquiz-service/internal/infra/redis"
	transport "classquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz platform server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		users   app.UserRepository
		quizzes app.QuizRepository
		subLog  app.SubmissionLog
	)
	if pool != nil {
		users = infrapg.NewUserStore(pool)
		quizzes = infrapg.NewQuizStore(pool)
		subLog = infrapg.NewSubmissionStore(pool)
	} else {
		memUsers := memory.NewUserRepository()
		memQuizzes := memory.NewQuizRepository()
		if err := seedDemoData(ctx, memUsers, memQuizzes); err != nil {
			return err
		}
		users = memUsers
		quizzes = memQuizzes
		subLog = memory.NewSubmissionLog()
	}

	cacheTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var quizReader app.QuizReader
	var quizCache app.QuizInvalidator
	if redisClient != nil {
		cache := infraredis.NewQuizCache(redisClient, quizzes, cacheTTL)
		quizReader, quizCache = cache, cache
	} else {
		cache := memory.NewQuizCache(quizzes, cacheTTL)
		quizReader, quizCache = cache, cache
	}

	tokenTTL := config.Duration(cfg.Auth.TokenTTL, 24*time.Hour)
	var sessions app.SessionStore
	var liveness app.LivenessStore
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, tokenTTL)
		liveness = infraredis.NewLivenessStore(redisClient)
	} else {
		sessions = memory.NewSessionStore()
	}

	interval := config.Duration(cfg.Presence.Interval, time.Minute)
	window := config.Duration(cfg.Presence.Window, 5*time.Minute)
	tracker := app.NewTracker(users, liveness, interval, window)
	defer tracker.EndSession()

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "classquiz-dev-secret"
		log.Printf("auth secret not configured, using development default")
	}
	identity := app.NewIdentityService(users, sessions, []byte(secret), tokenTTL)
	identity.BindPresence(tracker)

	roster := app.NewRosterService(users)
	quizService := app.NewQuizService(quizzes, users)
	quizService.BindCache(quizCache)
	submissionService := app.NewSubmissionService(quizReader, subLog)

	if profile, ok, err := identity.RestoreSession(ctx); err != nil {
		log.Printf("restore session: %v", err)
	} else if ok {
		log.Printf("restored session for %s (%s)", profile.Name, profile.Role)
	}

	handler := transport.NewHandler(identity, roster, quizService, submissionService, tracker)
	wsHandler := transport.NewWSHandler(identity, tracker)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/active-users", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting classquiz service on :%s", finalPort)
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

// seedDemoData loads the demo accounts and quizzes used when running
// without Postgres.
func seedDemoData(ctx context.Context, users *memory.UserRepository, quizzes *memory.QuizRepository) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()

	demoUsers := []domain.StoredCredential{
		{
			ID: "teacher-1", Name: "Teacher Smith", Email: "teacher@example.com",
			PasswordHash: string(hash), Role: domain.RoleTeacher,
			LastActive: now, StudentIDs: []string{"student-1"},
		},
		{
			ID: "student-1", Name: "Student Jones", Email: "student@example.com",
			PasswordHash: string(hash), Role: domain.RoleStudent,
			LastActive: now, ClassroomIDs: []string{"teacher-1"},
		},
		{
			ID: "student-2", Name: "Student Lee", Email: "lee@example.com",
			PasswordHash: string(hash), Role: domain.RoleStudent,
			LastActive: now, ClassroomIDs: []string{},
		},
	}
	for _, cred := range demoUsers {
		if err := users.Put(ctx, cred); err != nil {
			return err
		}
	}

	for _, quiz := range demoQuizzes(now) {
		if err := quizzes.Put(ctx, quiz); err != nil {
			return err
		}
	}
	return nil
}

func demoQuizzes(now time.Time) []domain.Quiz {
	return []domain.Quiz{
		{
			ID:          "quiz-math-1",
			Title:       "Introduction to Mathematics",
			Description: "Test your basic math knowledge with this quiz.",
			AuthorID:    "teacher-1",
			CreatedAt:   now,
			Published:   true,
			Questions: []domain.Question{
				{ID: "m1", Text: "What is 2 + 2?", Type: domain.QuestionMultipleChoice, Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
				{ID: "m2", Text: "What is 5 x 7?", Type: domain.QuestionMultipleChoice, Options: []string{"30", "35", "40", "45"}, CorrectOption: 1},
				{ID: "m3", Text: "What is the square root of 64?", Type: domain.QuestionMultipleChoice, Options: []string{"6", "7", "8", "9"}, CorrectOption: 2},
			},
		},
		{
			ID:          "quiz-science-1",
			Title:       "Science Basics",
			Description: "A quiz on fundamental scientific concepts.",
			AuthorID:    "teacher-1",
			CreatedAt:   now,
			Published:   true,
			Questions: []domain.Question{
				{ID: "s1", Text: "What is the chemical formula for water?", Type: domain.QuestionMultipleChoice, Options: []string{"H2O", "CO2", "NaCl", "O2"}, CorrectOption: 0},
				{ID: "s2", Text: "The Earth is flat.", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, CorrectOption: 1},
				{ID: "s3", Text: "Which planet is known as the Red Planet?", Type: domain.QuestionFillInBlank, Options: []string{"Mars"}, CorrectOption: 0},
			},
		},
		{
			ID:          "quiz-history-1",
			Title:       "History 101",
			Description: "Test your knowledge of world history.",
			AuthorID:    "teacher-1",
			CreatedAt:   now,
			Published:   false,
			Questions: []domain.Question{
				{ID: "h1", Text: "Who was the first President of the United States?", Type: domain.QuestionMultipleChoice, Options: []string{"Thomas Jefferson", "George Washington", "John Adams", "Benjamin Franklin"}, CorrectOption: 1},
				{ID: "h2", Text: "In which year did World War II end?", Type: domain.QuestionMultipleChoice, Options: []string{"1943", "1944", "1945", "1946"}, CorrectOption: 2},
			},
		},
	}
}
