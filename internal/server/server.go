package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/eexam/internal/api"
	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/event"
	"github.com/victornm/eexam/internal/exam"
	"github.com/victornm/eexam/internal/storage/memory"
	"github.com/victornm/eexam/internal/storage/postgres"
	"github.com/victornm/eexam/internal/storage/rediscache"
	"github.com/victornm/eexam/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Exam struct {
		DurationSeconds     int
		QuestionsPerSubject int
	}

	Redis struct {
		Bank struct {
			Addrs      []string
			Pass       string
			Prefix     string
			TTLSeconds int
		}
	}

	Postgres struct {
		Exam struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	store struct {
		attempts exam.AttemptStore
		results  exam.ResultStore
		bank     exam.QuestionBank
		users    exam.UserDirectory
		verifier api.TokenVerifier
	}

	service struct {
		exam *exam.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initStores()
	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	if len(s.c.Redis.Bank.Addrs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Bank.Addrs,
		Password: s.c.Redis.Bank.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	pc := s.c.Postgres.Exam
	if pc.Addr == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initStores() {
	if db := s.infra.postgres; db != nil {
		s.store.attempts = postgres.NewAttemptStore(db)
		s.store.results = postgres.NewResultStore(db)
		s.store.bank = postgres.NewBank(db)
		s.store.users = postgres.NewUserDirectory(db)
		s.store.verifier = postgres.NewSessionStore(db)
	} else {
		// Standalone dev mode: everything in memory, seeded with sample
		// data and a fixed dev credential.
		slog.Info("server: postgres not configured, using in-memory stores")

		bank := memory.NewBank(sampleQuestions())
		users := memory.NewUserDirectory()
		users.AddUser("dev-candidate", true)
		sessions := memory.NewSessionStore()
		sessions.AddToken("dev-token", domain.Credential{UserID: "dev-candidate", Role: domain.RoleCandidate})

		s.store.attempts = memory.NewAttemptStore()
		s.store.results = memory.NewResultStore()
		s.store.bank = bank
		s.store.users = users
		s.store.verifier = sessions
	}

	if s.infra.redis != nil {
		s.store.bank = rediscache.NewBank(rediscache.Config{
			Redis:  s.infra.redis,
			Next:   s.store.bank,
			Prefix: s.c.Redis.Bank.Prefix,
			TTL:    time.Duration(s.c.Redis.Bank.TTLSeconds) * time.Second,
		})
	}
}

func (s *Server) initService() {
	s.service.exam = exam.NewService(exam.Config{
		Attempts:            s.store.attempts,
		Results:             s.store.results,
		Bank:                s.store.bank,
		Users:               s.store.users,
		EventBus:            s.eb,
		Duration:            time.Duration(s.c.Exam.DurationSeconds) * time.Second,
		QuestionsPerSubject: s.c.Exam.QuestionsPerSubject,
	})

	telemetry.ObserveExam(s.eb)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPMiddleware())

	api.New(api.Config{
		Router:   e,
		Exam:     s.service.exam,
		Verifier: s.store.verifier,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}

// sampleQuestions seeds the dev-mode bank with enough questions per subject
// to compose an exam.
func sampleQuestions() []domain.Question {
	options := []string{"option A", "option B", "option C", "option D"}

	var qs []domain.Question
	for _, subject := range domain.Subjects {
		for i := 0; i < 25; i++ {
			qs = append(qs, domain.Question{
				QuestionID:    fmt.Sprintf("%s-%03d", subject, i),
				Text:          fmt.Sprintf("Sample %s question %d", subject, i),
				Options:       options,
				CorrectOption: options[i%len(options)],
				Subject:       subject,
			})
		}
	}

	return qs
}
