package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/enginesound/internal/application"
	appadvice "github.com/bryanwahyu/enginesound/internal/application/advice"
	appdiag "github.com/bryanwahyu/enginesound/internal/application/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/config"
	domadvice "github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/ai"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/domain/failures"
	openaiClient "github.com/bryanwahyu/enginesound/internal/infra/ai/openai"
	"github.com/bryanwahyu/enginesound/internal/infra/ai/prompt"
	mongop "github.com/bryanwahyu/enginesound/internal/infra/db/mongo"
	mysqlp "github.com/bryanwahyu/enginesound/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/enginesound/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/enginesound/internal/infra/db/sqlite"
	"github.com/bryanwahyu/enginesound/internal/infra/decoder"
	ffmpegrunner "github.com/bryanwahyu/enginesound/internal/infra/executor/ffmpeg"
	"github.com/bryanwahyu/enginesound/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/enginesound/internal/infra/storage"
	"github.com/bryanwahyu/enginesound/internal/logging"
	"github.com/bryanwahyu/enginesound/internal/middleware"
)

// backend groups the repositories of one database driver.
type backend struct {
	diagnoses diagnosis.Repository
	failures  failures.Repository
	notes     domadvice.Repository
	checker   middleware.HealthChecker
	close     func()
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("database init error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer be.close()

	table, err := config.LoadSuggestions(cfg.Analysis.SuggestionsFile)
	if err != nil {
		logger.Fatal("suggestion table error", zap.Error(err))
	}

	// init runner
	runner := ffmpegrunner.NewRunner(cfg.Analysis.FFmpegBin, cfg.Analysis.TempDir)
	if !runner.Available() {
		logger.Warn("ffmpeg not found, only WAV uploads can be decoded", zap.String("bin", cfg.Analysis.FFmpegBin))
	}
	pipeline := appdiag.NewPipeline(
		decoder.New(runner, cfg.Analysis.SampleRate, decoder.WithMaxSeconds(cfg.Analysis.MaxSeconds)),
		nil,
		table,
		cfg.Analysis.DecodeTimeout,
	)

	checkers := map[string]middleware.HealthChecker{"database": be.checker}

	// init service
	svc := &appdiag.Service{
		Pipeline:      pipeline,
		Repo:          be.diagnoses,
		Failures:      be.failures,
		Clock:         application.SystemClock{},
		Log:           logger.Named("diagnosis"),
		PresignExpiry: time.Duration(cfg.Minio.PresignMinutes) * time.Minute,
	}

	// init minio
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		svc.Audio = store
		checkers["storage"] = middleware.CheckFunc(store.Ping)
	}

	adviceSvc := &appadvice.Service{
		Diagnoses: be.diagnoses,
		Notes:     be.notes,
		Advisor:   advisor(cfg),
		Fallback:  prompt.LocalAdvisor{},
		Clock:     application.SystemClock{},
		Log:       logger.Named("advice"),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	defer limiter.Close()

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Options{
		Diagnoses:      svc,
		Advice:         adviceSvc,
		Log:            logger.Named("http"),
		CORSOrigins:    cfg.Server.CORSOrigins,
		APIKeys:        cfg.Auth.APIKeys,
		Limiter:        limiter,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Checkers:       checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := mysqlp.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlBackend(db, mysqlp.NewDiagnosisRepository(db), mysqlp.NewFailureRepository(db), mysqlp.NewAdviceRepository(db)), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgresp.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlBackend(db, postgresp.NewDiagnosisRepository(db), postgresp.NewFailureRepository(db), postgresp.NewAdviceRepository(db)), nil
	case "mongo":
		client, db, err := mongop.Connect(ctx, cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := mongop.EnsureIndexes(ctx, db); err != nil {
				_ = client.Disconnect(ctx)
				return nil, err
			}
		}
		return &backend{
			diagnoses: mongop.NewDiagnosisRepository(db),
			failures:  mongop.NewFailureRepository(db),
			notes:     mongop.NewAdviceRepository(db),
			checker:   &middleware.MongoHealthChecker{Client: client},
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil
	default:
		db, err := sqlitep.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return sqlBackend(db, sqlitep.NewDiagnosisRepository(db), sqlitep.NewFailureRepository(db), sqlitep.NewAdviceRepository(db)), nil
	}
}

func sqlBackend(db *sql.DB, d diagnosis.Repository, f failures.Repository, n domadvice.Repository) *backend {
	return &backend{
		diagnoses: d,
		failures:  f,
		notes:     n,
		checker:   &middleware.DatabaseHealthChecker{DB: db},
		close:     func() { db.Close() },
	}
}

func advisor(cfg *config.Config) ai.Advisor {
	if cfg.OpenAI.Enabled {
		return openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}
	return prompt.LocalAdvisor{}
}
