package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/imgshrink/internal/cfg"
	v1Http "github.com/DRSN-tech/imgshrink/internal/delivery/v1/http"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/archive"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/cleanup"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/idgen"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/lock"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/metrics"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/sweeper"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/transcoder"
	"github.com/DRSN-tech/imgshrink/internal/repository/local"
	s3Repo "github.com/DRSN-tech/imgshrink/internal/repository/minio"
	"github.com/DRSN-tech/imgshrink/internal/repository/redis"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/clients"
	"github.com/DRSN-tech/imgshrink/pkg/closer"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupTimeout  = 5 * time.Second
	initTimeout     = 10 * time.Second
)

// artifactStore — хранилище со всеми возможностями, которые нужны приложению.
type artifactStore interface {
	usecase.FileStore
	usecase.ArtifactLister
	usecase.ArtifactRemover
}

type App struct {
	cfg    *config.Config
	logger logger.Logger

	httpSrv *v1Http.Server
	sweeper *sweeper.Worker
	sweepUC usecase.SweepUC
	cleaner *cleanup.Cleaner
	closer  *closer.Closer

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewApp собирает зависимости приложения. Ошибки инициализации хранилища и блокировок фатальны.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	cl := closer.NewCloser(0)

	store, err := initStore(cfg, logger)
	if err != nil {
		shutdownCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	locker, err := initLocker(cfg, logger, cl)
	if err != nil {
		shutdownCancel()
		_ = cl.Close(context.Background())
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	promMetrics := metrics.NewPromMetrics()
	cleaner := cleanup.NewCleaner(store, logger, shutdownCtx)

	imageUC := usecase.NewImageUC(
		transcoder.NewImageTranscoder(),
		store,
		idgen.NewUUIDGenerator(),
		locker,
		archive.NewZipArchiver(),
		promMetrics,
		cfg.Compression,
		logger,
	)
	sweepUC := usecase.NewSweepUC(store, cleaner, promMetrics, cfg.Sweep, logger)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, logger)
	router.Init(imageUC, cfg.Upload, cfg.Compression.MaxBatchSize, promMetrics.Handler())

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpSrv:        v1Http.NewServer(r, cfg.Http),
		sweeper:        sweeper.NewWorker(sweepUC, cfg.Sweep.Interval, logger),
		sweepUC:        sweepUC,
		cleaner:        cleaner,
		closer:         cl,
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}, nil
}

// Run обслуживает HTTP и периодическую очистку до сигнала завершения.
func (a *App) Run() error {
	a.sweeper.Start(a.shutdownCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			a.logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	a.sweeper.Stop()
	a.waitForCleanup()
	a.shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

// Sweep выполняет один проход очистки и дожидается удаления.
func (a *App) Sweep(ctx context.Context) (*usecase.SweepRes, error) {
	defer func() {
		a.shutdownCancel()
		if err := a.closer.Close(ctx); err != nil {
			a.logger.Warnf("%v", err)
		}
	}()

	res, err := a.sweepUC.Sweep(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	a.waitForCleanup()
	return res, nil
}

func (a *App) waitForCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := a.cleaner.WaitForCleanup(ctx); err != nil {
		a.logger.Warnf("Artifact cleanup did not finish before shutdown, some expired artifacts may remain: %v", err)
		return
	}
	a.logger.Infof("Artifact cleanup completed")
}

func initStore(cfg *config.Config, logger logger.Logger) (artifactStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMinio:
		minioClient, err := clients.NewMinIOClient(cfg.Minio)
		if err != nil {
			logger.Errorf(err, "failed to initialize minio client")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName); err != nil {
			logger.Errorf(err, "failed to initialize MinIO bucket")
			return nil, e.Wrap(whereami.WhereAmI(), e.Wrap(err.Error(), e.ErrStoreInit))
		}

		logger.Infof("Storing artifacts in MinIO bucket %s at %s", cfg.Minio.BucketName, cfg.Minio.MinioEndpoint)
		return s3Repo.NewArtifactRepo(minioClient, cfg.Minio, logger), nil
	default:
		store, err := local.NewFileStore(cfg.Storage.Dir, logger)
		if err != nil {
			logger.Errorf(err, "failed to initialize file store")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		logger.Infof("Storing artifacts in %s", store.Dir())
		return store, nil
	}
}

// initLocker возвращает nil, если блокировки отключены.
func initLocker(cfg *config.Config, logger logger.Logger, cl *closer.Closer) (usecase.KeyLocker, error) {
	switch cfg.Lock.Backend {
	case config.LockBackendMemory:
		return lock.NewMemoryLocker(), nil
	case config.LockBackendRedis:
		redisClient := clients.NewRedisClient(cfg.Redis)

		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Errorf(err, "failed to connect to redis")
			_ = redisClient.Close(ctx)
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		cl.Add("redis", redisClient.Close)
		return redis.NewLockRepo(redisClient, cfg.Lock, logger), nil
	default:
		return nil, nil
	}
}
