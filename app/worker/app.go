package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/app/worker/activity"
	"github.com/canopy-network/reputationx/app/worker/workflow"
	"github.com/canopy-network/reputationx/pkg/config"
	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/ingest"
	"github.com/canopy-network/reputationx/pkg/logging"
	"github.com/canopy-network/reputationx/pkg/objectstore"
	"github.com/canopy-network/reputationx/pkg/redis"
	"github.com/canopy-network/reputationx/pkg/retry"
	"github.com/canopy-network/reputationx/pkg/rpc"
	"github.com/canopy-network/reputationx/pkg/scoring"
	"github.com/canopy-network/reputationx/pkg/temporal"
	"github.com/canopy-network/reputationx/pkg/utils"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Logger         *zap.Logger

	syncer         *ingest.Syncer
	snapshots      *snapshot.Mongo
	redis          *redis.Client
	healthInterval time.Duration
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	a.logHealth(ctx)

	ticker := time.NewTicker(a.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Stop()
			return
		case <-ticker.C:
			a.logHealth(ctx)
		}
	}
}

// logHealth reports queue pollers and the Redis connection.
func (a *App) logHealth(ctx context.Context) {
	fields := make([]zap.Field, 0, 3)
	if h, err := a.TemporalClient.Health(ctx); err == nil {
		fields = append(fields, zap.Bool("temporal_ok", h.ConnectionOK), zap.Int("snapshot_pollers", len(h.SnapshotQueue)))
	}
	if a.redis != nil {
		fields = append(fields, zap.Bool("redis_ok", a.redis.Health(ctx) == nil))
	}
	a.Logger.Info("Worker health", fields...)
}

// Stop stops the worker and releases its connections.
func (a *App) Stop() {
	a.Worker.Stop()
	a.syncer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.snapshots.Close(ctx); err != nil {
		a.Logger.Warn("Unable to close MongoDB client", zap.Error(err))
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.TemporalClient.Close()
	a.Logger.Info("Worker stopped")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("worker")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	store, err := NewObjectStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Unable to initialize object storage", zap.Error(err))
	}

	snapshots, err := snapshot.NewMongo(ctx, logger, snapshot.MongoConfig{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
	})
	if err != nil {
		logger.Fatal("Unable to connect to MongoDB", zap.Error(err))
	}

	var notifier redis.Notifier = redis.Nop{}
	var redisClient *redis.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redis.NewClient(ctx, logger, redis.OptionsFromEnv())
		if err != nil {
			logger.Fatal("Unable to connect to Redis", zap.Error(err))
		}
		notifier = redisClient
	}

	temporalClient, err := temporal.NewClient(ctx, logger, cfg.Worker.TaskQueue)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	syncer := ingest.NewSyncer(ingest.Config{
		Logger:         logger,
		Client:         rpc.NewHTTPFactory(PortalOpts(cfg.Portal, logger)).NewClient(),
		Store:          store,
		MaxConcurrency: cfg.Portal.MaxConcurrency,
		TempDir:        cfg.Worker.TempDir,
		PageLimit:      cfg.Portal.PageLimit,
		ChunkSize:      cfg.Worker.InsertChunkSize,
	})

	activityContext := &activity.Context{
		Logger:    logger,
		Syncer:    syncer,
		Scorer:    scoring.NewRunner(logger, store, cfg.Worker.TempDir),
		Snapshots: snapshots,
		Notifier:  notifier,
	}
	workflowContext := workflow.Context{
		ActivityContext: activityContext,
		Config:          workflow.DefaultConfig(),
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.GetSnapshotQueue(),
		worker.Options{
			MaxConcurrentWorkflowTaskPollers: 4,
			MaxConcurrentActivityTaskPollers: 4,
			// Each sync owns a temp SQLite file and a share of the portal rate budget
			MaxConcurrentActivityExecutionSize: utils.EnvInt("WORKER_MAX_ACTIVITIES", 8),
			WorkerStopTimeout:                  1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.SnapshotWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.SnapshotWorkflowName},
	)
	wkr.RegisterActivity(activityContext.LoadSnapshot)
	wkr.RegisterActivity(activityContext.UpdateSnapshotStatus)
	wkr.RegisterActivity(activityContext.SyncSnapshot)
	wkr.RegisterActivity(activityContext.ComputeVotingEngagement)
	wkr.RegisterActivity(activityContext.ComputeContributionScore)
	wkr.RegisterActivity(activityContext.ComputeProposalEngagement)

	logger.Info("Worker initialized",
		zap.String("task_queue", temporalClient.GetSnapshotQueue()),
		zap.String("portal", cfg.Portal.BaseURL),
		zap.String("storage", cfg.Storage.Backend))

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Logger:         logger,
		syncer:         syncer,
		snapshots:      snapshots,
		redis:          redisClient,
		healthInterval: time.Duration(utils.EnvInt("HEALTH_INTERVAL_SECONDS", 300)) * time.Second,
	}
}

// NewObjectStore builds the configured object store backend.
func NewObjectStore(cfg config.StorageConfig, logger *zap.Logger) (objectstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("Using in-memory object storage; results are lost on exit")
		return objectstore.NewMemory(), nil
	case "s3":
		store, err := objectstore.NewS3(objectstore.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.PathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// PortalOpts maps the portal configuration onto HTTP client options.
func PortalOpts(cfg config.PortalConfig, logger *zap.Logger) rpc.Opts {
	policy := retry.DefaultConfig()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.BaseDelay = time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond
	policy.MaxDelay = time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond
	policy.Retryable = rpc.IsRetryable

	return rpc.Opts{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		AuthHeader:     cfg.AuthHeader,
		Timeout:        cfg.Timeout,
		MaxConcurrency: cfg.MaxConcurrency,
		Retry:          policy,
		Logger:         logger,
	}
}
