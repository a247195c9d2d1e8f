package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/app/worker/types"
	"github.com/canopy-network/reputationx/app/worker/workflow"
	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/logging"
	"github.com/canopy-network/reputationx/pkg/redis"
	"github.com/canopy-network/reputationx/pkg/temporal"
	"github.com/canopy-network/reputationx/pkg/utils"
)

var timeNow = time.Now

func main() {
	requestPath := flag.String("request", "snapshot.yaml", "path to the snapshot request file")
	wait := flag.Bool("wait", false, "block until the workflow finishes")
	watch := flag.Bool("watch", false, "print snapshot events from Redis until the run ends (implies -wait)")
	history := flag.Bool("history", false, "print the recorded events of the snapshot and exit without starting a run")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New("trigger")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(*requestPath)
	if err != nil {
		logger.Fatal("Unable to open request file", zap.String("path", *requestPath), zap.Error(err))
	}
	req, err := decodeRequest(f)
	_ = f.Close()
	if err != nil {
		logger.Fatal("Invalid request", zap.Error(err))
	}

	if *history {
		printHistory(ctx, logger, req.SnapshotID)
		return
	}

	records, err := snapshot.NewMongo(ctx, logger, snapshot.MongoConfig{
		URI:        utils.Env("MONGO_URI", "mongodb://localhost:27017"),
		Database:   utils.Env("MONGO_DATABASE", "reputationx"),
		Collection: utils.Env("MONGO_COLLECTION", "snapshots"),
	})
	if err != nil {
		logger.Fatal("Unable to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = records.Close(context.Background()) }()

	if err := records.Upsert(ctx, req.record()); err != nil {
		logger.Fatal("Unable to save snapshot record", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger, utils.Env("WORKER_TASK_QUEUE", ""))
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}
	defer temporalClient.Close()

	run, err := temporalClient.StartSnapshot(ctx, workflow.SnapshotWorkflowName, req.SnapshotID,
		types.SnapshotInput{SnapshotID: req.SnapshotID})
	if err != nil {
		logger.Fatal("Unable to start snapshot workflow", zap.Error(err))
	}
	logger.Info("Snapshot workflow started",
		zap.String("snapshot_id", req.SnapshotID),
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()))

	if !*wait && !*watch {
		return
	}

	// Events are printed until the workflow result is in.
	watchCtx, stopWatch := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if *watch {
			watchEvents(watchCtx, logger, req.SnapshotID)
		}
	}()

	var out types.SnapshotOutput
	err = run.Get(ctx, &out)
	stopWatch()
	<-done
	if err != nil {
		logger.Fatal("Snapshot workflow failed", zap.Error(err))
	}
	logger.Info("Snapshot workflow completed",
		zap.String("database_key", out.DatabaseKey),
		zap.Bool("sync_skipped", out.SyncSkipped),
		zap.Any("outputs", out.Outputs))
}

func watchEvents(ctx context.Context, logger *zap.Logger, snapshotID string) {
	client, err := redis.NewClient(ctx, logger, redis.OptionsFromEnv())
	if err != nil {
		logger.Warn("Event watch unavailable", zap.Error(err))
		return
	}
	defer func() { _ = client.Close() }()

	err = client.Watch(ctx, snapshotID, func(ev redis.Event) (bool, error) {
		logger.Info("Snapshot event",
			zap.String("event", ev.Event),
			zap.String("key", ev.Key),
			zap.String("error", ev.Error),
			zap.Time("at", ev.At))
		return ev.Event == redis.EventFailed, nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("Event watch stopped", zap.Error(err))
	}
}


func printHistory(ctx context.Context, logger *zap.Logger, snapshotID string) {
	client, err := redis.NewClient(ctx, logger, redis.OptionsFromEnv())
	if err != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(err))
	}
	defer func() { _ = client.Close() }()

	events, err := client.History(ctx, snapshotID, int64(utils.EnvInt("HISTORY_SCAN", 1000)))
	if err != nil {
		logger.Fatal("Unable to read snapshot history", zap.Error(err))
	}
	if len(events) == 0 {
		logger.Info("No recorded events", zap.String("snapshot_id", snapshotID))
	}
	for _, ev := range events {
		logger.Info("Snapshot event",
			zap.String("event", ev.Event),
			zap.String("key", ev.Key),
			zap.String("error", ev.Error),
			zap.Time("at", ev.At))
	}
}
