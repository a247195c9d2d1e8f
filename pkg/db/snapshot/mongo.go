package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/retry"
)

// Mongo stores snapshot records in one MongoDB collection.
type Mongo struct {
	Logger     *zap.Logger
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// MongoConfig selects the deployment and collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// NewMongo connects and pings the deployment, retrying with the default backoff.
func NewMongo(ctx context.Context, logger *zap.Logger, cfg MongoConfig) (*Mongo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var client *mongo.Client
	err := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "mongo_connection", func(int) error {
		c, err := mongo.Connect(connCtx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := c.Ping(connCtx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return fmt.Errorf("failed to ping mongo: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("MongoDB connection established",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection))

	return &Mongo{
		Logger:     logger,
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		now:        time.Now,
	}, nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return &rec, nil
}

func (m *Mongo) Upsert(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = m.now().UTC()
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", rec.ID, err)
	}
	return nil
}

func (m *Mongo) SetStatus(ctx context.Context, id string, status Status, errMsg string) error {
	return m.update(ctx, id, statusUpdate(status, errMsg, m.now()))
}

func (m *Mongo) SetDatabaseKey(ctx context.Context, id, key string) error {
	return m.update(ctx, id, setUpdate(bson.M{"database_key": key}, m.now()))
}

func (m *Mongo) RecordOutput(ctx context.Context, id, name, key string) error {
	return m.update(ctx, id, setUpdate(bson.M{"outputs." + name: key}, m.now()))
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) update(ctx context.Context, id string, update bson.M) error {
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update snapshot %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// statusUpdate sets the status; the error field is cleared unless errMsg is given.
func statusUpdate(status Status, errMsg string, now time.Time) bson.M {
	if errMsg == "" {
		return bson.M{
			"$set":   bson.M{"status": status, "updated_at": now.UTC()},
			"$unset": bson.M{"error": ""},
		}
	}
	return setUpdate(bson.M{"status": status, "error": errMsg}, now)
}

func setUpdate(fields bson.M, now time.Time) bson.M {
	set := bson.M{"updated_at": now.UTC()}
	for k, v := range fields {
		set[k] = v
	}
	return bson.M{"$set": set}
}
