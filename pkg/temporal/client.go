package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/utils"
)

// DefaultSnapshotQueue is the task queue of the snapshot workflow and its activities.
const DefaultSnapshotQueue = "snapshots"

type Client struct {
	TClient   client.Client
	Namespace string
	HostPort  string

	// Task Queues
	SnapshotQueue string

	// Workflow IDs
	SnapshotWorkflowID string // snapshot:<id>, one live run per snapshot
}

type Health struct {
	ConnectionOK  bool                      `json:"connection_ok"`
	SnapshotQueue []*taskqueuepb.PollerInfo `json:"snapshot_queue"`
}

// NewClient connects to the namespace in TEMPORAL_NAMESPACE at TEMPORAL_HOSTPORT, registering the
// namespace first when TEMPORAL_ENSURE_NAMESPACE is set. An empty queue selects DefaultSnapshotQueue.
func NewClient(ctx context.Context, logger *zap.Logger, queue string) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "reputationx")
	if queue == "" {
		queue = DefaultSnapshotQueue
	}

	if utils.EnvBool("TEMPORAL_ENSURE_NAMESPACE", false) {
		retention := time.Duration(utils.EnvInt("TEMPORAL_RETENTION_DAYS", 7)) * 24 * time.Hour
		if err := EnsureNamespace(ctx, logger, host, ns, retention); err != nil {
			return nil, err
		}
	}

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, NewZapAdapter(logger))
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		tClient.Close()
		return nil, err
	}

	return &Client{
		TClient:            tClient,
		Namespace:          ns,
		HostPort:           host,
		SnapshotQueue:      queue,
		SnapshotWorkflowID: "snapshot:%s",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetSnapshotQueue returns the snapshot task queue.
func (c *Client) GetSnapshotQueue() string {
	if c.SnapshotQueue == "" {
		return DefaultSnapshotQueue
	}
	return c.SnapshotQueue
}

// GetSnapshotWorkflowID returns the workflow ID for the given snapshot.
func (c *Client) GetSnapshotWorkflowID(snapshotID string) string {
	format := c.SnapshotWorkflowID
	if format == "" {
		format = "snapshot:%s"
	}
	return fmt.Sprintf(format, snapshotID)
}

// SnapshotWorkflowOptions starts at most one live run per snapshot: a second start while one is
// running attaches to it, and a finished snapshot can be run again.
func (c *Client) SnapshotWorkflowOptions(snapshotID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                       c.GetSnapshotWorkflowID(snapshotID),
		TaskQueue:                c.GetSnapshotQueue(),
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowExecutionTimeout: 6 * time.Hour,
	}
}

// StartSnapshot starts (or attaches to) the snapshot workflow registered under workflowName.
func (c *Client) StartSnapshot(ctx context.Context, workflowName, snapshotID string, input any) (client.WorkflowRun, error) {
	run, err := c.TClient.ExecuteWorkflow(ctx, c.SnapshotWorkflowOptions(snapshotID), workflowName, input)
	if err != nil {
		return nil, fmt.Errorf("start snapshot workflow %s: %w", c.GetSnapshotWorkflowID(snapshotID), err)
	}
	return run, nil
}

// Close closes the underlying Temporal client.
func (c *Client) Close() {
	if c.TClient != nil {
		c.TClient.Close()
	}
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.GetSnapshotQueue()},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.SnapshotQueue = rep.GetPollers()
		}
	}
	return h, nil
}
