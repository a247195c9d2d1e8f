package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Snapshot lifecycle events.
const (
	EventSyncCompleted  = "sync.completed"
	EventSyncSkipped    = "sync.skipped"
	EventScoreCompleted = "score.completed"
	EventFailed         = "snapshot.failed"
)

// EventStream keeps the history of every snapshot event.
const EventStream = "reputationx:snapshots"

// Channel is the Pub/Sub channel of one snapshot.
func Channel(snapshotID string) string {
	return fmt.Sprintf("reputationx:snapshot:%s", snapshotID)
}

// Event is the payload published for a snapshot lifecycle change.
type Event struct {
	SnapshotID string    `json:"snapshotId"`
	Event      string    `json:"event"`
	Key        string    `json:"key,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier publishes snapshot events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Nop discards events. Used when Redis is disabled.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}

// Notify publishes ev on the snapshot channel and appends it to EventStream.
// Failures are logged only.
func (c *Client) Notify(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("Failed to encode snapshot event", zap.String("event", ev.Event), zap.Error(err))
		return
	}
	c.Publish(ctx, Channel(ev.SnapshotID), payload)
	c.XAdd(ctx, EventStream, streamValues(ev))
}

func streamValues(ev Event) map[string]interface{} {
	values := map[string]interface{}{
		"snapshot_id": ev.SnapshotID,
		"event":       ev.Event,
		"at":          ev.At.Format(time.RFC3339Nano),
	}
	if ev.Key != "" {
		values["key"] = ev.Key
	}
	if ev.Error != "" {
		values["error"] = ev.Error
	}
	return values
}

// eventFromValues rebuilds an event from its stream entry. ok is false for entries of other snapshots.
func eventFromValues(snapshotID string, values map[string]interface{}) (ev Event, ok bool) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	if str("snapshot_id") != snapshotID {
		return Event{}, false
	}
	ev = Event{SnapshotID: snapshotID, Event: str("event"), Key: str("key"), Error: str("error")}
	if at, err := time.Parse(time.RFC3339Nano, str("at")); err == nil {
		ev.At = at
	}
	return ev, true
}

// History returns the events of snapshotID found among the newest scan entries of EventStream,
// oldest first.
func (c *Client) History(ctx context.Context, snapshotID string, scan int64) ([]Event, error) {
	msgs, err := c.XRevRange(ctx, EventStream, scan)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", EventStream, err)
	}
	return historyOf(snapshotID, msgs), nil
}

func historyOf(snapshotID string, newestFirst []redis.XMessage) []Event {
	out := make([]Event, 0)
	for _, msg := range newestFirst {
		if ev, ok := eventFromValues(snapshotID, msg.Values); ok {
			out = append(out, ev)
		}
	}
	slices.Reverse(out)
	return out
}

// DecodeEvent parses a published event payload.
func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode snapshot event: %w", err)
	}
	return ev, nil
}

// Watch subscribes to the snapshot channel and calls fn for every event until fn returns
// done, fn fails, or ctx ends.
func (c *Client) Watch(ctx context.Context, snapshotID string, fn func(Event) (done bool, err error)) error {
	sub := c.Subscribe(ctx, Channel(snapshotID))
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel(snapshotID), err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent(msg.Payload)
			if err != nil {
				c.logger.Warn("Skipping malformed snapshot event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			done, err := fn(ev)
			if err != nil || done {
				return err
			}
		}
	}
}
