// internal/app/system/workers/userevents.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultUserEventsChannel is the Redis channel user changes arrive on.
const DefaultUserEventsChannel = "projecthub:user-events"

// UserEvent is the wire form of a user lifecycle message.
type UserEvent struct {
	UserID string `json:"user_id"`
	models.UserChange
}

// UserChangeHandler reacts to user lifecycle changes.
type UserChangeHandler interface {
	OnUserGlobalChange(ctx context.Context, userID string, change models.UserChange) error
}

// UserEvents is a background worker that consumes user lifecycle events
// from Redis pub/sub and dispatches them one at a time.
type UserEvents struct {
	client  redis.UniversalClient
	channel string
	handler UserChangeHandler
	log     *zap.Logger

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUserEvents creates a new user events worker.
func NewUserEvents(client redis.UniversalClient, channel string, handler UserChangeHandler, logger *zap.Logger) *UserEvents {
	if channel == "" {
		channel = DefaultUserEventsChannel
	}
	return &UserEvents{
		client:  client,
		channel: channel,
		handler: handler,
		log:     logger,
	}
}

// Start subscribes and begins the dispatch loop. It returns once the
// subscription is confirmed.
func (w *UserEvents) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	ps := w.client.Subscribe(runCtx, w.channel)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	w.pubsub = ps
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(runCtx, ps.Channel())
	w.log.Info("user events worker started", zap.String("channel", w.channel))
	return nil
}

// Stop signals the worker to stop and waits for it to finish.
func (w *UserEvents) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	_ = w.pubsub.Close()
	w.wg.Wait()
	w.log.Info("user events worker stopped")
}

func (w *UserEvents) run(ctx context.Context, msgs <-chan *redis.Message) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.dispatch(ctx, msg.Payload)
		}
	}
}

func (w *UserEvents) dispatch(parent context.Context, payload string) {
	var ev UserEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.UserID == "" {
		w.log.Warn("dropping malformed user event", zap.String("payload", payload), zap.Error(err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Batch(), w.log, "user global change")
	defer cancel()

	if err := w.handler.OnUserGlobalChange(ctx, ev.UserID, ev.UserChange); err != nil {
		w.log.Error("user global change failed",
			zap.String("user_id", ev.UserID),
			zap.String("type", ev.Type),
			zap.Error(err))
		return
	}
	w.log.Info("user global change applied",
		zap.String("user_id", ev.UserID),
		zap.String("type", ev.Type))
}

// PublishUserChange announces a user change on channel.
func PublishUserChange(ctx context.Context, client redis.UniversalClient, channel, userID string, change models.UserChange) error {
	if channel == "" {
		channel = DefaultUserEventsChannel
	}
	data, err := json.Marshal(UserEvent{UserID: userID, UserChange: change})
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, data).Err()
}
