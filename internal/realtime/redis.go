package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
)

const channelPrefix = "ledger:account:"

func Channel(accountID string) string { return channelPrefix + accountID }

// RedisNotifier publishes each event on its account channel; every instance's Relay picks it up.
type RedisNotifier struct {
	client redis.UniversalClient
}

func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev models.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("realtime encode", "err", err)
		return
	}
	if err := n.client.Publish(ctx, Channel(ev.AccountID), b).Err(); err != nil {
		metrics.NotificationsDropped.WithLabelValues("publish_error").Inc()
		slog.Warn("realtime publish", "account_id", ev.AccountID, "err", err)
	}
}

// Relay feeds events published on Redis into the local Hub.
type Relay struct {
	client redis.UniversalClient
	hub    *Hub
}

func NewRelay(client redis.UniversalClient, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub}
}

// Run blocks until ctx is done. ready, if not nil, is closed once the subscription is active.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	ps := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("realtime decode", "channel", msg.Channel, "err", err)
				continue
			}
			if ev.AccountID == "" {
				ev.AccountID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			r.hub.Publish(ev)
		}
	}
}
