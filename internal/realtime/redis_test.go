package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

func TestRedisRelay_DeliversAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(4)
	sub := hub.Subscribe("alice")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- NewRelay(client, hub).Run(ctx, ready) }()
	<-ready

	balance := int64(5000)
	NewRedisNotifier(client).Notify(ctx, models.Event{
		AccountID: "alice", Kind: models.EventApproved, Amount: 5000, NewBalance: &balance,
	})

	ev := recv(t, sub.C)
	assert.Equal(t, models.EventApproved, ev.Kind)
	require.NotNil(t, ev.NewBalance)
	assert.Equal(t, int64(5000), *ev.NewBalance)

	cancel()
	assert.NoError(t, <-errc)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "ledger:account:42", Channel("42"))
}
