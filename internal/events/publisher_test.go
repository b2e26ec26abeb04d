package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*RedisPublisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPublisher(client, "contacts.events", nil), client
}

func subscribe(t *testing.T, client *redis.Client) *redis.PubSub {
	t.Helper()
	sub := client.Subscribe(context.Background(), "contacts.events")
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func TestRedisPublisher_StoreChangesReachSubscribers(t *testing.T) {
	pub, client := newTestPublisher(t)
	sub := subscribe(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Start(ctx)

	store := contacts.NewStore(contacts.WithListener(pub.ForOrg("org-1")))
	created := store.Add(contacts.NewContact{Name: "Ada", Email: "ada@example.com"})

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, "contacts.changed.v1", env.EventType)
		assert.Equal(t, "org:org-1", env.Aggregate)

		var evt ContactsChangedV1
		require.NoError(t, json.Unmarshal(env.Payload, &evt))
		assert.Equal(t, "org-1", evt.OrgID)
		assert.Equal(t, "created", evt.Op)
		assert.Equal(t, []string{created.ID}, evt.ContactIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for contact event")
	}
}

func TestRedisPublisher_FlushOnShutdown(t *testing.T) {
	pub, client := newTestPublisher(t)
	sub := subscribe(t, client)

	listener := pub.ForOrg("org-2")
	listener.ContactsChanged(contacts.Change{Op: contacts.OpDeleted, IDs: []string{"c-1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Start(ctx)

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, "contacts.changed.v1")
	case <-time.After(2 * time.Second):
		t.Fatal("expected queued event to be flushed")
	}
}

func TestRedisPublisher_DropsWhenQueueFull(t *testing.T) {
	pub, _ := newTestPublisher(t)
	pub.queue = make(chan Envelope, 1)
	listener := pub.ForOrg("org-3")

	listener.ContactsChanged(contacts.Change{Op: contacts.OpCreated, IDs: []string{"a"}})
	listener.ContactsChanged(contacts.Change{Op: contacts.OpCreated, IDs: []string{"b"}})

	assert.Len(t, pub.queue, 1)
}

func TestNewEnvelope_Validation(t *testing.T) {
	_, err := NewEnvelope(" ", ContactsChangedV1{})
	assert.ErrorIs(t, err, errMissingAggregate)

	_, err = NewEnvelope("org:1", nil)
	assert.ErrorIs(t, err, errNilEvent)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	env, err := NewEnvelope("org:1", ContactsChangedV1{OrgID: "1"}, WithTimestamp(ts))
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMicro(), env.TimestampMicros)
}

func TestRedisPublisher_RunDeliversEventsEnqueuedDuringShutdown(t *testing.T) {
	pub, client := newTestPublisher(t)
	sub := subscribe(t, client)

	// the server's signal context is already done; the loop keeps running
	serverCtx, cancelServer := context.WithCancel(context.Background())
	stop := pub.Run()
	cancelServer()
	<-serverCtx.Done()

	store := contacts.NewStore(contacts.WithListener(pub.ForOrg("org-4")))
	created := store.Add(contacts.NewContact{Name: "Late", Email: "late@example.com"})

	stop()
	stop()

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		var evt ContactsChangedV1
		require.NoError(t, json.Unmarshal(env.Payload, &evt))
		assert.Equal(t, []string{created.ID}, evt.ContactIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("expected event enqueued before stop to be published")
	}
	assert.Empty(t, pub.queue)
}
