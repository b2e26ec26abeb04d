package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const defaultQueueSize = 256

// RedisPublisher fans contact change events out over Redis pub/sub.
// Store listeners only enqueue; Start does the network work.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
	logger  *logging.Logger
	queue   chan Envelope
	timeout time.Duration
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client redis.Cmdable, channel string, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
		queue:   make(chan Envelope, defaultQueueSize),
		timeout: 2 * time.Second,
	}
}

// Publish sends env right away.
func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", env.EventType, err)
	}
	return nil
}

// ForOrg returns a store listener that tags events with orgID.
func (p *RedisPublisher) ForOrg(orgID string) contacts.Listener {
	return contacts.ListenerFunc(func(change contacts.Change) {
		evt := ContactsChangedV1{
			OrgID:      orgID,
			Op:         string(change.Op),
			ContactIDs: change.IDs,
			OccurredAt: nowFunc().UTC(),
		}
		env, err := NewEnvelope("org:"+orgID, evt)
		if err != nil {
			p.logger.Error("failed to build contact event", "error", err, "org_id", orgID)
			return
		}
		p.enqueue(env)
	})
}

func (p *RedisPublisher) enqueue(env Envelope) {
	select {
	case p.queue <- env:
	default:
		p.logger.Warn("contact event queue full, dropping event", "event_id", env.EventID, "type", env.EventType)
	}
}

// Start publishes queued events until ctx is cancelled, then flushes what is
// left.
func (p *RedisPublisher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case env := <-p.queue:
			p.send(env)
		}
	}
}

// Run starts the publish loop on a context of its own. Events enqueued after
// the process begins shutting down are still delivered: stop ends the loop,
// flushes the queue and waits for it. stop is safe to call more than once.
func (p *RedisPublisher) Run() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Start(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (p *RedisPublisher) flush() {
	for {
		select {
		case env := <-p.queue:
			p.send(env)
		default:
			return
		}
	}
}

// send is detached from the Start context so events already dequeued are not
// lost to shutdown.
func (p *RedisPublisher) send(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Publish(ctx, env); err != nil {
		p.logger.Error("contact event publish failed", "error", err, "event_id", env.EventID)
		return
	}
	p.logger.Debug("contact event published", "event_id", env.EventID, "type", env.EventType)
}
