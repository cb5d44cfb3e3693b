package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
	"eduslide-live/internal/logger"
)

// ChannelOptions identifies the session and client a Channel speaks for.
type ChannelOptions struct {
	Prefix      string
	SessionCode string
	SID         string
	// LivenessTTL bounds how long the client key survives without a refresh.
	LivenessTTL time.Duration
}

// EventsKey is the pub/sub channel the session server publishes events on.
func EventsKey(prefix, sessionCode string) string {
	return prefix + ":session:" + sessionCode + ":events"
}

// CommandsKey is the pub/sub channel clients publish commands on.
func CommandsKey(prefix, sessionCode string) string {
	return prefix + ":session:" + sessionCode + ":commands"
}

// ClientKey marks a connected client while it is alive.
func ClientKey(prefix, sessionCode, sid string) string {
	return prefix + ":session:" + sessionCode + ":client:" + sid
}

// Channel is an app.Channel over Redis Pub/Sub, for clients that sit next to the
// session server instead of behind a websocket.
type Channel struct {
	client *redis.Client
	pubsub *redis.PubSub
	opts   ChannelOptions
	log    logger.Logger

	events    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ app.Channel = (*Channel)(nil)

// Dial subscribes to the session's event channel and waits for the subscription
// to be confirmed before returning.
func Dial(ctx context.Context, client *redis.Client, opts ChannelOptions, log logger.Logger) (*Channel, error) {
	ps := client.Subscribe(ctx, EventsKey(opts.Prefix, opts.SessionCode))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe session %s: %w", opts.SessionCode, err)
	}

	c := &Channel{
		client: client,
		pubsub: ps,
		opts:   opts,
		log:    log,
		events: make(chan domain.Event, 64),
		done:   make(chan struct{}),
	}
	c.touch(ctx)

	c.wg.Add(2)
	go c.pump()
	go c.heartbeat()
	return c, nil
}

func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

func (c *Channel) Emit(ctx context.Context, msg domain.Outbound) error {
	select {
	case <-c.done:
		return domain.ErrClosed
	default:
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return c.client.Publish(ctx, CommandsKey(c.opts.Prefix, c.opts.SessionCode), data).Err()
}

func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.pubsub.Close()
		c.wg.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.client.Del(ctx, ClientKey(c.opts.Prefix, c.opts.SessionCode, c.opts.SID)).Err()
	})
	return err
}

func (c *Channel) pump() {
	defer c.wg.Done()
	defer close(c.events)

	if !c.deliver(domain.Event{Type: app.EventConnect}) {
		return
	}
	msgs := c.pubsub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				c.deliver(domain.Event{Type: app.EventDisconnect})
				return
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				c.log.Warn("dropping undecodable frame", msg.Channel, err)
				continue
			}
			if !c.deliver(ev) {
				return
			}
		}
	}
}

func (c *Channel) deliver(ev domain.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Channel) heartbeat() {
	defer c.wg.Done()
	if c.opts.LivenessTTL <= 0 {
		return
	}
	ticker := time.NewTicker(c.opts.LivenessTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.touch(context.Background())
		}
	}
}

// touch refreshes the liveness marker; failures are logged, not fatal.
func (c *Channel) touch(ctx context.Context) {
	key := ClientKey(c.opts.Prefix, c.opts.SessionCode, c.opts.SID)
	if err := c.client.Set(ctx, key, c.opts.SessionCode, c.opts.LivenessTTL).Err(); err != nil {
		c.log.Warn("refreshing liveness key", key, err)
	}
}
