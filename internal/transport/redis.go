package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/framelink/internal/protocol"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	ErrRedisSideRequired = errors.New("transport: redis side required")
	ErrRedisSameSide     = errors.New("transport: redis side and peer must differ")
)

// RedisConfig names the two pub/sub channels of a redis transport.
type RedisConfig struct {
	Prefix string
	Side   string
	Peer   string
}

func (c RedisConfig) channel(side string) string {
	prefix := strings.TrimSpace(c.Prefix)
	if prefix == "" {
		prefix = "framelink"
	}
	return prefix + ":" + side
}

// ConnectRedis builds a client from a redis:// URL or a host:port address.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Redis uses one pub/sub channel per context. Anything published on the own
// channel is inbound, whoever published it.
type Redis struct {
	client *redis.Client
	pubsub *redis.PubSub
	self   string
	peer   string
	in     *inbox

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Transport = (*Redis)(nil)

// NewRedis subscribes to the own channel and waits for the subscription to be
// confirmed. The client stays owned by the caller.
func NewRedis(ctx context.Context, client *redis.Client, cfg RedisConfig) (*Redis, error) {
	side := strings.TrimSpace(cfg.Side)
	peer := strings.TrimSpace(cfg.Peer)
	if side == "" || peer == "" {
		return nil, ErrRedisSideRequired
	}
	if side == peer {
		return nil, ErrRedisSameSide
	}
	self := cfg.channel(side)
	pubsub := client.Subscribe(ctx, self)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("transport: redis subscribe %s: %w", self, err)
	}
	r := &Redis{
		client: client,
		pubsub: pubsub,
		self:   self,
		peer:   cfg.channel(peer),
		in:     newInbox(),
		closed: make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

func (r *Redis) readLoop() {
	for msg := range r.pubsub.Channel() {
		r.in.push([]byte(msg.Payload))
	}
	log.Debug().Str("channel", r.self).Msg("transport.Redis subscription ended")
}

func (r *Redis) Send(ctx context.Context, raw []byte, target protocol.Target) error {
	if err := validTarget(target); err != nil {
		return err
	}
	select {
	case <-r.closed:
		return ErrClosed
	default:
	}
	channel := r.peer
	if target == protocol.TargetLocal {
		channel = r.self
	}
	if err := r.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("transport: redis publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) OnReceive(fn func(raw []byte)) func() {
	return r.in.subscribe(fn)
}

func (r *Redis) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		err = r.pubsub.Close()
		r.in.close()
	})
	return err
}
