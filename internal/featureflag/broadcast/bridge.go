package broadcast

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/seftec/platform/internal/config"
	"github.com/seftec/platform/internal/featureflag/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Bridge relays flag change events across processes over a redis pub/sub
// channel. Without redis configured the bridge is nil and change events stay
// process-local.
type Bridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
	log     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewBridge(cfg config.Config, hub *Hub, log *zap.Logger) *Bridge {
	if !cfg.RedisEnabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &Bridge{
		client:  client,
		hub:     hub,
		channel: cfg.FlagChannel,
		origin:  uuid.NewString(),
		log:     log.Named("featureflag.bridge"),
	}
}

// Publish pushes the event onto the shared channel so subscribers in other
// processes observe it.
func (b *Bridge) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if b == nil || b.client == nil {
		return nil
	}
	event.Origin = b.origin
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Start begins consuming remote events and re-publishing them into the local
// hub. Events published by this process are skipped; the local hub already
// delivered them.
func (b *Bridge) Start(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	pubsub := b.client.Subscribe(runCtx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		return err
	}

	go func() {
		defer close(b.done)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Warn("dropping malformed flag change event", zap.Error(err))
					continue
				}
				if event.Origin == b.origin {
					continue
				}
				b.hub.Publish(event)
			}
		}
	}()

	return nil
}

// Stop terminates the consumer loop and closes the redis client.
func (b *Bridge) Stop(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.done != nil {
		select {
		case <-b.done:
		case <-ctx.Done():
		}
	}
	return b.client.Close()
}

func registerHooks(lc fx.Lifecycle, bridge *Bridge) {
	if bridge == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: bridge.Start,
		OnStop:  bridge.Stop,
	})
}

var Module = fx.Module("featureflag.broadcast",
	fx.Provide(NewHub),
	fx.Provide(NewBridge),
	fx.Invoke(registerHooks),
)
