package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	redisclient "github.com/mondokter/mondokter-backend/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// bookingsChannel is the Redis Pub/Sub channel all booking events travel on.
const bookingsChannel = "bookings"

// RedisEventBus implements the EventBus interface using Redis Pub/Sub, so
// booking events reach every API instance, not just the one that handled
// the originating request.
type RedisEventBus struct {
	client      *redisclient.Client
	pubsub      *redis.PubSub
	subscribers map[chan entities.BookingEvent]struct{}
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	once        sync.Once
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:      client,
		subscribers: make(map[chan entities.BookingEvent]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish broadcasts a booking event to all instances
func (b *RedisEventBus) Publish(ctx context.Context, event entities.BookingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, bookingsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("booking_id", event.BookingID).
		Str("type", event.Type).
		Msg("published booking event")
	return nil
}

// Subscribe returns a channel of booking events. The returned function
// detaches the subscriber and closes the channel.
func (b *RedisEventBus) Subscribe(ctx context.Context) (<-chan entities.BookingEvent, func(), error) {
	b.mu.Lock()
	b.once.Do(func() {
		b.pubsub = b.client.Client().Subscribe(b.ctx, bookingsChannel)
		go b.receiveMessages()
	})

	eventChan := make(chan entities.BookingEvent, 100)
	b.subscribers[eventChan] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()

	log.Debug().Int("subscribers", count).Msg("subscriber attached to booking events")

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.removeSubscriber(eventChan)
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return eventChan, unsubscribe, nil
}

// receiveMessages fans Redis messages out to local subscribers
func (b *RedisEventBus) receiveMessages() {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.BookingEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("failed to unmarshal booking event")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers {
				select {
				case subscriber <- event:
				default:
					// Subscriber channel full, skip event
					log.Warn().Str("booking_id", event.BookingID).Msg("subscriber channel full, skipping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(eventChan chan entities.BookingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[eventChan]; !ok {
		return
	}
	delete(b.subscribers, eventChan)
	close(eventChan)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	for subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = make(map[chan entities.BookingEvent]struct{})
	pubsub := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription: %w", err)
		}
	}

	log.Info().Msg("event bus closed")
	return nil
}
