// Package realtime fans out chat inserts to subscribers over Redis pub/sub,
// one channel per application.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/models"

	"github.com/redis/go-redis/v9"
)

const EventInsert = "INSERT"

// Event is the payload published for every stored message.
type Event struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// Channel returns the pub/sub channel for an application.
func Channel(applicationID string) string {
	return "messages:" + applicationID
}

type Broker struct {
	client redis.UniversalClient
	logger logger.Logger
}

func NewBroker(client redis.UniversalClient, log logger.Logger) *Broker {
	return &Broker{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "realtime"}),
	}
}

// PublishInsert announces a newly stored message to the application's channel.
func (b *Broker) PublishInsert(ctx context.Context, msg models.Message) error {
	data, err := json.Marshal(Event{Type: EventInsert, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(msg.ApplicationID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel(msg.ApplicationID), err)
	}
	return nil
}

// Subscription delivers insert events until Close is called or its context ends.
type Subscription struct {
	C <-chan models.Message

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Subscribe confirms the subscription with Redis before returning, so every
// message published after Subscribe returns is delivered on C.
func (b *Broker) Subscribe(ctx context.Context, applicationID string) (*Subscription, error) {
	channel := Channel(applicationID)
	pubsub := b.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan models.Message, 16)
	sub := &Subscription{C: out, pubsub: pubsub, cancel: cancel}

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		defer close(out)

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(raw.Payload), &ev); err != nil {
					b.logger.Warn("dropping malformed event", map[string]interface{}{
						"channel": channel,
						"error":   err,
					})
					continue
				}
				if ev.Type != EventInsert {
					continue
				}
				select {
				case out <- ev.Message:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}

// Close unsubscribes and waits for the delivery goroutine to exit.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}
