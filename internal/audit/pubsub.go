package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher fans events out over Redis Pub/Sub.
type Publisher struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPublisher(client *redis.Client, logger *logrus.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{client: client, logger: logger}, nil
}

// Channels returns every channel an event is published on.
func Channels(ev *Event) []string {
	channels := []string{constants.PubSubChannelAll}
	if ev.Status != "" {
		channels = append(channels, constants.PubSubChannelStatusPrefix+ev.Status)
	}
	if ev.OrderID != 0 {
		channels = append(channels, constants.PubSubChannelOrderPrefix+strconv.FormatUint(ev.OrderID, 10))
	}
	return channels
}

func (p *Publisher) Emit(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := p.client.Pipeline()
	for _, channel := range Channels(ev) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe delivers events from channel to handler until ctx is done.
// Patterns (containing '*') use PSUBSCRIBE.
func (p *Publisher) Subscribe(ctx context.Context, channel string, handler func(*Event)) error {
	var sub *redis.PubSub
	if containsGlob(channel) {
		sub = p.client.PSubscribe(ctx, channel)
	} else {
		sub = p.client.Subscribe(ctx, channel)
	}
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling event")
				continue
			}
			handler(&ev)
		}
	}
}

func containsGlob(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' || c == '[' {
			return true
		}
	}
	return false
}
