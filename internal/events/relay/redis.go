package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	defaultFeedKey    = "roofing:events:feed"
	defaultFeedLength = 1000
	channelPrefix     = "roofing:events:"
)

// RedisSink keeps a capped feed list and publishes each envelope on a
// per-event channel.
type RedisSink struct {
	client    redis.UniversalClient
	feedKey   string
	feedLimit int64
}

// NewRedisSink constructs a sink. Empty key or non-positive length fall back
// to defaults.
func NewRedisSink(client redis.UniversalClient, feedKey string, feedLength int) *RedisSink {
	if feedKey == "" {
		feedKey = defaultFeedKey
	}
	if feedLength <= 0 {
		feedLength = defaultFeedLength
	}
	return &RedisSink{client: client, feedKey: feedKey, feedLimit: int64(feedLength)}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Channel returns the pub/sub channel used for an event name.
func Channel(event string) string { return channelPrefix + event }

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, env Envelope) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("relay: redis client not configured")
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.feedKey, body)
		pipe.LTrim(ctx, s.feedKey, 0, s.feedLimit-1)
		pipe.Publish(ctx, Channel(string(env.Event)), body)
		return nil
	})
	return err
}

// Recent returns up to n envelopes from the feed, newest first.
func (s *RedisSink) Recent(ctx context.Context, n int) ([]Envelope, error) {
	if n <= 0 {
		n = 50
	}
	raw, err := s.client.LRange(ctx, s.feedKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Envelope, 0, len(raw))
	for _, item := range raw {
		var env Envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}
