package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	feedPort "postsync/internal/ports/feed"
)

// recentLimit is how many events per owner are kept for replay.
const recentLimit = 50

// FeedRepositoryRedis publishes post change events on a per-owner pub/sub
// channel and keeps the latest ones in a sorted set.
type FeedRepositoryRedis struct {
	Client *redis.Client
	Logger *zap.Logger
}

func NewFeedRepositoryRedis(client *redis.Client, logger *zap.Logger) *FeedRepositoryRedis {
	return &FeedRepositoryRedis{Client: client, Logger: logger}
}

func channelKey(ownerID string) string { return "posts:" + ownerID }
func recentKey(ownerID string) string  { return "posts:" + ownerID + ":recent" }

func (r *FeedRepositoryRedis) Publish(ctx context.Context, ev feedPort.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, channelKey(ev.OwnerID), payload)
		pipe.ZAdd(ctx, recentKey(ev.OwnerID), &redis.Z{
			Score:  float64(ev.At.UnixMilli()),
			Member: payload,
		})
		pipe.ZRemRangeByRank(ctx, recentKey(ev.OwnerID), 0, -recentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish feed event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the owner's latest events, oldest first.
func (r *FeedRepositoryRedis) Recent(ctx context.Context, ownerID string, limit int64) ([]feedPort.Event, error) {
	raw, err := r.Client.ZRange(ctx, recentKey(ownerID), -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]feedPort.Event, 0, len(raw))
	for _, s := range raw {
		var ev feedPort.Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			r.Logger.Warn("⚠️ Skipping malformed feed event", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Subscribe streams the owner's events until ctx ends or cancel is called.
func (r *FeedRepositoryRedis) Subscribe(ctx context.Context, ownerID string) (<-chan feedPort.Event, func(), error) {
	sub := r.Client.Subscribe(ctx, channelKey(ownerID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe feed: %w", err)
	}

	out := make(chan feedPort.Event, 16)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev feedPort.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.Logger.Warn("⚠️ Skipping malformed feed event", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
