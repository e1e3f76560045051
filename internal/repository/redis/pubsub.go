package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoutesPubSub broadcasts catalog changes so every instance can drop its
// in-process copies of a route.
type RoutesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewRoutesPubSub(rdb *redis.Client) *RoutesPubSub {
	return &RoutesPubSub{
		rdb:     rdb,
		channel: ChannelRoutesChanged(),
	}
}

type routeChangedMsg struct {
	Type    string `json:"type"`
	RouteID int64  `json:"route_id"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *RoutesPubSub) PublishRouteChanged(ctx context.Context, routeID int64) error {
	msg := routeChangedMsg{
		Type:    "route_changed",
		RouteID: routeID,
		TsUnix:  time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every route change until ctx is done.
func (p *RoutesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, routeID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev routeChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.RouteID != 0 {
				handler(ctx, ev.RouteID)
			}
		}
	}
}
