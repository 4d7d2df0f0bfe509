package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seatly/internal/model"
)

// ChannelPrefix prefixes the Redis channel of each route.
const ChannelPrefix = "seats:route:"

const defaultPublishTimeout = time.Second

// Relay shares seat events between service instances through Redis
// pub/sub.  Publish sends the event to Redis; every instance, this one
// included, receives it on its pattern subscription and hands it to its
// local Hub.  When Redis is unreachable the event is delivered to local
// subscribers only.
type Relay struct {
	rdb     *redis.Client
	local   *Hub
	timeout time.Duration
	done    chan struct{}
}

func NewRelay(rdb *redis.Client, local *Hub) *Relay {
	return &Relay{rdb: rdb, local: local, timeout: defaultPublishTimeout, done: make(chan struct{})}
}

// Channel returns the Redis channel for routeID.
func Channel(routeID string) string { return ChannelPrefix + routeID }

// Publish implements the coordinator's notifier.
func (r *Relay) Publish(ctx context.Context, routeID string, ev model.SeatEvent) {
	data, err := json.Marshal(ev)
	if err == nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		err = r.rdb.Publish(pctx, Channel(routeID), data).Err()
		cancel()
	}
	if err != nil {
		log.Printf("relay: publish %s failed, delivering locally: %v", routeID, err)
		r.local.Publish(ctx, routeID, ev)
	}
}

// Start subscribes to every route channel and forwards incoming events to
// the local hub until ctx is done.  It returns once the subscription is
// confirmed by Redis.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, ChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("relay: subscribe: %w", err)
	}
	go func() {
		defer close(r.done)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.forward(ctx, msg)
			}
		}
	}()
	return nil
}

// Done is closed when the forwarding loop started by Start has exited.
func (r *Relay) Done() <-chan struct{} { return r.done }

func (r *Relay) forward(ctx context.Context, msg *redis.Message) {
	routeID := strings.TrimPrefix(msg.Channel, ChannelPrefix)
	var ev model.SeatEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		log.Printf("relay: bad payload on %s: %v", msg.Channel, err)
		return
	}
	r.local.Publish(ctx, routeID, ev)
}
