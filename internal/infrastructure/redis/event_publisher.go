package redis

import (
	"context"
	"encoding/json"

	"auction-platform/internal/domain"

	"github.com/go-redis/redis/v8"
)

const eventChannel = "auction_events"

// RedisEventPublisher fans auction events out over Redis pub/sub. The stream
// gateway subscribes on the other end and rebroadcasts to websocket groups.
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (p *RedisEventPublisher) BidPlaced(ctx context.Context, event *domain.BidPlacedEvent) error {
	return p.publish(ctx, domain.EventBidPlaced, event.AuctionID, event)
}

func (p *RedisEventPublisher) AuctionClosed(ctx context.Context, event *domain.AuctionClosedEvent) error {
	return p.publish(ctx, domain.EventAuctionClosed, event.AuctionID, event)
}

func (p *RedisEventPublisher) publish(ctx context.Context, eventType domain.EventType, auctionID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	envelope, err := json.Marshal(&domain.AuctionEvent{
		Type:      eventType,
		AuctionID: auctionID,
		Payload:   body,
	})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, eventChannel, envelope).Err()
}
