package services

import (
	"context"
	"fmt"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// EventListener bridges the event stream into websocket groups on the
// gateway: every event is rebroadcast to the auction's subscribers, and a
// close event also tears the group down.
type EventListener struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventListener(connManager domain.ConnectionManager, log logger.Logger) *EventListener {
	return &EventListener{
		connManager: connManager,
		log:         log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.Subscribe(ctx, el.handleEvent)
}

func (el *EventListener) handleEvent(event *domain.AuctionEvent) error {
	el.log.Info("Handling auction event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.EventBidPlaced:
		return el.connManager.BroadcastToAuction(event.AuctionID, event)

	case domain.EventAuctionClosed:
		if err := el.connManager.BroadcastToAuction(event.AuctionID, event); err != nil {
			el.log.Error("Failed to broadcast close event",
				"auction_id", event.AuctionID, "error", err)
			return err
		}
		return el.connManager.CloseAuction(event.AuctionID)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}
