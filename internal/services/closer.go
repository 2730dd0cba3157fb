package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// AuctionCloser applies the closing policy to a loaded auction and persists
// the result. Every closing path in the system (background sweep, read path,
// bid path) funnels through here, so the race between them is decided in
// exactly one place: the store's compare-and-set on IsClosed.
type AuctionCloser struct {
	store    domain.AuctionStore
	users    domain.UserDirectory
	notifier domain.EventNotifier
	log      logger.Logger
}

func NewAuctionCloser(
	store domain.AuctionStore,
	users domain.UserDirectory,
	notifier domain.EventNotifier,
	log logger.Logger,
) *AuctionCloser {
	return &AuctionCloser{
		store:    store,
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

// CloseIfDue closes the auction if its deadline has passed, publishes the
// close event after the commit, and returns the event. Returns (nil, nil)
// when the auction is not due, or when another closer won the race - the
// winner's event already covers that close, so re-emitting would double
// broadcast.
//
// On a lost race the in-memory auction still carries the policy result; the
// policy is deterministic over the same bid set, so the snapshot matches what
// the winner committed.
func (c *AuctionCloser) CloseIfDue(ctx context.Context, auction *domain.Auction, now time.Time) (*domain.AuctionClosedEvent, error) {
	result := domain.ResolveClosing(auction, now)
	if !result.ShouldClose {
		return nil, nil
	}

	auction.IsClosed = true
	auction.WinnerID = result.WinnerID
	auction.CurrentPrice = result.FinalPrice

	if err := c.store.MarkClosed(ctx, auction); err != nil {
		if errors.Is(err, domain.ErrAlreadyClosed) {
			return nil, nil
		}
		return nil, fmt.Errorf("closer: failed to persist close for auction %s: %w", auction.ID, err)
	}

	event := &domain.AuctionClosedEvent{
		AuctionID:   auction.ID,
		FinalPrice:  result.FinalPrice,
		WinnerEmail: c.winnerEmail(ctx, result.WinnerID),
		ClosedAt:    now.UTC().Format(time.RFC3339),
	}

	// A missed broadcast is acceptable; a missed commit is not.
	if err := c.notifier.AuctionClosed(ctx, event); err != nil {
		c.log.Error("Failed to publish close event", "auction_id", auction.ID, "error", err)
	}

	c.log.Info("Auction closed", "auction_id", auction.ID,
		"winner_id", result.WinnerID, "final_price", result.FinalPrice)
	return event, nil
}

// CloseAllDue closes each auction independently; one failure never blocks the
// rest of the batch.
func (c *AuctionCloser) CloseAllDue(ctx context.Context, auctions []*domain.Auction, now time.Time) []*domain.AuctionClosedEvent {
	var events []*domain.AuctionClosedEvent
	for _, auction := range auctions {
		event, err := c.CloseIfDue(ctx, auction, now)
		if err != nil {
			c.log.Error("Failed to close auction", "auction_id", auction.ID, "error", err)
			continue
		}
		if event != nil {
			events = append(events, event)
		}
	}
	return events
}

func (c *AuctionCloser) winnerEmail(ctx context.Context, winnerID string) *string {
	if winnerID == "" {
		return nil
	}

	user, err := c.users.GetUser(ctx, winnerID)
	if err != nil {
		c.log.Warn("Failed to resolve winner email", "user_id", winnerID, "error", err)
		return nil
	}
	return &user.Email
}
