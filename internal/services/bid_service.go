package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
	"auction-platform/pkg/utils"

	"github.com/shopspring/decimal"
)

const defaultMaxBidRetries = 3

// BidService validates and commits bids against possibly-expiring auctions.
// Two simultaneous bids on the same auction are serialized by the store's
// version check: the second writer's save fails with ErrConflict, and the bid
// is revalidated against the freshly committed price before being retried or
// rejected.
type BidService struct {
	store      domain.AuctionStore
	users      domain.UserDirectory
	notifier   domain.EventNotifier
	closer     *AuctionCloser
	maxRetries int
	now        func() time.Time
	log        logger.Logger
}

func NewBidService(
	store domain.AuctionStore,
	users domain.UserDirectory,
	notifier domain.EventNotifier,
	closer *AuctionCloser,
	maxRetries int,
	log logger.Logger,
) *BidService {
	if maxRetries <= 0 {
		maxRetries = defaultMaxBidRetries
	}
	return &BidService{
		store:      store,
		users:      users,
		notifier:   notifier,
		closer:     closer,
		maxRetries: maxRetries,
		now:        time.Now,
		log:        log,
	}
}

// PlaceBid runs the bid gates against a fresh snapshot, retrying on write
// conflict up to the configured bound. Exhausted retries surface ErrConflict.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	for attempt := 0; ; attempt++ {
		bid, err := s.tryPlaceBid(ctx, auctionID, bidderID, amount)
		if errors.Is(err, domain.ErrConflict) && attempt < s.maxRetries {
			s.log.Debug("Bid write conflict, revalidating",
				"auction_id", auctionID, "attempt", attempt+1)
			continue
		}
		return bid, err
	}
}

func (s *BidService) tryPlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	now := s.now().UTC()

	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.IsClosed || auction.Expired(now) {
		// Close before rejecting so the record is never left stale.
		if _, err := s.closer.CloseIfDue(ctx, auction, now); err != nil {
			s.log.Error("Failed to close expired auction on bid path",
				"auction_id", auctionID, "error", err)
		}
		return nil, fmt.Errorf("place bid on auction %s: %w", auctionID, domain.ErrAuctionClosed)
	}

	if bidderID == auction.SellerID {
		return nil, fmt.Errorf("place bid on auction %s: %w", auctionID, domain.ErrSelfBid)
	}

	if !amount.GreaterThan(auction.CurrentPrice) {
		return nil, fmt.Errorf("%w: bid must be higher than current price %s",
			domain.ErrBidTooLow, auction.CurrentPrice.String())
	}

	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		AuctionID: auction.ID,
		BidderID:  bidderID,
		Amount:    amount,
		Seq:       int64(len(auction.Bids)) + 1,
		Timestamp: now,
	}

	auction.Bids = append(auction.Bids, bid)
	auction.CurrentPrice = amount
	auction.WinnerID = bidderID // provisional leader until closing

	if err := s.store.SaveBidAndAuction(ctx, bid, auction); err != nil {
		return nil, err
	}

	s.publishBidPlaced(ctx, auction, bid)

	s.log.Info("Bid accepted", "auction_id", auction.ID, "bid_id", bid.ID,
		"bidder_id", bidderID, "amount", amount)
	return bid, nil
}

func (s *BidService) publishBidPlaced(ctx context.Context, auction *domain.Auction, bid *domain.Bid) {
	var email string
	if user, err := s.users.GetUser(ctx, bid.BidderID); err == nil {
		email = user.Email
	} else {
		s.log.Warn("Failed to resolve bidder email", "user_id", bid.BidderID, "error", err)
	}

	event := &domain.BidPlacedEvent{
		AuctionID:    auction.ID,
		BidID:        bid.ID,
		Amount:       bid.Amount,
		CurrentPrice: auction.CurrentPrice,
		BidderEmail:  email,
		Timestamp:    bid.Timestamp.Format(time.RFC3339),
	}

	// The bid is already committed; a failed broadcast is logged and dropped.
	if err := s.notifier.BidPlaced(ctx, event); err != nil {
		s.log.Error("Failed to publish bid event",
			"auction_id", auction.ID, "bid_id", bid.ID, "error", err)
	}
}
