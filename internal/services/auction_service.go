package services

import (
	"context"
	"fmt"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
	"auction-platform/pkg/utils"

	"github.com/shopspring/decimal"
)

// AuctionService covers the seller-facing lifecycle (create, update before
// start, delete while bidless) and the read paths. Reads opportunistically
// close expired auctions through the shared closer, so API responses are
// never stale with respect to the deadline.
type AuctionService struct {
	store  domain.AuctionStore
	closer *AuctionCloser
	now    func() time.Time
	log    logger.Logger
}

func NewAuctionService(store domain.AuctionStore, closer *AuctionCloser, log logger.Logger) *AuctionService {
	return &AuctionService{
		store:  store,
		closer: closer,
		now:    time.Now,
		log:    log,
	}
}

type CreateAuctionInput struct {
	Title       string
	Description string
	StartPrice  decimal.Decimal
	StartTime   time.Time
	EndTime     time.Time
}

func (in *CreateAuctionInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidAuction)
	}
	if in.StartPrice.IsNegative() {
		return fmt.Errorf("%w: start price must not be negative", domain.ErrInvalidAuction)
	}
	if !in.EndTime.After(in.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidAuction)
	}
	return nil
}

func (s *AuctionService) CreateAuction(ctx context.Context, sellerID string, input CreateAuctionInput) (*domain.Auction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	auction := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		Title:        input.Title,
		Description:  input.Description,
		StartPrice:   input.StartPrice,
		CurrentPrice: input.StartPrice,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		SellerID:     sellerID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "seller_id", sellerID,
		"end_time", auction.EndTime)
	return auction, nil
}

// UpdateAuction rewrites the listing. Rejected once the auction has started;
// the current price tracks the new start price since no bids can exist yet.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID, sellerID string, input CreateAuctionInput) (*domain.Auction, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.SellerID != sellerID {
		return nil, fmt.Errorf("update auction %s: %w", auctionID, domain.ErrForbidden)
	}
	if auction.Started(s.now().UTC()) {
		return nil, fmt.Errorf("update auction %s: %w", auctionID, domain.ErrAuctionStarted)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	auction.Title = input.Title
	auction.Description = input.Description
	auction.StartPrice = input.StartPrice
	auction.CurrentPrice = input.StartPrice
	auction.StartTime = input.StartTime
	auction.EndTime = input.EndTime

	if err := s.store.UpdateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	s.log.Info("Auction updated", "auction_id", auctionID)
	return auction, nil
}

func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID, sellerID string) error {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}

	if auction.SellerID != sellerID {
		return fmt.Errorf("delete auction %s: %w", auctionID, domain.ErrForbidden)
	}
	if len(auction.Bids) > 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, domain.ErrHasBids)
	}

	if err := s.store.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("delete auction %s: %w", auctionID, err)
	}

	s.log.Info("Auction deleted", "auction_id", auctionID)
	return nil
}

// GetAuction returns a single auction, finalizing it first if its deadline
// has passed.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.closer.CloseIfDue(ctx, auction, s.now().UTC()); err != nil {
		s.log.Error("Failed to close expired auction on read path",
			"auction_id", auctionID, "error", err)
	}
	return auction, nil
}

// ListAuctions returns all auctions, finalizing any that are past deadline.
func (s *AuctionService) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	auctions, err := s.store.ListAuctions(ctx)
	if err != nil {
		return nil, err
	}

	s.closer.CloseAllDue(ctx, auctions, s.now().UTC())
	return auctions, nil
}
