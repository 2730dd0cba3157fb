package services

import (
	"context"
	"sync"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/internal/infrastructure/memory"
	"auction-platform/pkg/logger"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu          sync.Mutex
	bidEvents   []*domain.BidPlacedEvent
	closeEvents []*domain.AuctionClosedEvent
	err         error
}

func (n *recordingNotifier) BidPlaced(ctx context.Context, event *domain.BidPlacedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.bidEvents = append(n.bidEvents, event)
	return nil
}

func (n *recordingNotifier) AuctionClosed(ctx context.Context, event *domain.AuctionClosedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.closeEvents = append(n.closeEvents, event)
	return nil
}

func (n *recordingNotifier) BidEventCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bidEvents)
}

func (n *recordingNotifier) CloseEventCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.closeEvents)
}

func (n *recordingNotifier) CloseEvents() []*domain.AuctionClosedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*domain.AuctionClosedEvent(nil), n.closeEvents...)
}

// flakyStore wraps the memory store to inject failures.
type flakyStore struct {
	domain.AuctionStore
	saveBidErr    error
	markClosedErr func(auctionID string) error
}

func (s *flakyStore) SaveBidAndAuction(ctx context.Context, bid *domain.Bid, auction *domain.Auction) error {
	if s.saveBidErr != nil {
		return s.saveBidErr
	}
	return s.AuctionStore.SaveBidAndAuction(ctx, bid, auction)
}

func (s *flakyStore) MarkClosed(ctx context.Context, auction *domain.Auction) error {
	if s.markClosedErr != nil {
		if err := s.markClosedErr(auction.ID); err != nil {
			return err
		}
	}
	return s.AuctionStore.MarkClosed(ctx, auction)
}

type fakeElection struct {
	leader bool
}

func (f *fakeElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return nil
}

type testEnv struct {
	store    *memory.MemoryAuctionStore
	users    *memory.MemoryUserDirectory
	notifier *recordingNotifier
	closer   *AuctionCloser
}

func newTestEnv() *testEnv {
	store := memory.NewMemoryAuctionStore()
	users := memory.NewMemoryUserDirectory()
	users.AddUser(&domain.User{ID: "seller-1", Email: "seller@example.com"})
	users.AddUser(&domain.User{ID: "alice", Email: "alice@example.com"})
	users.AddUser(&domain.User{ID: "bob", Email: "bob@example.com"})

	notifier := &recordingNotifier{}
	closer := NewAuctionCloser(store, users, notifier, logger.NewNop())
	return &testEnv{
		store:    store,
		users:    users,
		notifier: notifier,
		closer:   closer,
	}
}

func (e *testEnv) seedAuction(id string, endsIn time.Duration, startPrice string) *domain.Auction {
	now := time.Now().UTC()
	auction := &domain.Auction{
		ID:           id,
		Title:        "test lot",
		StartPrice:   dec(startPrice),
		CurrentPrice: dec(startPrice),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(endsIn),
		SellerID:     "seller-1",
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateAuction(context.Background(), auction); err != nil {
		panic(err)
	}
	return auction
}
