package memory

import (
	"context"
	"sync"
	"time"

	"auction-platform/internal/domain"
)

// MemoryAuctionStore is a concurrency-safe in-memory AuctionStore with the
// same conflict semantics as the MySQL store: version-checked bid writes and
// a compare-and-set on IsClosed for closing. Reads hand out deep copies so
// callers work against a snapshot, the way a row scan would.
type MemoryAuctionStore struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewMemoryAuctionStore() *MemoryAuctionStore {
	return &MemoryAuctionStore{
		auctions: make(map[string]*domain.Auction),
	}
}

func (s *MemoryAuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAuction(auction), nil
}

func (s *MemoryAuctionStore) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]*domain.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		auctions = append(auctions, copyAuction(a))
	}
	return auctions, nil
}

func (s *MemoryAuctionStore) GetDueAuctions(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.Auction
	for _, a := range s.auctions {
		if !a.IsClosed && !a.EndTime.After(now) {
			due = append(due, copyAuction(a))
		}
	}
	return due, nil
}

func (s *MemoryAuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return domain.ErrConflict
	}
	s.auctions[auction.ID] = copyAuction(auction)
	return nil
}

func (s *MemoryAuctionStore) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.auctions[auction.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != auction.Version {
		return domain.ErrConflict
	}

	updated := copyAuction(auction)
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	s.auctions[auction.ID] = updated

	auction.Version++
	return nil
}

func (s *MemoryAuctionStore) DeleteAuction(ctx context.Context, auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	if len(current.Bids) > 0 {
		return domain.ErrHasBids
	}
	delete(s.auctions, auctionID)
	return nil
}

func (s *MemoryAuctionStore) MarkClosed(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.auctions[auction.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.IsClosed {
		return domain.ErrAlreadyClosed
	}

	current.IsClosed = true
	current.WinnerID = auction.WinnerID
	current.CurrentPrice = auction.CurrentPrice
	current.Version++
	current.UpdatedAt = time.Now().UTC()

	auction.Version = current.Version
	return nil
}

func (s *MemoryAuctionStore) SaveBidAndAuction(ctx context.Context, bid *domain.Bid, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.auctions[auction.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.IsClosed || current.Version != auction.Version {
		return domain.ErrConflict
	}

	saved := *bid
	current.Bids = append(current.Bids, &saved)
	current.CurrentPrice = auction.CurrentPrice
	current.WinnerID = auction.WinnerID
	current.Version++
	current.UpdatedAt = time.Now().UTC()

	auction.Version = current.Version
	return nil
}

func copyAuction(a *domain.Auction) *domain.Auction {
	dup := *a
	dup.Bids = make([]*domain.Bid, len(a.Bids))
	for i, b := range a.Bids {
		bid := *b
		dup.Bids[i] = &bid
	}
	return &dup
}

// MemoryUserDirectory resolves user emails from a fixed map.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{users: make(map[string]*domain.User)}
}

func (d *MemoryUserDirectory) AddUser(user *domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *MemoryUserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
