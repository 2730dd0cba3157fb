package domain

import (
	"context"
	"time"
)

// Store interfaces.
//
// The store is the sole arbiter of conflicting concurrent writers: MarkClosed
// is a compare-and-set on is_closed, SaveBidAndAuction and UpdateAuction are
// guarded by the auction's Version. Callers treat ErrConflict and
// ErrAlreadyClosed as first-class outcomes, never as failures.
type AuctionStore interface {
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListAuctions(ctx context.Context) ([]*Auction, error)
	GetDueAuctions(ctx context.Context, now time.Time) ([]*Auction, error)
	CreateAuction(ctx context.Context, auction *Auction) error
	UpdateAuction(ctx context.Context, auction *Auction) error
	DeleteAuction(ctx context.Context, auctionID string) error
	MarkClosed(ctx context.Context, auction *Auction) error
	SaveBidAndAuction(ctx context.Context, bid *Bid, auction *Auction) error
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

// Event interfaces
type EventNotifier interface {
	BidPlaced(ctx context.Context, event *BidPlacedEvent) error
	AuctionClosed(ctx context.Context, event *AuctionClosedEvent) error
}

type EventHandler func(event *AuctionEvent) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type SubscriberConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	Register(userID, auctionID string, conn SubscriberConnection) error
	Unregister(userID, auctionID string) error
	BroadcastToAuction(auctionID string, message interface{}) error
	CloseAuction(auctionID string) error
}
