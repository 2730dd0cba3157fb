package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Auction is the unit of contention: all bid and closing writes are serialized
// through its Version token at the store.
type Auction struct {
	ID           string
	Title        string
	Description  string
	StartPrice   decimal.Decimal
	CurrentPrice decimal.Decimal
	StartTime    time.Time
	EndTime      time.Time
	IsClosed     bool
	SellerID     string
	WinnerID     string
	Version      int64
	Bids         []*Bid // insertion order, preserved by Seq
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Started reports whether the auction may no longer be edited.
func (a *Auction) Started(now time.Time) bool {
	return !now.Before(a.StartTime)
}

// Expired reports whether the closing deadline has passed.
func (a *Auction) Expired(now time.Time) bool {
	return now.After(a.EndTime)
}

type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    decimal.Decimal
	Seq       int64 // insertion order within the auction
	Timestamp time.Time
}

type User struct {
	ID    string
	Email string
}

type EventType string

const (
	EventBidPlaced     EventType = "bid_placed"
	EventAuctionClosed EventType = "auction_closed"
)

// AuctionEvent is the envelope published on the auction event channel.
type AuctionEvent struct {
	Type      EventType       `json:"type"`
	AuctionID string          `json:"auction_id"`
	Payload   json.RawMessage `json:"payload"`
}

type BidPlacedEvent struct {
	AuctionID    string          `json:"auction_id"`
	BidID        string          `json:"bid_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	BidderEmail  string          `json:"bidder_email"`
	Timestamp    string          `json:"timestamp"` // ISO-8601 UTC
}

type AuctionClosedEvent struct {
	AuctionID   string          `json:"auction_id"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	WinnerEmail *string         `json:"winner_email"`
	ClosedAt    string          `json:"closed_at"` // ISO-8601 UTC
}
