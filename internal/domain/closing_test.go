package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expiredAuction(bids []*Bid) *Auction {
	return &Auction{
		ID:         "auction-1",
		StartPrice: dec("500"),
		StartTime:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SellerID:   "seller-1",
		Bids:       bids,
	}
}

func TestResolveClosing_NoBids(t *testing.T) {
	auction := expiredAuction(nil)
	now := auction.EndTime.Add(time.Minute)

	result := ResolveClosing(auction, now)

	require.True(t, result.ShouldClose)
	require.Empty(t, result.WinnerID)
	require.True(t, result.FinalPrice.Equal(dec("500")), "final price should fall back to start price")
}

func TestResolveClosing_HighestBidWins(t *testing.T) {
	auction := expiredAuction([]*Bid{
		{ID: "bid-1", BidderID: "alice", Amount: dec("510"), Seq: 1},
		{ID: "bid-2", BidderID: "bob", Amount: dec("650"), Seq: 2},
		{ID: "bid-3", BidderID: "carol", Amount: dec("600"), Seq: 3},
	})
	now := auction.EndTime.Add(time.Second)

	result := ResolveClosing(auction, now)

	require.True(t, result.ShouldClose)
	require.Equal(t, "bob", result.WinnerID)
	require.True(t, result.FinalPrice.Equal(dec("650")))
}

func TestResolveClosing_TieGoesToEarliestBid(t *testing.T) {
	auction := expiredAuction([]*Bid{
		{ID: "bid-1", BidderID: "alice", Amount: dec("700"), Seq: 1},
		{ID: "bid-2", BidderID: "bob", Amount: dec("700"), Seq: 2},
		{ID: "bid-3", BidderID: "carol", Amount: dec("600"), Seq: 3},
	})
	now := auction.EndTime.Add(time.Second)

	result := ResolveClosing(auction, now)

	require.True(t, result.ShouldClose)
	require.Equal(t, "alice", result.WinnerID, "earliest-inserted bid wins amount ties")
	require.True(t, result.FinalPrice.Equal(dec("700")))
}

func TestResolveClosing_NotDueBeforeDeadline(t *testing.T) {
	auction := expiredAuction([]*Bid{
		{ID: "bid-1", BidderID: "alice", Amount: dec("510"), Seq: 1},
	})

	// Exactly at the deadline the auction is still open
	result := ResolveClosing(auction, auction.EndTime)
	require.False(t, result.ShouldClose)

	result = ResolveClosing(auction, auction.EndTime.Add(-time.Minute))
	require.False(t, result.ShouldClose)
}

func TestResolveClosing_AlreadyClosedAuction(t *testing.T) {
	auction := expiredAuction(nil)
	auction.IsClosed = true

	result := ResolveClosing(auction, auction.EndTime.Add(time.Hour))
	require.False(t, result.ShouldClose)
}

func TestResolveClosing_Deterministic(t *testing.T) {
	auction := expiredAuction([]*Bid{
		{ID: "bid-1", BidderID: "alice", Amount: dec("700"), Seq: 1},
		{ID: "bid-2", BidderID: "bob", Amount: dec("700"), Seq: 2},
	})
	now := auction.EndTime.Add(time.Minute)

	first := ResolveClosing(auction, now)
	for i := 0; i < 10; i++ {
		again := ResolveClosing(auction, now)
		require.Equal(t, first.ShouldClose, again.ShouldClose)
		require.Equal(t, first.WinnerID, again.WinnerID)
		require.True(t, first.FinalPrice.Equal(again.FinalPrice))
	}
}

func TestTopBid_Empty(t *testing.T) {
	require.Nil(t, TopBid(nil))
}
