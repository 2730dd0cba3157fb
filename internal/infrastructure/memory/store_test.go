package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-platform/internal/domain"

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

func newAuction(id string) *domain.Auction {
	now := time.Now().UTC()
	return &domain.Auction{
		ID:           id,
		Title:        "vintage radio",
		StartPrice:   dec("100"),
		CurrentPrice: dec("100"),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		SellerID:     "seller-1",
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	loaded, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the store
	loaded.Title = "changed"
	loaded.Bids = append(loaded.Bids, &domain.Bid{ID: "bid-x"})

	fresh, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "vintage radio", fresh.Title)
	require.Empty(t, fresh.Bids)
}

func TestMemoryStore_GetAuctionNotFound(t *testing.T) {
	store := NewMemoryAuctionStore()

	_, err := store.GetAuction(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_SaveBidAndAuction_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	first, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	second, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)

	first.CurrentPrice = dec("110")
	first.WinnerID = "alice"
	require.NoError(t, store.SaveBidAndAuction(ctx, &domain.Bid{
		ID: "bid-1", AuctionID: "a1", BidderID: "alice", Amount: dec("110"), Seq: 1,
	}, first))

	// The second writer still holds the old version
	second.CurrentPrice = dec("105")
	second.WinnerID = "bob"
	err = store.SaveBidAndAuction(ctx, &domain.Bid{
		ID: "bid-2", AuctionID: "a1", BidderID: "bob", Amount: dec("105"), Seq: 1,
	}, second)
	require.ErrorIs(t, err, domain.ErrConflict)

	fresh, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, fresh.Bids, 1)
	require.Equal(t, "alice", fresh.WinnerID)
	require.True(t, fresh.CurrentPrice.Equal(dec("110")))
}

func TestMemoryStore_MarkClosed_SecondCallLosesRace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	first, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	second, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)

	first.IsClosed = true
	first.WinnerID = "alice"
	first.CurrentPrice = dec("150")
	require.NoError(t, store.MarkClosed(ctx, first))

	second.IsClosed = true
	second.WinnerID = "bob"
	second.CurrentPrice = dec("140")
	err = store.MarkClosed(ctx, second)
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)

	fresh, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, fresh.IsClosed)
	require.Equal(t, "alice", fresh.WinnerID)
	require.True(t, fresh.CurrentPrice.Equal(dec("150")))
}

func TestMemoryStore_SaveBidOnClosedAuction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	loaded, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	loaded.IsClosed = true
	require.NoError(t, store.MarkClosed(ctx, loaded))

	err = store.SaveBidAndAuction(ctx, &domain.Bid{
		ID: "bid-1", AuctionID: "a1", BidderID: "alice", Amount: dec("110"), Seq: 1,
	}, loaded)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestMemoryStore_GetDueAuctions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	now := time.Now().UTC()

	due := newAuction("due")
	due.EndTime = now.Add(-time.Minute)
	stillOpen := newAuction("open")
	stillOpen.EndTime = now.Add(time.Hour)
	closed := newAuction("closed")
	closed.EndTime = now.Add(-time.Hour)
	closed.IsClosed = true

	for _, a := range []*domain.Auction{due, stillOpen, closed} {
		require.NoError(t, store.CreateAuction(ctx, a))
	}

	dueAuctions, err := store.GetDueAuctions(ctx, now)
	require.NoError(t, err)
	require.Len(t, dueAuctions, 1)
	require.Equal(t, "due", dueAuctions[0].ID)
}

func TestMemoryStore_DeleteAuction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	require.NoError(t, store.DeleteAuction(ctx, "a1"))
	_, err := store.GetAuction(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteAuction(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_DeleteAuctionWithBids(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	loaded, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	loaded.CurrentPrice = dec("120")
	require.NoError(t, store.SaveBidAndAuction(ctx, &domain.Bid{
		ID: "bid-1", AuctionID: "a1", BidderID: "alice", Amount: dec("120"), Seq: 1,
	}, loaded))

	err = store.DeleteAuction(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrHasBids)
}

func TestMemoryStore_UpdateAuction_StaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuctionStore()
	require.NoError(t, store.CreateAuction(ctx, newAuction("a1")))

	first, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)
	second, err := store.GetAuction(ctx, "a1")
	require.NoError(t, err)

	first.Title = "updated once"
	require.NoError(t, store.UpdateAuction(ctx, first))

	second.Title = "stale update"
	require.ErrorIs(t, store.UpdateAuction(ctx, second), domain.ErrConflict)
}

func TestMemoryUserDirectory(t *testing.T) {
	dir := NewMemoryUserDirectory()
	dir.AddUser(&domain.User{ID: "u1", Email: "u1@example.com"})

	user, err := dir.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1@example.com", user.Email)

	_, err = dir.GetUser(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}
