package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosingResult is the outcome of ResolveClosing. FinalPrice is always set:
// the top bid's amount, or the start price when no bids exist.
type ClosingResult struct {
	ShouldClose bool
	WinnerID    string
	FinalPrice  decimal.Decimal
}

// ResolveClosing decides whether an auction is due to close at the given time
// and, if so, who won and at what price. Pure: no I/O, no mutation. Both the
// background sweep and the request-path closers go through here so winner
// selection can never drift between them.
func ResolveClosing(a *Auction, now time.Time) ClosingResult {
	result := ClosingResult{FinalPrice: a.StartPrice}

	if a.IsClosed || !now.After(a.EndTime) {
		return result
	}
	result.ShouldClose = true

	if top := TopBid(a.Bids); top != nil {
		result.WinnerID = top.BidderID
		result.FinalPrice = top.Amount
	}
	return result
}

// TopBid returns the highest bid by amount. Ties go to the earliest-inserted
// bid, made explicit by only replacing the leader on a strictly greater amount.
func TopBid(bids []*Bid) *Bid {
	var top *Bid
	for _, b := range bids {
		if top == nil || b.Amount.GreaterThan(top.Amount) {
			top = b
		}
	}
	return top
}
