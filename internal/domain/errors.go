package domain

import "errors"

// Store-level errors
var (
	ErrNotFound      = errors.New("auction not found")
	ErrConflict      = errors.New("concurrent update conflict")
	ErrAlreadyClosed = errors.New("auction already closed")
)

// Bid rejections
var (
	ErrAuctionClosed = errors.New("auction is closed")
	ErrSelfBid       = errors.New("seller cannot bid on own auction")
	ErrBidTooLow     = errors.New("bid amount too low")
)

// Auction management rejections
var (
	ErrInvalidAuction = errors.New("invalid auction")
	ErrAuctionStarted = errors.New("auction has already started")
	ErrHasBids        = errors.New("auction already has bids")
	ErrForbidden      = errors.New("operation not permitted")
)
