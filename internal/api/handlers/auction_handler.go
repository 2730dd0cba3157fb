package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/internal/services"
	"auction-platform/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	auctions *services.AuctionService
	bids     *services.BidService
	users    domain.UserDirectory
	log      logger.Logger
}

func NewAuctionHandler(
	auctions *services.AuctionService,
	bids *services.BidService,
	users domain.UserDirectory,
	log logger.Logger,
) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		bids:     bids,
		users:    users,
		log:      log,
	}
}

func (h *AuctionHandler) Register(g *echo.Group) {
	g.GET("/auctions", h.ListAuctions)
	g.GET("/auctions/:id", h.GetAuction)
	g.POST("/auctions", h.CreateAuction)
	g.PUT("/auctions/:id", h.UpdateAuction)
	g.DELETE("/auctions/:id", h.DeleteAuction)
	g.POST("/auctions/:id/bids", h.PlaceBid)
}

type AuctionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartPrice  decimal.Decimal `json:"start_price"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type BidResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	BidderEmail string          `json:"bidder_email"`
}

type AuctionResponse struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	StartPrice       decimal.Decimal `json:"start_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          time.Time       `json:"end_time"`
	IsClosed         bool            `json:"is_closed"`
	SellerEmail      string          `json:"seller_email"`
	WinnerEmail      *string         `json:"winner_email"`
	Bids             []BidResponse   `json:"bids"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	ServerTimeUTC    time.Time       `json:"server_time_utc"`
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	auctions, err := h.auctions.ListAuctions(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}

	now := time.Now().UTC()
	result := make([]*AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		result = append(result, h.toResponse(c.Request().Context(), auction, now))
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.auctions.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.toResponse(c.Request().Context(), auction, time.Now().UTC()))
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req AuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	auction, err := h.auctions.CreateAuction(c.Request().Context(), sellerID, services.CreateAuctionInput{
		Title:       req.Title,
		Description: req.Description,
		StartPrice:  req.StartPrice,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, h.toResponse(c.Request().Context(), auction, time.Now().UTC()))
}

func (h *AuctionHandler) UpdateAuction(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req AuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	auction, err := h.auctions.UpdateAuction(c.Request().Context(), c.Param("id"), sellerID, services.CreateAuctionInput{
		Title:       req.Title,
		Description: req.Description,
		StartPrice:  req.StartPrice,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.toResponse(c.Request().Context(), auction, time.Now().UTC()))
}

func (h *AuctionHandler) DeleteAuction(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	if err := h.auctions.DeleteAuction(c.Request().Context(), c.Param("id"), sellerID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Auction deleted"})
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	bidderID, err := callerID(c)
	if err != nil {
		return err
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	bid, err := h.bids.PlaceBid(c.Request().Context(), c.Param("id"), bidderID, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}

	emails := map[string]string{}
	return c.JSON(http.StatusOK, BidResponse{
		ID:          bid.ID,
		Amount:      bid.Amount,
		Timestamp:   bid.Timestamp,
		BidderEmail: h.emailFor(c.Request().Context(), emails, bid.BidderID),
	})
}

// callerID reads the authenticated user from the gateway-injected header.
// Authentication itself happens upstream.
func callerID(c echo.Context) (string, error) {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing user identity")
	}
	return userID, nil
}

func (h *AuctionHandler) fail(c echo.Context, err error) error {
	status := rejectionStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.Path(), "error", err)
		return c.JSON(status, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuctionClosed),
		errors.Is(err, domain.ErrSelfBid),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrInvalidAuction),
		errors.Is(err, domain.ErrAuctionStarted),
		errors.Is(err, domain.ErrHasBids):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuctionHandler) toResponse(ctx context.Context, a *domain.Auction, now time.Time) *AuctionResponse {
	emails := map[string]string{}

	bids := make([]BidResponse, 0, len(a.Bids))
	for _, b := range a.Bids {
		bids = append(bids, BidResponse{
			ID:          b.ID,
			Amount:      b.Amount,
			Timestamp:   b.Timestamp,
			BidderEmail: h.emailFor(ctx, emails, b.BidderID),
		})
	}
	// Newest first for display
	sort.Slice(bids, func(i, j int) bool { return bids[i].Timestamp.After(bids[j].Timestamp) })

	isClosed := a.IsClosed || !now.Before(a.EndTime)
	var remaining int64
	if !isClosed {
		remaining = int64(a.EndTime.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	var winnerEmail *string
	if a.WinnerID != "" {
		email := h.emailFor(ctx, emails, a.WinnerID)
		winnerEmail = &email
	}

	return &AuctionResponse{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		StartPrice:       a.StartPrice,
		CurrentPrice:     a.CurrentPrice,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		IsClosed:         isClosed,
		SellerEmail:      h.emailFor(ctx, emails, a.SellerID),
		WinnerEmail:      winnerEmail,
		Bids:             bids,
		RemainingSeconds: remaining,
		ServerTimeUTC:    now,
	}
}

func (h *AuctionHandler) emailFor(ctx context.Context, cache map[string]string, userID string) string {
	if email, ok := cache[userID]; ok {
		return email
	}

	var email string
	if user, err := h.users.GetUser(ctx, userID); err == nil {
		email = user.Email
	}
	cache[userID] = email
	return email
}
