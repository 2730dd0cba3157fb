package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-platform/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLAuctionStore persists auctions and their bids. Conditional updates
// (version check on bid writes, is_closed compare-and-set on closing) make the
// database the single arbiter between concurrent writers.
type MySQLAuctionStore struct {
	db *sql.DB
}

func NewMySQLAuctionStore(db *sql.DB) *MySQLAuctionStore {
	return &MySQLAuctionStore{db: db}
}

const auctionColumns = `id, title, description, start_price, current_price,
        start_time, end_time, is_closed, seller_id, winner_id, version, created_at, updated_at`

func (s *MySQLAuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := s.loadBids(ctx, auction); err != nil {
		return nil, err
	}
	return auction, nil
}

func (s *MySQLAuctionStore) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions ORDER BY end_time ASC`
	return s.queryAuctions(ctx, query)
}

func (s *MySQLAuctionStore) GetDueAuctions(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE is_closed = 0 AND end_time <= ?`
	return s.queryAuctions(ctx, query, now)
}

func (s *MySQLAuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, description, start_price, current_price,
            start_time, end_time, is_closed, seller_id, winner_id, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		auction.ID, auction.Title, auction.Description,
		auction.StartPrice, auction.CurrentPrice,
		auction.StartTime, auction.EndTime, auction.IsClosed,
		auction.SellerID, nullString(auction.WinnerID), auction.Version,
		auction.CreatedAt, auction.UpdatedAt)
	return err
}

// UpdateAuction rewrites the editable fields, guarded by the version the
// caller loaded. A stale writer gets ErrConflict.
func (s *MySQLAuctionStore) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET title = ?, description = ?, start_price = ?, current_price = ?,
            start_time = ?, end_time = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?
    `
	result, err := s.db.ExecContext(ctx, query,
		auction.Title, auction.Description, auction.StartPrice, auction.CurrentPrice,
		auction.StartTime, auction.EndTime, time.Now().UTC(),
		auction.ID, auction.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConflict
	}

	auction.Version++
	return nil
}

func (s *MySQLAuctionStore) DeleteAuction(ctx context.Context, auctionID string) error {
	query := `
        DELETE FROM auctions
        WHERE id = ? AND NOT EXISTS (SELECT 1 FROM bids WHERE auction_id = ?)
    `
	result, err := s.db.ExecContext(ctx, query, auctionID, auctionID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHasBids
	}
	return nil
}

// MarkClosed persists the closing result with a compare-and-set on is_closed,
// so the sweep and an opportunistic closer racing on the same auction commit
// at most once. The loser gets ErrAlreadyClosed.
func (s *MySQLAuctionStore) MarkClosed(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET is_closed = 1, winner_id = ?, current_price = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND is_closed = 0
    `
	result, err := s.db.ExecContext(ctx, query,
		nullString(auction.WinnerID), auction.CurrentPrice, time.Now().UTC(), auction.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAlreadyClosed
	}

	auction.Version++
	return nil
}

// SaveBidAndAuction records an accepted bid and the auction's new price and
// provisional winner in a single transaction, guarded by the auction version.
// A concurrent writer that committed first forces ErrConflict here; the bid
// path reloads and revalidates.
func (s *MySQLAuctionStore) SaveBidAndAuction(ctx context.Context, bid *domain.Bid, auction *domain.Auction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `
        UPDATE auctions
        SET current_price = ?, winner_id = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ? AND is_closed = 0
    `
	result, err := tx.ExecContext(ctx, updateQuery,
		auction.CurrentPrice, nullString(auction.WinnerID), time.Now().UTC(),
		auction.ID, auction.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConflict
	}

	insertQuery := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, seq, timestamp)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	if _, err := tx.ExecContext(ctx, insertQuery,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.Seq, bid.Timestamp); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	auction.Version++
	return nil
}

func (s *MySQLAuctionStore) queryAuctions(ctx context.Context, query string, args ...interface{}) ([]*domain.Auction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, auction := range auctions {
		if err := s.loadBids(ctx, auction); err != nil {
			return nil, err
		}
	}
	return auctions, nil
}

func (s *MySQLAuctionStore) loadBids(ctx context.Context, auction *domain.Auction) error {
	query := `
        SELECT id, auction_id, bidder_id, amount, seq, timestamp
        FROM bids WHERE auction_id = ?
        ORDER BY seq ASC
    `
	rows, err := s.db.QueryContext(ctx, query, auction.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID,
			&bid.Amount, &bid.Seq, &bid.Timestamp); err != nil {
			return err
		}
		auction.Bids = append(auction.Bids, &bid)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var winnerID sql.NullString

	err := row.Scan(&auction.ID, &auction.Title, &auction.Description,
		&auction.StartPrice, &auction.CurrentPrice,
		&auction.StartTime, &auction.EndTime, &auction.IsClosed,
		&auction.SellerID, &winnerID, &auction.Version,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.WinnerID = winnerID.String
	return &auction, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
