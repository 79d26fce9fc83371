package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
)

// MySQLRepo is the durable LotStore backed by the vehicles, bids and users
// tables.
type MySQLRepo struct {
	db *sql.DB
}

// OpenMySQL connects to MySQL, verifies the connection and returns a repo.
func OpenMySQL(user, pass, host, port, name string) (*MySQLRepo, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &MySQLRepo{db: db}, nil
}

// GetLot returns the lot record for lotID
func (r *MySQLRepo) GetLot(ctx context.Context, lotID string) (model.Lot, error) {
	var (
		lot      model.Lot
		closesAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
        SELECT lot_id, lot_number, title, description, status, current_bid, closes_at
        FROM vehicles WHERE lot_id = ?`, lotID).
		Scan(&lot.LotID, &lot.LotNumber, &lot.Title, &lot.Description,
			&lot.Status, &lot.CurrentBid, &closesAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, auctionerrors.ErrLotNotFound)
	}
	if err != nil {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, err)
	}
	if closesAt.Valid {
		t := closesAt.Time
		lot.ClosesAt = &t
	}
	return lot, nil
}

// GetHighestBid returns the maximum bid amount in the ledger for lotID
func (r *MySQLRepo) GetHighestBid(ctx context.Context, lotID string) (int64, error) {
	var highest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(amount) FROM bids WHERE lot_id = ?`, lotID).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("get highest bid for lot %s: %w", lotID, err)
	}
	if !highest.Valid {
		return 0, fmt.Errorf("get highest bid for lot %s: %w", lotID, auctionerrors.ErrNoBids)
	}
	return highest.Int64, nil
}

// GetRecentBids returns the latest bids for a lot ascending by creation
// time, joining the user directory for display names.
func (r *MySQLRepo) GetRecentBids(ctx context.Context, lotID string, limit int) ([]model.Bid, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT b.bid_id, b.lot_id, b.bidder_id, COALESCE(u.display_name, ''),
               b.amount, b.created_at, b.is_winning
        FROM bids b
        LEFT JOIN users u ON u.user_id = b.bidder_id
        WHERE b.lot_id = ?
        ORDER BY b.created_at DESC
        LIMIT ?`, lotID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent bids for lot %s: %w", lotID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.LotID, &b.BidderID, &b.BidderName,
			&b.Amount, &b.CreatedAt, &b.IsWinning); err != nil {
			return nil, fmt.Errorf("scan bid for lot %s: %w", lotID, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get recent bids for lot %s: %w", lotID, err)
	}
	// query fetched newest-first to honour the limit; replay wants oldest-first
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return bids, nil
}

// RecordBid appends a bid and raises the lot's current bid in one
// transaction, so a crash can never leave the stored current bid behind a
// recorded bid.
func (r *MySQLRepo) RecordBid(ctx context.Context, bid model.Bid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM vehicles WHERE lot_id = ? FOR UPDATE`, bid.LotID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, auctionerrors.ErrLotNotFound)
	}
	if err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}
	if status != model.LotStatusLive && status != model.LotStatusUpcoming {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, auctionerrors.ErrLotClosed)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bids SET is_winning = 0 WHERE lot_id = ? AND is_winning = 1`, bid.LotID); err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO bids (bid_id, lot_id, bidder_id, amount, created_at, is_winning)
        VALUES (?, ?, ?, ?, ?, 1)`,
		bid.BidID, bid.LotID, bid.BidderID, bid.Amount, bid.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET current_bid = GREATEST(current_bid, ?) WHERE lot_id = ?`,
		bid.Amount, bid.LotID); err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, err)
	}
	return nil
}

// SeedLot upserts a lot on behalf of ingestion or an admin. The stored
// current bid is only written while the lot has no bids, and never
// lowered, so ingestion cannot undercut a running auction.
func (r *MySQLRepo) SeedLot(ctx context.Context, lot model.Lot) error {
	var closesAt any
	if lot.ClosesAt != nil {
		closesAt = lot.ClosesAt.UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed lot %s: %w", lot.LotID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var bidCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE lot_id = ?`, lot.LotID).Scan(&bidCount); err != nil {
		return fmt.Errorf("seed lot %s: %w", lot.LotID, err)
	}

	if bidCount > 0 {
		// bidding owns current_bid from the first accepted bid onward
		_, err = tx.ExecContext(ctx, `
            UPDATE vehicles
            SET lot_number = ?, title = ?, description = ?, status = ?, closes_at = ?
            WHERE lot_id = ?`,
			lot.LotNumber, lot.Title, lot.Description, lot.Status, closesAt, lot.LotID)
	} else {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO vehicles (lot_id, lot_number, title, description, status, current_bid, closes_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON DUPLICATE KEY UPDATE
                lot_number  = VALUES(lot_number),
                title       = VALUES(title),
                description = VALUES(description),
                status      = VALUES(status),
                closes_at   = VALUES(closes_at),
                current_bid = GREATEST(current_bid, VALUES(current_bid))`,
			lot.LotID, lot.LotNumber, lot.Title, lot.Description, lot.Status,
			lot.CurrentBid, closesAt)
	}
	if err != nil {
		return fmt.Errorf("seed lot %s: %w", lot.LotID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed lot %s: %w", lot.LotID, err)
	}
	return nil
}

// GetUser returns a user directory entry
func (r *MySQLRepo) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, display_name FROM users WHERE user_id = ?`, userID).
		Scan(&u.UserID, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}
