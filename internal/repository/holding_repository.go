package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// GetHoldings retrieves the holdings of a portfolio ordered by entry date, then
// by insertion order.
// Returns an empty slice if the portfolio has no holdings.
func (r *HoldingRepository) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	query := `
          SELECT id, portfolio_id, ticker, entry_date, entry_price, quantity
          FROM holding
          WHERE portfolio_id = ?
          ORDER BY entry_date ASC, created_at ASC, rowid ASC
      `

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}

	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// GetHolding retrieves a single holding together with the user owning its portfolio.
func (r *HoldingRepository) GetHolding(ctx context.Context, holdingID string) (model.Holding, string, error) {
	query := `
          SELECT h.id, h.portfolio_id, h.ticker, h.entry_date, h.entry_price, h.quantity, p.user_id
          FROM holding h
          JOIN portfolio p ON p.id = h.portfolio_id
          WHERE h.id = ?
      `

	var h model.Holding
	var entryDate, userID string
	err := r.db.QueryRowContext(ctx, query, holdingID).Scan(
		&h.ID,
		&h.PortfolioID,
		&h.Ticker,
		&entryDate,
		&h.EntryPrice,
		&h.Quantity,
		&userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, "", apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, "", fmt.Errorf("failed to query holding: %w", err)
	}

	h.EntryDate, err = ParseTime(entryDate)
	if err != nil {
		return model.Holding{}, "", err
	}

	return h, userID, nil
}

func (r *HoldingRepository) InsertHolding(ctx context.Context, h *model.Holding) error {
	query := `
        INSERT INTO holding (id, portfolio_id, ticker, entry_date, entry_price, quantity)
        VALUES (?, ?, ?, ?, ?, ?)
    `

	_, err := r.db.ExecContext(ctx, query,
		h.ID,
		h.PortfolioID,
		h.Ticker,
		h.EntryDate.Format("2006-01-02"),
		h.EntryPrice,
		h.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	return nil
}

func (r *HoldingRepository) DeleteHolding(ctx context.Context, holdingID string) error {
	query := `DELETE FROM holding WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, holdingID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrHoldingNotFound
	}

	return nil
}

func scanHolding(row rowScanner) (model.Holding, error) {
	var h model.Holding
	var entryDate string

	if err := row.Scan(&h.ID, &h.PortfolioID, &h.Ticker, &entryDate, &h.EntryPrice, &h.Quantity); err != nil {
		return model.Holding{}, err
	}

	t, err := ParseTime(entryDate)
	if err != nil {
		return model.Holding{}, err
	}
	h.EntryDate = t

	return h, nil
}
