package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// StockRepository provides data access methods for the stock table, which
// stores one serialized price history per ticker.
type StockRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewStockRepository creates a new StockRepository with the provided database connection.
func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

// WithTx returns a new StockRepository scoped to the provided transaction.
func (r *StockRepository) WithTx(tx *sql.Tx) *StockRepository {
	return &StockRepository{
		db: r.db,
		tx: tx,
	}
}

// BeginTx starts a transaction on the underlying database.
func (r *StockRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *StockRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetStocks retrieves every stock with its price blob, ordered by ticker.
// Returns an empty slice if no stocks are stored.
func (r *StockRepository) GetStocks(ctx context.Context) ([]model.Stock, error) {
	query := `
          SELECT ticker, company, prices, updated_at
          FROM stock
          ORDER BY ticker
      `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock table: %w", err)
	}
	defer rows.Close()

	stocks := []model.Stock{}

	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock table results: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock table: %w", err)
	}

	return stocks, nil
}

// GetStock retrieves a stock by ticker.
func (r *StockRepository) GetStock(ctx context.Context, ticker string) (model.Stock, error) {
	query := `
          SELECT ticker, company, prices, updated_at
          FROM stock
          WHERE ticker = ?
      `

	s, err := scanStock(r.getQuerier().QueryRowContext(ctx, query, ticker))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stock{}, apperrors.ErrStockNotFound
	}
	if err != nil {
		return model.Stock{}, fmt.Errorf("failed to query stock: %w", err)
	}

	return s, nil
}

// GetStockByCompany retrieves a stock by the company name shown on the
// exchange's market page.
func (r *StockRepository) GetStockByCompany(ctx context.Context, company string) (model.Stock, error) {
	query := `
          SELECT ticker, company, prices, updated_at
          FROM stock
          WHERE company = ?
      `

	s, err := scanStock(r.getQuerier().QueryRowContext(ctx, query, company))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stock{}, apperrors.ErrStockNotFound
	}
	if err != nil {
		return model.Stock{}, fmt.Errorf("failed to query stock: %w", err)
	}

	return s, nil
}

// GetPriceBlobs retrieves the raw price blobs of the given tickers.
// Tickers with no stored stock are absent from the returned map.
// If tickers is empty, returns an empty map without querying.
func (r *StockRepository) GetPriceBlobs(ctx context.Context, tickers []string) (map[string][]byte, error) {
	blobs := make(map[string][]byte, len(tickers))
	if len(tickers) == 0 {
		return blobs, nil
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `
          SELECT ticker, prices
          FROM stock
          WHERE ticker IN (` + placeholders(len(tickers)) + `)
      `

	args := make([]any, len(tickers))
	for i, t := range tickers {
		args[i] = t
	}

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var prices []byte
		if err := rows.Scan(&ticker, &prices); err != nil {
			return nil, fmt.Errorf("failed to scan stock prices: %w", err)
		}
		blobs[ticker] = prices
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock prices: %w", err)
	}

	return blobs, nil
}

// UpsertStock inserts a stock or, when the ticker already exists, replaces its
// company and price blob.
func (r *StockRepository) UpsertStock(ctx context.Context, s model.Stock) error {
	query := `
        INSERT INTO stock (ticker, company, prices, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (ticker) DO UPDATE SET
            company = excluded.company,
            prices = excluded.prices,
            updated_at = excluded.updated_at
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		s.Ticker,
		s.Company,
		string(s.Prices),
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}

	return nil
}

// UpdatePrices replaces the price blob of an existing stock.
func (r *StockRepository) UpdatePrices(ctx context.Context, ticker string, prices []byte) error {
	query := `UPDATE stock SET prices = ?, updated_at = ? WHERE ticker = ?`

	result, err := r.getQuerier().ExecContext(ctx, query,
		string(prices),
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		ticker,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock prices: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrStockNotFound
	}

	return nil
}

func scanStock(row rowScanner) (model.Stock, error) {
	var s model.Stock
	var prices, updatedAt string

	if err := row.Scan(&s.Ticker, &s.Company, &prices, &updatedAt); err != nil {
		return model.Stock{}, err
	}
	s.Prices = []byte(prices)

	t, err := ParseTime(updatedAt)
	if err != nil {
		return model.Stock{}, err
	}
	s.UpdatedAt = t

	return s, nil
}
