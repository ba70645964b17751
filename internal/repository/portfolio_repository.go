package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio table.
// Every read is scoped to the owning user; a portfolio of another user is
// reported as not found.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// GetPortfolios retrieves the portfolios of userID ordered by creation time.
// Returns an empty slice if the user has none.
func (r *PortfolioRepository) GetPortfolios(ctx context.Context, userID string) ([]model.Portfolio, error) {
	query := `
          SELECT id, user_id, name, currency, created_at
          FROM portfolio
          WHERE user_id = ?
          ORDER BY created_at, name
      `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}

	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}

// GetPortfolio retrieves one portfolio of userID.
// Returns apperrors.ErrPortfolioNotFound when it does not exist or belongs to another user.
func (r *PortfolioRepository) GetPortfolio(ctx context.Context, userID, portfolioID string) (model.Portfolio, error) {
	query := `
          SELECT id, user_id, name, currency, created_at
          FROM portfolio
          WHERE id = ? AND user_id = ?
      `

	p, err := scanPortfolio(r.db.QueryRowContext(ctx, query, portfolioID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to query portfolio: %w", err)
	}

	return p, nil
}

func (r *PortfolioRepository) InsertPortfolio(ctx context.Context, p *model.Portfolio) error {
	query := `
        INSERT INTO portfolio (id, user_id, name, currency, created_at)
        VALUES (?, ?, ?, ?, ?)
    `

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Currency,
		p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	return nil
}

// DeletePortfolio removes a portfolio of userID. Its holdings are removed by
// the ON DELETE CASCADE of the holding table.
func (r *PortfolioRepository) DeletePortfolio(ctx context.Context, userID, portfolioID string) error {
	query := `DELETE FROM portfolio WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, portfolioID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrPortfolioNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (model.Portfolio, error) {
	var p model.Portfolio
	var createdAt string

	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Currency, &createdAt); err != nil {
		return model.Portfolio{}, err
	}

	t, err := ParseTime(createdAt)
	if err != nil {
		return model.Portfolio{}, err
	}
	p.CreatedAt = t

	return p, nil
}
