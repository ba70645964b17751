package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
)

// PortfolioService handles portfolio and holding bookkeeping. Every operation
// is scoped to the calling user: a portfolio or holding of another user is
// reported as not found.
type PortfolioService struct {
	portfolioRepo *repository.PortfolioRepository
	holdingRepo   *repository.HoldingRepository
}

// NewPortfolioService creates a new PortfolioService with the provided repository dependencies.
func NewPortfolioService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
) *PortfolioService {
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
	}
}

// GetPortfolios returns the portfolios of userID, oldest first.
func (s *PortfolioService) GetPortfolios(ctx context.Context, userID string) ([]model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolios(ctx, userID)
}

// GetPortfolio returns one portfolio of userID.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID, portfolioID string) (model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolio(ctx, userID, portfolioID)
}

// CreatePortfolio stores a new portfolio for userID. The currency code is
// upper-cased.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, userID string, req request.CreatePortfolioRequest) (*model.Portfolio, error) {
	portfolio := &model.Portfolio{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := s.portfolioRepo.InsertPortfolio(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return portfolio, nil
}

// DeletePortfolio removes a portfolio of userID together with its holdings.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, userID, portfolioID string) error {
	return s.portfolioRepo.DeletePortfolio(ctx, userID, portfolioID)
}

// GetHoldings returns the holdings of a portfolio of userID in entry order.
func (s *PortfolioService) GetHoldings(ctx context.Context, userID, portfolioID string) ([]model.Holding, error) {
	if _, err := s.portfolioRepo.GetPortfolio(ctx, userID, portfolioID); err != nil {
		return nil, err
	}
	return s.holdingRepo.GetHoldings(ctx, portfolioID)
}

// CreateHolding records a buy against a portfolio of userID. The request must
// already be validated; the ticker is upper-cased and the entry date kept as
// a calendar day.
func (s *PortfolioService) CreateHolding(ctx context.Context, userID, portfolioID string, req request.CreateHoldingRequest) (*model.Holding, error) {
	if _, err := s.portfolioRepo.GetPortfolio(ctx, userID, portfolioID); err != nil {
		return nil, err
	}

	entryDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.EntryDate))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDate, err)
	}

	holding := &model.Holding{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Ticker:      strings.ToUpper(strings.TrimSpace(req.Ticker)),
		EntryDate:   entryDate,
		EntryPrice:  req.EntryPrice,
		Quantity:    req.Quantity,
	}

	if err := s.holdingRepo.InsertHolding(ctx, holding); err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}
	return holding, nil
}

// DeleteHolding removes one holding owned by userID.
func (s *PortfolioService) DeleteHolding(ctx context.Context, userID, holdingID string) error {
	_, owner, err := s.holdingRepo.GetHolding(ctx, holdingID)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperrors.ErrHoldingNotFound
	}
	return s.holdingRepo.DeleteHolding(ctx, holdingID)
}
