// Package portfolio provides portfolio management services
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const maxNameLength = 64

// Service implements PortfolioService
type Service struct {
	store             interfaces.UserDataStore
	quotes            interfaces.QuoteService
	fx                interfaces.FXService
	twr               interfaces.TWRService
	publisher         interfaces.SnapshotPublisher
	defaultCurrency   string
	comparisonTickers []string
	logger            *common.Logger
	now               func() time.Time
}

// NewService creates a new portfolio service. twr and publisher may be nil.
func NewService(
	store interfaces.UserDataStore,
	quotes interfaces.QuoteService,
	fx interfaces.FXService,
	twr interfaces.TWRService,
	publisher interfaces.SnapshotPublisher,
	config *common.Config,
	logger *common.Logger,
) *Service {
	return &Service{
		store:             store,
		quotes:            quotes,
		fx:                fx,
		twr:               twr,
		publisher:         publisher,
		defaultCurrency:   config.DisplayCurrency,
		comparisonTickers: config.Analytics.ComparisonTickers,
		logger:            logger,
		now:               time.Now,
	}
}

// ListPortfolios returns the user's portfolios sorted by name.
func (s *Service) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	records, err := s.store.List(ctx, userID, models.SubjectPortfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	portfolios := make([]*models.Portfolio, 0, len(records))
	for _, rec := range records {
		var p models.Portfolio
		if err := json.Unmarshal([]byte(rec.Value), &p); err != nil {
			s.logger.Warn().Err(err).Str("key", rec.Key).Msg("Skipping unreadable portfolio record")
			continue
		}
		portfolios = append(portfolios, &p)
	}
	sort.Slice(portfolios, func(i, j int) bool { return portfolios[i].Name < portfolios[j].Name })
	return portfolios, nil
}

func (s *Service) GetPortfolio(ctx context.Context, userID, name string) (*models.Portfolio, error) {
	p, _, err := s.load(ctx, userID, name)
	return p, err
}

// CreatePortfolio creates an empty portfolio. Names are trimmed and must be unique per user.
func (s *Service) CreatePortfolio(ctx context.Context, userID, name string) (*models.Portfolio, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.load(ctx, userID, name); err == nil {
		return nil, fmt.Errorf("portfolio %q: %w", name, models.ErrAlreadyExists)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Portfolio{Name: name, Lots: []models.Lot{}, CreatedAt: now, UpdatedAt: now}
	if err := s.save(ctx, userID, p, 0); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("portfolio", name).Msg("Portfolio created")
	return p, nil
}

func (s *Service) DeletePortfolio(ctx context.Context, userID, name string) error {
	if _, _, err := s.load(ctx, userID, name); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, models.SubjectPortfolio, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("portfolio", name).Msg("Portfolio deleted")
	return nil
}

// AddLot validates and appends a lot, assigning it a new id. The portfolio
// is created on first use.
func (s *Service) AddLot(ctx context.Context, userID, name string, lot models.Lot) (*models.Lot, error) {
	lot, err := validateLot(lot)
	if err != nil {
		return nil, err
	}

	p, version, err := s.load(ctx, userID, name)
	if errors.Is(err, models.ErrNotFound) {
		if p, err = s.CreatePortfolio(ctx, userID, name); err != nil {
			return nil, err
		}
		version = 1
	} else if err != nil {
		return nil, err
	}

	lot.ID = uuid.New().String()
	p.Lots = append(p.Lots, lot)
	if err := s.save(ctx, userID, p, version); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("portfolio", p.Name).Str("ticker", lot.Ticker).Str("lot_id", lot.ID).Msg("Lot added")
	return &lot, nil
}

// UpdateLot replaces the fields of an existing lot, keeping its id.
func (s *Service) UpdateLot(ctx context.Context, userID, name, lotID string, lot models.Lot) (*models.Lot, error) {
	lot, err := validateLot(lot)
	if err != nil {
		return nil, err
	}

	p, version, err := s.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	idx := p.FindLot(lotID)
	if idx < 0 {
		return nil, fmt.Errorf("lot %s: %w", lotID, models.ErrNotFound)
	}

	lot.ID = lotID
	p.Lots[idx] = lot
	if err := s.save(ctx, userID, p, version); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("portfolio", p.Name).Str("lot_id", lotID).Msg("Lot updated")
	return &lot, nil
}

func (s *Service) DeleteLot(ctx context.Context, userID, name, lotID string) error {
	p, version, err := s.load(ctx, userID, name)
	if err != nil {
		return err
	}
	return s.removeLot(ctx, userID, p, version, lotID)
}

// ClearLots removes every lot but keeps the portfolio.
func (s *Service) ClearLots(ctx context.Context, userID, name string) error {
	p, version, err := s.load(ctx, userID, name)
	if err != nil {
		return err
	}
	p.Lots = []models.Lot{}
	if err := s.save(ctx, userID, p, version); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("portfolio", p.Name).Msg("Portfolio cleared")
	return nil
}

// DeletePositionLot removes one lot of a ticker's position, resolving the
// lot through the position's own lot ids.
func (s *Service) DeletePositionLot(ctx context.Context, userID, name, ticker, lotID string) error {
	p, version, err := s.load(ctx, userID, name)
	if err != nil {
		return err
	}

	valued := make([]models.ValuedLot, 0, len(p.Lots))
	for _, lot := range p.Lots {
		valued = append(valued, analytics.ValueLot(lot, models.DefaultQuote(), 1))
	}

	position, ok := analytics.FindPosition(analytics.AggregateByTicker(valued), ticker)
	if !ok {
		return fmt.Errorf("position %s: %w", ticker, models.ErrNotFound)
	}

	id, err := analytics.ResolveLotID(position, lotID)
	if err != nil {
		return err
	}
	return s.removeLot(ctx, userID, p, version, id)
}

func (s *Service) removeLot(ctx context.Context, userID string, p *models.Portfolio, version int, lotID string) error {
	idx := p.FindLot(lotID)
	if idx < 0 {
		return fmt.Errorf("lot %s: %w", lotID, models.ErrNotFound)
	}
	p.Lots = append(p.Lots[:idx], p.Lots[idx+1:]...)
	if err := s.save(ctx, userID, p, version); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("portfolio", p.Name).Str("lot_id", lotID).Msg("Lot deleted")
	return nil
}

// load reads a portfolio and its record version.
func (s *Service) load(ctx context.Context, userID, name string) (*models.Portfolio, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, 0, fmt.Errorf("portfolio name is required: %w", models.ErrNotFound)
	}

	rec, err := s.store.Get(ctx, userID, models.SubjectPortfolio, name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, 0, fmt.Errorf("portfolio %q: %w", name, models.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("failed to load portfolio: %w", err)
	}

	var p models.Portfolio
	if err := json.Unmarshal([]byte(rec.Value), &p); err != nil {
		return nil, 0, fmt.Errorf("failed to decode portfolio %q: %w", name, err)
	}
	if p.Lots == nil {
		p.Lots = []models.Lot{}
	}
	return &p, rec.Version, nil
}

func (s *Service) save(ctx context.Context, userID string, p *models.Portfolio, version int) error {
	now := s.now().UTC()
	p.UpdatedAt = now

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}

	rec := &models.UserRecord{
		UserID:   userID,
		Subject:  models.SubjectPortfolio,
		Key:      p.Name,
		Value:    string(data),
		Version:  version + 1,
		DateTime: now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("portfolio name is required: %w", models.ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("portfolio name longer than %d characters: %w", maxNameLength, models.ErrInvalidName)
	}
	return name, nil
}

// validateLot normalizes a lot's ticker and category and rejects lots the
// engine could not value.
func validateLot(lot models.Lot) (models.Lot, error) {
	lot.Ticker = analytics.TickerKey(lot.Ticker)
	if lot.Ticker == "" {
		return lot, fmt.Errorf("ticker is required: %w", models.ErrInvalidLot)
	}
	if lot.Shares.Float() <= 0 {
		return lot, fmt.Errorf("shares must be positive: %w", models.ErrInvalidLot)
	}
	if lot.TotalCost.Float() < 0 {
		return lot, fmt.Errorf("total cost cannot be negative: %w", models.ErrInvalidLot)
	}
	lot.PurchaseDate = strings.TrimSpace(lot.PurchaseDate)
	if lot.PurchaseDate != "" {
		if _, ok := lot.PurchaseTime(); !ok {
			return lot, fmt.Errorf("purchase date %q is not YYYY-MM-DD: %w", lot.PurchaseDate, models.ErrInvalidLot)
		}
	}
	lot.Category = analytics.NormalizeCategory(lot.Category)
	return lot, nil
}

var _ interfaces.PortfolioService = (*Service)(nil)
