// Package analysis produces AI-written portfolio reviews.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrUnavailable is returned when no language model is configured.
var ErrUnavailable = errors.New("AI analysis is not configured")

// Service implements interfaces.AnalysisService.
type Service struct {
	portfolios interfaces.PortfolioService
	gemini     interfaces.GeminiClient
	store      interfaces.UserDataStore
	ttl        time.Duration
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates an analysis service. gemini may be nil, in which case
// Analyze serves cached reviews only.
func NewService(portfolios interfaces.PortfolioService, gemini interfaces.GeminiClient, store interfaces.UserDataStore, ttl time.Duration, logger *common.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		gemini:     gemini,
		store:      store,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze returns a review of the named portfolio. A review younger than the
// cache TTL is reused unless refresh is set.
func (s *Service) Analyze(ctx context.Context, userID, name string, refresh bool) (*models.PortfolioAnalysis, error) {
	name = strings.TrimSpace(name)

	if !refresh {
		if cached := s.loadCache(ctx, userID, name); cached != nil {
			return cached, nil
		}
	}

	if s.gemini == nil {
		return nil, ErrUnavailable
	}

	snapshot, err := s.portfolios.Snapshot(ctx, userID, name, interfaces.SnapshotOptions{IncludeTWR: true})
	if err != nil {
		return nil, err
	}
	if len(snapshot.Positions) == 0 {
		return nil, fmt.Errorf("portfolio %q has no holdings to analyze: %w", name, models.ErrNotFound)
	}

	text, err := s.gemini.GenerateContent(ctx, BuildPrompt(snapshot))
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis: %w", err)
	}

	result := &models.PortfolioAnalysis{
		Portfolio:   name,
		Model:       s.gemini.Model(),
		Analysis:    strings.TrimSpace(text),
		GeneratedAt: s.now().UTC(),
	}

	s.saveCache(ctx, userID, result)
	s.logger.Info().Str("user_id", userID).Str("portfolio", name).Str("model", result.Model).Msg("Portfolio analysis generated")
	return result, nil
}

func (s *Service) loadCache(ctx context.Context, userID, name string) *models.PortfolioAnalysis {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Get(ctx, userID, models.SubjectAnalysis, name)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("portfolio", name).Msg("Analysis cache read failed")
		}
		return nil
	}

	var cached models.PortfolioAnalysis
	if err := json.Unmarshal([]byte(rec.Value), &cached); err != nil {
		return nil
	}
	if s.now().Sub(cached.GeneratedAt) >= s.ttl {
		return nil
	}
	cached.Cached = true
	return &cached
}

func (s *Service) saveCache(ctx context.Context, userID string, result *models.PortfolioAnalysis) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	rec := &models.UserRecord{
		UserID:   userID,
		Subject:  models.SubjectAnalysis,
		Key:      result.Portfolio,
		Value:    string(data),
		DateTime: result.GeneratedAt,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("portfolio", result.Portfolio).Msg("Analysis cache write failed")
	}
}

var _ interfaces.AnalysisService = (*Service)(nil)
