package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/models"
)

const summaryKeyPrefix = "overlap:summary:"

// SummaryCache stores overlap summaries keyed by company. Entries expire
// on a TTL and are dropped eagerly whenever the alumni counts refresh.
type SummaryCache struct {
	client *Client
	logger ectologger.Logger
	ttl    time.Duration
}

// NewSummaryCache creates a summary cache. A nil client disables caching.
func NewSummaryCache(client *Client, logger ectologger.Logger, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Get returns a cached summary, or nil on miss. Cache errors behave like
// misses so the caller falls through to the database.
func (s *SummaryCache) Get(ctx context.Context, companyID uuid.UUID) *models.OverlapSummary {
	if s == nil || s.client == nil {
		return nil
	}

	raw, err := s.client.Get(ctx, summaryKey(companyID))
	if err != nil {
		if !IsNil(err) {
			s.logger.WithContext(ctx).WithError(err).Warn("Summary cache read failed")
		}
		return nil
	}

	var summary models.OverlapSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Summary cache entry is corrupt")
		return nil
	}

	return &summary
}

// Put stores a summary. Partial summaries are never cached so a transient
// failure does not serve stale partial results for the full TTL.
func (s *SummaryCache) Put(ctx context.Context, summary *models.OverlapSummary) {
	if s == nil || s.client == nil || summary == nil || summary.Partial {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to marshal summary for cache")
		return
	}

	if err := s.client.Set(ctx, summaryKey(summary.CompanyID), data, s.ttl); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Summary cache write failed")
	}
}

// Invalidate drops every cached summary. Called after an alumni counts
// refresh since any company's numbers may have moved.
func (s *SummaryCache) Invalidate(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	if err := s.client.DelByPattern(ctx, summaryKeyPrefix+"*"); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Summary cache invalidation failed")
	}
}

func summaryKey(companyID uuid.UUID) string {
	return fmt.Sprintf("%s%s", summaryKeyPrefix, companyID)
}
