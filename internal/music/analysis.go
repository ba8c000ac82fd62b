package music

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beatbounce/beatbounce/internal/cache"
)

// Provider is the upstream source of track analyses.
type Provider interface {
	TrackAnalysis(ctx context.Context, trackID string) (*Analysis, error)
}

// AnalysisService fronts the provider with a redis read-through cache, so
// a track is analyzed once and replayed from cache for every later
// session. A degraded cache never fails a request, it just means a
// provider round trip.
type AnalysisService struct {
	provider Provider
	rdb      *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

func NewAnalysisService(provider Provider, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		provider: provider,
		rdb:      rdb,
		ttl:      ttl,
		logger:   logger,
	}
}

// TrackAnalysis returns the normalized analysis for a track, cache-first.
// A normalization error (unsorted beats, missing tempo) is reported to
// the caller but the analysis is still returned: the scheduler degrades
// to "no beats schedulable" on its own.
func (s *AnalysisService) TrackAnalysis(ctx context.Context, trackID string) (*Analysis, error) {
	key := fmt.Sprintf(cache.KeyTrackAnalysis, trackID)

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			a := &Analysis{}
			if err := json.Unmarshal(raw, a); err == nil {
				return a, nil
			}
			s.logger.Warn("corrupt cached analysis, refetching", "track", trackID)
		} else if err != redis.Nil {
			s.logger.Warn("analysis cache read failed", "track", trackID, "err", err)
		}
	}

	a, err := s.provider.TrackAnalysis(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if err := a.Normalize(); err != nil {
		s.logger.Warn("analysis failed validation", "track", trackID, "err", err)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(a); err == nil {
			if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("analysis cache write failed", "track", trackID, "err", err)
			}
		}
	}

	return a, nil
}
