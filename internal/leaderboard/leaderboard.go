package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/beatbounce/beatbounce/internal/cache"
)

type Entry struct {
	PlayerID int64   `json:"player_id"`
	Score    float64 `json:"score"`
	Rank     int64   `json:"rank"`
}

type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

// Submit records a finished session's score on the track board and the
// global board. GT semantics keep each player's personal best: a lower
// later score never overwrites a higher earlier one.
func (s *Service) Submit(ctx context.Context, trackID string, playerID int64, score int) error {
	member := strconv.FormatInt(playerID, 10)
	z := redis.Z{Score: float64(score), Member: member}

	pipe := s.rdb.Pipeline()
	pipe.ZAddGT(ctx, fmt.Sprintf(cache.KeyTrackBoard, trackID), z)
	pipe.ZAddGT(ctx, cache.KeyGlobalBoard, z)
	_, err := pipe.Exec(ctx)
	return err
}

// TopTrack returns the top N players for one track.
func (s *Service) TopTrack(ctx context.Context, trackID string, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, fmt.Sprintf(cache.KeyTrackBoard, trackID), count)
}

// TopGlobal returns the top N players across all tracks.
func (s *Service) TopGlobal(ctx context.Context, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, cache.KeyGlobalBoard, count)
}

// PlayerRank returns a player's global rank and best score, or nil when
// the player has no recorded score.
func (s *Service) PlayerRank(ctx context.Context, playerID int64) (*Entry, error) {
	member := strconv.FormatInt(playerID, 10)

	rank, err := s.rdb.ZRevRank(ctx, cache.KeyGlobalBoard, member).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := s.rdb.ZScore(ctx, cache.KeyGlobalBoard, member).Result()
	if err != nil {
		return nil, err
	}

	return &Entry{PlayerID: playerID, Score: score, Rank: rank + 1}, nil
}

// ResetTrack removes a track's board (used when a track's analysis is
// invalidated and old scores are no longer comparable).
func (s *Service) ResetTrack(ctx context.Context, trackID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(cache.KeyTrackBoard, trackID)).Err()
}

func (s *Service) topFromSortedSet(ctx context.Context, key string, count int64) ([]Entry, error) {
	results, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		id, _ := strconv.ParseInt(member, 10, 64)
		entries = append(entries, Entry{
			PlayerID: id,
			Score:    z.Score,
			Rank:     int64(i + 1),
		})
	}
	return entries, nil
}
