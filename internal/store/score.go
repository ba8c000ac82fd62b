package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beatbounce/beatbounce/internal/session"
)

// Score is one persisted end-of-game summary row.
type Score struct {
	ID          int64
	PlayerID    int64
	TrackID     string
	Difficulty  string
	Preset      string
	Score       int
	PerfectHits int
	GreatHits   int
	GoodHits    int
	OkHits      int
	MaxCombo    int
	Accuracy    int
	DurationMs  int64
	CreatedAt   time.Time
}

type ScoreStore struct {
	db *pgxpool.Pool
}

func NewScoreStore(db *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{db: db}
}

// Record persists a finished session's summary.
func (s *ScoreStore) Record(ctx context.Context, sum session.Summary) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scores (player_id, track_id, difficulty, preset, score,
		                    perfect_hits, great_hits, good_hits, ok_hits,
		                    max_combo, accuracy, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, sum.PlayerID, sum.TrackID, sum.Difficulty, sum.Preset, sum.Score,
		sum.PerfectHits, sum.GreatHits, sum.GoodHits, sum.OkHits,
		sum.MaxCombo, sum.Accuracy, sum.DurationMs)
	return err
}

// PlayerHistory returns a player's most recent scores, newest first.
func (s *ScoreStore) PlayerHistory(ctx context.Context, playerID int64, limit int) ([]Score, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, track_id, difficulty, preset, score,
		       perfect_hits, great_hits, good_hits, ok_hits,
		       max_combo, accuracy, duration_ms, created_at
		FROM scores WHERE player_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScores(rows)
}

// PlayerBest returns a player's highest scores across all tracks.
func (s *ScoreStore) PlayerBest(ctx context.Context, playerID int64, limit int) ([]Score, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, track_id, difficulty, preset, score,
		       perfect_hits, great_hits, good_hits, ok_hits,
		       max_combo, accuracy, duration_ms, created_at
		FROM scores WHERE player_id = $1
		ORDER BY score DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScores(rows)
}

// TrackTop returns the highest scores recorded for a track.
func (s *ScoreStore) TrackTop(ctx context.Context, trackID string, limit int) ([]Score, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, track_id, difficulty, preset, score,
		       perfect_hits, great_hits, good_hits, ok_hits,
		       max_combo, accuracy, duration_ms, created_at
		FROM scores WHERE track_id = $1
		ORDER BY score DESC LIMIT $2
	`, trackID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScores(rows)
}

// CountByPlayer is the player's total games played.
func (s *ScoreStore) CountByPlayer(ctx context.Context, playerID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM scores WHERE player_id = $1
	`, playerID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanScores(rows rowScanner) ([]Score, error) {
	var out []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(
			&sc.ID, &sc.PlayerID, &sc.TrackID, &sc.Difficulty, &sc.Preset, &sc.Score,
			&sc.PerfectHits, &sc.GreatHits, &sc.GoodHits, &sc.OkHits,
			&sc.MaxCombo, &sc.Accuracy, &sc.DurationMs, &sc.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
