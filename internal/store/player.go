package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Player struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

// Create inserts a new player and returns the generated row.
func (s *PlayerStore) Create(ctx context.Context, username string) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO players (username) VALUES ($1)
		RETURNING id, username, created_at
	`, username).Scan(&p.ID, &p.Username, &p.CreatedAt)
	return p, err
}

// Upsert keeps an existing player's row current on repeat sign-in.
func (s *PlayerStore) Upsert(ctx context.Context, id int64, username string) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO players (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, created_at
	`, id, username).Scan(&p.ID, &p.Username, &p.CreatedAt)
	return p, err
}

func (s *PlayerStore) Get(ctx context.Context, id int64) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		SELECT id, username, created_at FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}
