package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/beatbounce/beatbounce/internal/auth"
	"github.com/beatbounce/beatbounce/internal/config"
	"github.com/beatbounce/beatbounce/internal/leaderboard"
	"github.com/beatbounce/beatbounce/internal/music"
	"github.com/beatbounce/beatbounce/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	cfg         *config.Config
	db          *pgxpool.Pool
	rdb         *redis.Client
	hub         *Hub
	logger      *slog.Logger
	mux         *http.ServeMux
	players     *store.PlayerStore
	scores      *store.ScoreStore
	library     *music.Client
	analysis    *music.AnalysisService
	leaderboard *leaderboard.Service
	metrics     *Metrics
}

func New(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, hub *Hub, library *music.Client, analysis *music.AnalysisService, metrics *Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		rdb:         rdb,
		hub:         hub,
		logger:      logger,
		mux:         http.NewServeMux(),
		players:     store.NewPlayerStore(db),
		scores:      store.NewScoreStore(db),
		library:     library,
		analysis:    analysis,
		leaderboard: leaderboard.NewService(rdb),
		metrics:     metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.metrics.ServeHTTP)
	s.mux.Handle("GET /ws", s.hub)

	// Auth
	s.mux.HandleFunc("POST /api/auth/guest", s.handleGuestAuth)

	// Music library
	authed := RequireAuth([]byte(s.cfg.JWTSecret))
	s.mux.HandleFunc("GET /api/library", authed(s.handleLibrary))
	s.mux.HandleFunc("GET /api/tracks/{id}/analysis", authed(s.handleTrackAnalysis))

	// Player endpoints
	s.mux.HandleFunc("GET /api/player/{id}", s.handleGetPlayer)
	s.mux.HandleFunc("GET /api/player/{id}/scores", s.handlePlayerScores)

	// Leaderboard endpoints
	s.mux.HandleFunc("GET /api/leaderboard/track/{id}", s.handleTrackLeaderboard)
	s.mux.HandleFunc("GET /api/leaderboard/global", s.handleGlobalLeaderboard)
	s.mux.HandleFunc("GET /api/leaderboard/rank/{playerID}", s.handlePlayerRank)

	// Static files for the browser client
	s.mux.Handle("GET /", http.FileServer(http.Dir("web")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}

	if err := s.db.Ping(ctx); err != nil {
		status["db"] = "down"
		status["status"] = "degraded"
	} else {
		status["db"] = "ok"
	}

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		status["redis"] = "down"
		status["status"] = "degraded"
	} else {
		status["redis"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if status["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("write json", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

func (s *Server) handleGuestAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		req.Username = "guest"
	}
	player, err := s.players.Create(r.Context(), req.Username)
	if err != nil {
		s.logger.Error("create player", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), player.ID, player.Username, s.cfg.TokenTTL)
	if err != nil {
		s.logger.Error("issue token", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"player": player,
		"token":  token,
	})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	tracks, err := s.library.SavedTracks(r.Context(), limit)
	if err != nil {
		s.logger.Error("fetch library", "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, tracks)
}

func (s *Server) handleTrackAnalysis(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	if trackID == "" {
		http.Error(w, "bad track id", http.StatusBadRequest)
		return
	}
	analysis, err := s.analysis.TrackAnalysis(r.Context(), trackID)
	if err != nil {
		s.logger.Error("fetch analysis", "track_id", trackID, "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, analysis)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	player, err := s.players.Get(r.Context(), pid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if player == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	games, err := s.scores.CountByPlayer(r.Context(), pid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"player":       player,
		"games_played": games,
	})
}

func (s *Server) handlePlayerScores(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	limit := parseCount(r, 20, 100)
	var scores []store.Score
	if r.URL.Query().Get("sort") == "best" {
		scores, err = s.scores.PlayerBest(r.Context(), pid, int(limit))
	} else {
		scores, err = s.scores.PlayerHistory(r.Context(), pid, int(limit))
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, scores)
}

func (s *Server) handleTrackLeaderboard(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	count := parseCount(r, 50, 100)
	entries, err := s.leaderboard.TopTrack(r.Context(), trackID, count)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	count := parseCount(r, 50, 100)
	entries, err := s.leaderboard.TopGlobal(r.Context(), count)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handlePlayerRank(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(r.PathValue("playerID"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	entry, err := s.leaderboard.PlayerRank(r.Context(), pid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "not ranked", http.StatusNotFound)
		return
	}
	writeJSON(w, entry)
}

func parseCount(r *http.Request, fallback, max int64) int64 {
	count := fallback
	if c := r.URL.Query().Get("count"); c != "" {
		if n, err := strconv.ParseInt(c, 10, 64); err == nil && n > 0 && n <= max {
			count = n
		}
	}
	return count
}

func (s *Server) Handler() http.Handler {
	limiter := NewRateLimiter(30, 60)
	return ChainMiddleware(s.mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(limiter, s.logger),
	)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
