// Package server is the thin HTTP/WebSocket surface over the core. It
// serializes what the engines return and holds no business logic.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/songzhibin97/coinwatch/internal/alerts"
	"github.com/songzhibin97/coinwatch/internal/data/market"
	"github.com/songzhibin97/coinwatch/internal/models"
	"github.com/songzhibin97/coinwatch/internal/portfolio"
	"github.com/songzhibin97/coinwatch/internal/scheduler"
	"github.com/songzhibin97/coinwatch/internal/status"
)

// Server bundles the wired core services behind a chi router.
type Server struct {
	market    *market.Client
	alerts    *alerts.Engine
	portfolio *portfolio.Ledger
	scheduler *scheduler.Scheduler
	status    *status.Signal
	hub       *Hub
	logger    *slog.Logger

	currency      string
	topCoinsLimit int
	newsLimit     int
}

// Config wires a Server.
type Config struct {
	Market        *market.Client
	Alerts        *alerts.Engine
	Portfolio     *portfolio.Ledger
	Scheduler     *scheduler.Scheduler
	Status        *status.Signal
	Hub           *Hub
	Logger        *slog.Logger
	Currency      string
	TopCoinsLimit int
	NewsLimit     int
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		market:        cfg.Market,
		alerts:        cfg.Alerts,
		portfolio:     cfg.Portfolio,
		scheduler:     cfg.Scheduler,
		status:        cfg.Status,
		hub:           cfg.Hub,
		logger:        logger,
		currency:      cfg.Currency,
		topCoinsLimit: cfg.TopCoinsLimit,
		newsLimit:     cfg.NewsLimit,
	}
}

// Router builds the HTTP API.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/status", s.handleStatus)
		r.Get("/coins", s.handleCoins)
		r.Get("/coins/{id}", s.handleCoinDetail)
		r.Get("/coins/{id}/chart", s.handleChart)
		r.Get("/coins/{id}/ohlc", s.handleOHLC)
		r.Get("/trending", s.handleTrending)
		r.Get("/search", s.handleSearch)
		r.Get("/news", s.handleNews)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts", s.handleAddAlert)
		r.Delete("/alerts/triggered", s.handleClearTriggered)
		r.Delete("/alerts/{id}", s.handleRemoveAlert)
		r.Post("/alerts/{id}/toggle", s.handleToggleAlert)

		r.Get("/portfolio", s.handlePortfolio)
		r.Post("/portfolio", s.handleAddCoin)
		r.Put("/portfolio/{coinId}", s.handleSetAmount)
		r.Delete("/portfolio/{coinId}", s.handleRemoveCoin)

		r.Post("/scheduler/pause", s.handlePause)
		r.Post("/scheduler/resume", s.handleResume)
	})

	r.Get("/ws/ticker", s.hub.handleWS)
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	global, err := s.market.GlobalData(ctx)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	// Fear/greed is decoration on the overview; missing data degrades
	// the card, not the response.
	var fearGreed *models.FearGreed
	if fg, err := s.market.FearGreed(ctx); err == nil {
		fearGreed = fg
	} else {
		s.logger.Warn("fear/greed unavailable", "error", err)
	}

	resp := map[string]any{
		"global":      global,
		"data_source": s.status.Get(),
	}
	if fearGreed != nil {
		resp["fear_greed"] = fearGreed
		resp["fear_greed_class"] = market.FearGreedClass(fearGreed.Value)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data_source": s.status.Get(),
		"paused":      s.scheduler.Paused(),
	})
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.topCoinsLimit)
	coins, err := s.market.TopCoins(r.Context(), limit, s.currency)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, coins)
}

func (s *Server) handleCoinDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.market.CoinDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	series, err := s.market.MarketChart(r.Context(), chi.URLParam(r, "id"), days, s.currency)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleOHLC(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	bars, err := s.market.OHLC(r.Context(), chi.URLParam(r, "id"), days, s.currency)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bars)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	coins, err := s.market.Trending(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, coins)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusOK, []models.SearchResult{})
		return
	}
	results, err := s.market.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.newsLimit)
	articles, err := s.market.News(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.alerts.List())
}

func (s *Server) handleAddAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoinID      string                `json:"coin_id"`
		TargetPrice float64               `json:"target_price"`
		Condition   models.AlertCondition `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	alert, err := s.alerts.Add(r.Context(), req.CoinID, req.TargetPrice, req.Condition)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleRemoveAlert(w http.ResponseWriter, r *http.Request) {
	if !s.alerts.Remove(r.Context(), chi.URLParam(r, "id")) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.alerts.Toggle(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleClearTriggered(w http.ResponseWriter, r *http.Request) {
	removed := s.alerts.ClearTriggered(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	valuation, err := s.portfolio.Valuate(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, valuation)
}

func (s *Server) handleAddCoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoinID        string  `json:"coin_id"`
		Amount        float64 `json:"amount"`
		PurchasePrice float64 `json:"purchase_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	holding, err := s.portfolio.AddCoin(r.Context(), req.CoinID, req.Amount, req.PurchasePrice)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, holding)
}

func (s *Server) handleSetAmount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.portfolio.SetAmount(r.Context(), chi.URLParam(r, "coinId"), req.Amount) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveCoin(w http.ResponseWriter, r *http.Request) {
	if !s.portfolio.RemoveCoin(r.Context(), chi.URLParam(r, "coinId")) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Pause()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Resume()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
