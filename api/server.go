// Package api provides the HTTP REST API server for energyprice.
//
// It exposes the aggregated commodity prices, projection calculation,
// health/status metadata, and the energy news feed. The price endpoints
// follow an "always answer" contract: upstream trouble degrades to
// fallback-filled 200 responses, never a 5xx.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/energyprice/internal/aggregator"
	"github.com/seenimoa/energyprice/internal/commodity"
	"github.com/seenimoa/energyprice/internal/config"
	"github.com/seenimoa/energyprice/internal/news"
	"github.com/seenimoa/energyprice/internal/projection"
	"github.com/seenimoa/energyprice/internal/source"
)

// Version is stamped via -ldflags at build time.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	agg       *aggregator.Aggregator
	feed      *news.Feed
	history   *projection.History
	logger    *logrus.Logger
	startedAt time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, logger *logrus.Logger, agg *aggregator.Aggregator, feed *news.Feed) *Server {
	srv := &Server{
		cfg:       cfg,
		agg:       agg,
		feed:      feed,
		history:   projection.NewHistory(),
		logger:    logger,
		startedAt: time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Fatal("HTTP server error")
		}
	}()
	s.logger.WithField("addr", addr).Info("HTTP server listening")

	<-done
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/commodities", s.handleCommodities)
		r.Get("/prices", s.handleAllPrices)
		r.Get("/prices/{commodity}", s.handlePrices)
		r.Post("/projection", s.handleProjection)
		r.Get("/projection/history", s.handleProjectionHistory)
		r.Get("/news", s.handleNews)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// Units carries the static unit labels for both slots of a quote.
type Units struct {
	US    string `json:"us"`
	World string `json:"world"`
}

// PriceResponse is the body of GET /api/prices/{commodity}. The Error field
// is set when resolution hit internal trouble but the body is still usable
// (fallback-filled); upstream failures are never surfaced as non-2xx.
type PriceResponse struct {
	Source      string            `json:"source"` // commodity key
	Timestamp   time.Time         `json:"timestamp"`
	US          source.PricePoint `json:"us"`
	World       source.PricePoint `json:"world"`
	Units       Units             `json:"units"`
	DataSources []string          `json:"dataSources"`
	IsFallback  bool              `json:"isFallback"`
	Error       string            `json:"error,omitempty"`
}

// ProjectionRequest is the body for POST /api/projection. CurrentPrice is
// optional: when zero, the server resolves the live price for the chosen
// region.
type ProjectionRequest struct {
	Commodity      string  `json:"commodity"`
	Region         string  `json:"region,omitempty"` // "us" (default) or "world"
	UsageChangePct float64 `json:"usageChangePct"`
	CurrentPrice   float64 `json:"currentPrice,omitempty"`
}

type errorResponse struct {
	Error     string   `json:"error"`
	ValidKeys []string `json:"validKeys,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"apiKeys": map[string]bool{
			"eia":  s.cfg.Providers.EIAAPIKey != "",
			"fred": s.cfg.Providers.FREDAPIKey != "",
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	providers := []map[string]any{
		{"name": commodity.SourceEIA, "requiresKey": true, "configured": s.cfg.Providers.EIAAPIKey != ""},
		{"name": commodity.SourceFRED, "requiresKey": true, "configured": s.cfg.Providers.FREDAPIKey != ""},
		{"name": commodity.SourceEmber, "requiresKey": false, "configured": true},
		{"name": commodity.SourceYFinance, "requiresKey": false, "configured": true},
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform":    "energyprice",
		"version":     Version,
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"providers":   providers,
		"commodities": commodity.Keys(),
		"cacheTtlSec": s.cfg.Cache.TTLSeconds,
	})
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, commodity.All())
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	key := commodity.Key(chi.URLParam(r, "commodity"))

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	quote, err := s.agg.Resolve(ctx, key)
	if err != nil {
		var unknown *commodity.UnknownKeyError
		if errors.As(err, &unknown) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:     unknown.Error(),
				ValidKeys: keyStrings(),
			})
			return
		}
		// Anything else still answers 200 with fallback data.
		s.writeFallbackPrice(w, key, err)
		return
	}

	writeJSON(w, http.StatusOK, priceResponse(quote))
}

func (s *Server) handleAllPrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	quotes, err := s.agg.ResolveAll(ctx)
	if err != nil {
		// ResolveAll fails only on a broken policy table; answer with
		// whatever the fallback tables hold rather than erroring.
		s.logger.WithError(err).Error("resolve all commodities")
		out := make([]PriceResponse, 0, len(commodity.Keys()))
		for _, key := range commodity.Keys() {
			out = append(out, fallbackPrice(key, err))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	out := make([]PriceResponse, len(quotes))
	for i, q := range quotes {
		out[i] = priceResponse(q)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	key := commodity.Key(req.Commodity)
	cfg, err := commodity.Get(key)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), ValidKeys: keyStrings()})
		return
	}

	region := req.Region
	if region == "" {
		region = "us"
	}
	if region != "us" && region != "world" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `region must be "us" or "world"`})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	quote, err := s.agg.Resolve(ctx, key)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	current := req.CurrentPrice
	unit := quote.UnitsUS
	if region == "world" {
		unit = quote.UnitsWorld
	}
	if current <= 0 {
		if region == "world" {
			current = quote.World.Value
		} else {
			current = quote.US.Value
		}
	}

	changePct, newPrice := projection.ProjectCommodity(cfg, current, req.UsageChangePct)
	result := projection.Result{
		Region:         region,
		Commodity:      key,
		CurrentPrice:   current,
		UsageChangePct: req.UsageChangePct,
		PriceChangePct: changePct,
		NewPrice:       newPrice,
		Timestamp:      time.Now().UTC(),
		Unit:           unit,
		DataSources:    quote.DataSources,
		IsLiveData:     !quote.IsFallback,
	}
	s.history.Add(result)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProjectionHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Entries())
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := parsePositiveInt(q); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	articles, err := s.feed.Recent(ctx, limit)
	if err != nil {
		// Same always-answer contract as prices: empty list, note the error.
		s.logger.WithError(err).Warn("news feed unavailable")
		writeJSON(w, http.StatusOK, map[string]any{
			"articles": []news.Article{},
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// ============================================================
// Helpers
// ============================================================

func priceResponse(q *aggregator.Quote) PriceResponse {
	return PriceResponse{
		Source:      string(q.Commodity),
		Timestamp:   time.Now().UTC(),
		US:          q.US,
		World:       q.World,
		Units:       Units{US: q.UnitsUS, World: q.UnitsWorld},
		DataSources: q.DataSources,
		IsFallback:  q.IsFallback,
	}
}

func fallbackPrice(key commodity.Key, cause error) PriceResponse {
	fb, err := commodity.LookupFallback(key)
	if err != nil {
		fb = commodity.Fallback{}
	}
	return PriceResponse{
		Source:    string(key),
		Timestamp: time.Now().UTC(),
		US: source.PricePoint{
			Value: fb.USValue, Date: source.DateUnknown, Source: commodity.SourceFallback,
		},
		World: source.PricePoint{
			Value: fb.WorldValue, Date: source.DateUnknown, Source: commodity.SourceFallback,
		},
		Units:       Units{US: fb.USUnit, World: fb.WorldUnit},
		DataSources: []string{commodity.SourceFallback},
		IsFallback:  true,
		Error:       cause.Error(),
	}
}

func (s *Server) writeFallbackPrice(w http.ResponseWriter, key commodity.Key, cause error) {
	s.logger.WithError(cause).WithField("commodity", key).Error("price resolution failed internally")
	writeJSON(w, http.StatusOK, fallbackPrice(key, cause))
}

func keyStrings() []string {
	keys := commodity.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("not a positive integer")
		}
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return 0, errors.New("zero")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write JSON response")
	}
}
