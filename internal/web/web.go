package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tekkin/internal/checkout"
	"tekkin/internal/config"
	"tekkin/internal/harvest"
	"tekkin/internal/instagram"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/model"
	"tekkin/internal/spotlight"
	"tekkin/internal/store"
)

const (
	defaultNewsCategory = model.CategoryProduction
	defaultNewsLimit    = 3
	maxNewsLimit        = 50
)

// InstagramAPI is what the Instagram routes need from the Graph client.
type InstagramAPI interface {
	Media(ctx context.Context, user, tag string) ([]instagram.Media, error)
	Profile(ctx context.Context) (instagram.Profile, error)
	Lookup(ctx context.Context, username string) (instagram.Profile, error)
}

// CheckoutAPI opens a Stripe Checkout session and returns its URL.
type CheckoutAPI interface {
	CreateSession(ctx context.Context) (string, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP routes. They are built once at
// startup and shared by every request. A nil Checkout answers 503.
type Deps struct {
	Spotlight  *spotlight.Service
	News       store.NewsStore
	NewsIngest harvest.Runner
	Instagram  InstagramAPI
	Checkout   CheckoutAPI
	Health     Pinger
}

// Server exposes the public JSON API, the admin triggers and /metrics.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routes wrapped with request metrics.
func (s *Server) Handler() http.Handler {
	return metricsMiddleware(s.mux)
}

// HTTPServer returns an http.Server bound to cfg.Listen.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/spotlight", s.handleSpotlight)
	s.mux.HandleFunc("GET /api/spotlight/buckets", s.handleSpotlightBuckets)
	s.mux.HandleFunc("GET /api/spotlight.ics", s.handleSpotlightICS)

	s.mux.HandleFunc("GET /api/news", s.handleNews)
	s.mux.Handle("GET /api/ingest-news", s.admin(http.HandlerFunc(s.handleIngestNews)))
	s.mux.Handle("POST /api/ingest-news", s.admin(http.HandlerFunc(s.handleIngestNews)))

	s.mux.HandleFunc("GET /api/instagram", s.handleInstagramMedia)
	s.mux.HandleFunc("GET /api/instagram/profile", s.handleInstagramProfile)

	s.mux.HandleFunc("POST /api/checkout", s.handleCheckout)

	s.mux.Handle("GET /metrics", s.admin(metrics.Handler()))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// admin guards a handler with HTTP Basic Auth when it is configured.
func (s *Server) admin(next http.Handler) http.Handler {
	if !s.basicAuthEnabled() {
		return next
	}
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Tekkin", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			appLog.Error("health check failed", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type spotlightResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleSpotlight returns every stored event as a flat list, or a single
// item when ?id= is given.
func (s *Server) handleSpotlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id := r.URL.Query().Get("id"); id != "" {
		it, ok, err := s.deps.Spotlight.Item(ctx, id)
		if err != nil {
			appLog.Error("spotlight item lookup failed", err, "id", id)
			writeJSON(w, http.StatusInternalServerError, spotlightResponse{Message: err.Error()})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, spotlightResponse{Message: "event not found"})
			return
		}
		writeJSON(w, http.StatusOK, spotlightResponse{Success: true, Data: it})
		return
	}

	items, err := s.deps.Spotlight.Items(ctx)
	if err != nil {
		appLog.Error("spotlight fetch failed", err)
		writeJSON(w, http.StatusInternalServerError, spotlightResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, spotlightResponse{Success: true, Data: items})
}

func (s *Server) handleSpotlightBuckets(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Spotlight.Buckets(r.Context())
	if err != nil {
		appLog.Error("spotlight buckets failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load spotlight")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSpotlightICS(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Spotlight.Upcoming(r.Context())
	if err != nil {
		appLog.Error("spotlight ics failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load spotlight")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="tekkin-spotlight.ics"`)
	if err := spotlight.WriteICS(w, items, time.Now(), s.deps.Spotlight.Location()); err != nil {
		appLog.Error("failed to write ICS response", err)
	}
}

type newsResponse struct {
	Items []*model.NewsItem `json:"items"`
}

// handleNews lists the latest news of one category.
//
// GET /api/news?category=production&limit=3
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category == "" {
		category = defaultNewsCategory
	}
	switch category {
	case model.CategoryEvents, model.CategoryPromotion, model.CategoryProduction:
	default:
		writeError(w, http.StatusBadRequest, "unknown category: "+category)
		return
	}

	limit := parseIntDefault(q.Get("limit"), defaultNewsLimit)
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	if limit > maxNewsLimit {
		limit = maxNewsLimit
	}

	items, err := s.deps.News.ListNews(r.Context(), category, limit)
	if err != nil {
		appLog.Error("news list failed", err, "category", category)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newsResponse{Items: items})
}

type ingestResponse struct {
	Results []model.Status `json:"results"`
}

// handleIngestNews runs one news harvest synchronously.
func (s *Server) handleIngestNews(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	results := s.deps.NewsIngest.Run(r.Context())
	appLog.Info("news ingest triggered",
		"sources", len(results),
		"failed", harvest.Failed(results),
		"duration", time.Since(start).String(),
	)
	writeJSON(w, http.StatusOK, ingestResponse{Results: results})
}

type instagramResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleInstagramMedia proxies the brand's media, filtered by ?user= and ?tag=.
// Failures are reported in the body with a 200, as the page expects.
func (s *Server) handleInstagramMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	media, err := s.deps.Instagram.Media(r.Context(), q.Get("user"), q.Get("tag"))
	if err != nil {
		if errors.Is(err, instagram.ErrMissingCredentials) {
			writeJSON(w, http.StatusOK, instagramResponse{Error: "Missing Instagram token"})
			return
		}
		appLog.Error("instagram media failed", err)
		writeJSON(w, http.StatusOK, instagramResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, instagramResponse{Success: true, Data: media})
}

// handleInstagramProfile returns the connected business profile, or the
// public profile of ?username= through business discovery.
func (s *Server) handleInstagramProfile(w http.ResponseWriter, r *http.Request) {
	var (
		profile instagram.Profile
		err     error
	)
	if username := r.URL.Query().Get("username"); username != "" {
		profile, err = s.deps.Instagram.Lookup(r.Context(), username)
	} else {
		profile, err = s.deps.Instagram.Profile(r.Context())
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, instagramResponse{Success: true, Data: profile})
	case errors.Is(err, instagram.ErrMissingCredentials):
		writeJSON(w, http.StatusBadRequest, instagramResponse{Error: "Missing IG credentials"})
	case errors.Is(err, instagram.ErrNoBusinessAccount):
		writeJSON(w, http.StatusBadRequest, instagramResponse{Error: err.Error()})
	default:
		appLog.Error("instagram profile failed", err)
		writeJSON(w, http.StatusInternalServerError, instagramResponse{Error: err.Error()})
	}
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.deps.Checkout == nil {
		writeError(w, http.StatusServiceUnavailable, checkout.ErrNotConfigured.Error())
		return
	}
	url, err := s.deps.Checkout.CreateSession(r.Context())
	if errors.Is(err, checkout.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		appLog.Error("checkout session failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// statusRecorder captures the response code for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// metricsMiddleware observes request latency by matched route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, rec.code, start)
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
