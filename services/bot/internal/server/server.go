package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"diamondbot/internal/ratelimit"
	"diamondbot/internal/servicetoken"
	"diamondbot/internal/util"
	"diamondbot/pkg/domain"
	"diamondbot/pkg/queue"
	"diamondbot/pkg/store"
	"diamondbot/services/bot/internal/app"
)

// Dispatcher consumes normalized inbound events.
type Dispatcher interface {
	HandleEvent(ctx context.Context, ev app.Event) error
}

// Notifier schedules seller notifications for approved listings.
type Notifier interface {
	Enqueue(ctx context.Context, listingID string) (queue.JobStatus, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	Dispatcher    Dispatcher
	Store         store.Store
	Redis         *redis.Client
	Limiter       *ratelimit.FixedWindowLimiter
	TokenVerifier *servicetoken.Verifier
	Notifier      Notifier
	VerifyToken   string
	DedupeTTL     time.Duration
	Proxies       *util.TrustedProxies
}

// Server exposes the webhook and admin endpoints for the bot service.
type Server struct {
	dispatcher    Dispatcher
	store         store.Store
	redis         *redis.Client
	limiter       *ratelimit.FixedWindowLimiter
	tokenVerifier *servicetoken.Verifier
	notifier      Notifier
	verifyToken   string
	dedupeTTL     time.Duration
	proxies       *util.TrustedProxies
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	dedupeTTL := cfg.DedupeTTL
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	s := &Server{
		dispatcher:    cfg.Dispatcher,
		store:         cfg.Store,
		redis:         cfg.Redis,
		limiter:       cfg.Limiter,
		tokenVerifier: cfg.TokenVerifier,
		notifier:      cfg.Notifier,
		verifyToken:   cfg.VerifyToken,
		dedupeTTL:     dedupeTTL,
		proxies:       cfg.Proxies,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("bot", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/webhook", s.handleWebhook)
	s.mux.Handle("/admin/users/", s.withServiceToken(s.handleAdminUsers))
	s.mux.Handle("/admin/listings/", s.withServiceToken(s.handleAdminListings))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the backing dependencies, not just process liveness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleWebhookVerify(w, r)
	case http.MethodPost:
		s.handleWebhookReceive(w, r)
	default:
		methodNotAllowed(w)
	}
}

// handleWebhookVerify answers the provider's subscription handshake by
// echoing the challenge when the verify token matches.
func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != s.verifyToken {
		writeError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

func (s *Server) handleWebhookReceive(w http.ResponseWriter, r *http.Request) {
	logger := util.LoggerFromContext(r.Context())

	if s.limiter != nil {
		ip := util.ClientIP(r, s.proxies)
		if !s.limiter.Allow("webhook:" + ip) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	var payload webhookPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	for _, ev := range payload.events() {
		if ev.MessageID != "" && s.alreadySeen(r.Context(), ev.MessageID) {
			logger.Info("duplicate message dropped", slog.String("messageId", ev.MessageID))
			continue
		}
		if err := s.dispatcher.HandleEvent(r.Context(), ev); err != nil {
			logger.Error("event handling failed",
				slog.String("messageId", ev.MessageID), slog.String("error", err.Error()))
		}
	}
	// the provider retries anything but 200
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// alreadySeen claims a provider message id. First delivery wins; on redis
// failure the message is processed (duplicates beat drops).
func (s *Server) alreadySeen(ctx context.Context, messageID string) bool {
	if s.redis == nil {
		return false
	}
	ok, err := s.redis.SetNX(ctx, "diamondbot:dedupe:"+messageID, "1", s.dedupeTTL).Result()
	if err != nil {
		util.LoggerFromContext(ctx).Warn("dedupe check failed", slog.String("error", err.Error()))
		return false
	}
	return !ok
}

func (s *Server) withServiceToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenVerifier == nil {
			writeError(w, http.StatusInternalServerError, "token verifier not configured")
			return
		}
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := s.tokenVerifier.Verify(token); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

// handleAdminUsers serves GET /admin/users/{id}/{messages|diamonds|designs|listings}.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	userID, resource := parts[0], parts[1]
	if _, ok, err := s.store.GetUser(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	opts := listOptions(r)

	switch resource {
	case "messages":
		items, err := s.store.ListMessagesByUser(userID, opts)
		writeListResult(w, items, err)
	case "diamonds":
		items, err := s.store.ListDiamondsByUser(userID, opts)
		writeListResult(w, items, err)
	case "designs":
		items, err := s.store.ListDesignsByUser(userID, opts)
		writeListResult(w, items, err)
	case "listings":
		items, err := s.store.ListListingsByUser(userID, opts)
		writeListResult(w, items, err)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleAdminListings serves POST /admin/listings/{id}/approve.
func (s *Server) handleAdminListings(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/listings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "approve" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	listingID := parts[0]

	listing, ok, err := s.store.GetListing(listingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if listing.Status == domain.ListingApproved {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already approved"})
		return
	}
	if err := s.store.SetListingStatus(listingID, domain.ListingApproved); err != nil {
		writeError(w, http.StatusInternalServerError, "approval failed")
		return
	}
	if s.notifier != nil {
		if _, err := s.notifier.Enqueue(r.Context(), listingID); err != nil {
			util.LoggerFromContext(r.Context()).Error("enqueue approval notification failed",
				slog.String("listingId", listingID), slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func listOptions(r *http.Request) store.ListOptions {
	var opts store.ListOptions
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	return opts
}

func writeListResult[T any](w http.ResponseWriter, items []T, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
