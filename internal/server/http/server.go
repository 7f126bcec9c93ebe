// Package httpserver exposes the calorie tracker HTTP API.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/calorie-tracker/internal/convert"
	"github.com/and161185/calorie-tracker/internal/errs"
	"github.com/and161185/calorie-tracker/internal/metrics"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/service"
)

const maxBodyBytes = 1 << 20

// Conflict messages shown to users.
const (
	msgDateExists = "data for this date already exists"
	msgFoodExists = "food with this name already exists"
	msgUserExists = "user with this name already exists"
)

// Options configures optional parts of the server.
type Options struct {
	CookieName   string // default "session"
	SecureCookie bool
	SystemUserID int64 // owner of shared foods, default 1

	AuthLimiter *IPRateLimiter   // per-IP throttle on /login and /registration
	Metrics     *metrics.Metrics // request metrics and /metrics
	Health      func(ctx context.Context) error
}

// Server wires services into HTTP handlers.
type Server struct {
	auth  service.AuthService
	foods service.FoodService
	stats service.StatisticsService
	log   *zap.Logger
	opts  Options
}

// New constructs the HTTP server with injected services.
func New(auth service.AuthService, foods service.FoodService, stats service.StatisticsService, log *zap.Logger, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.SystemUserID <= 0 {
		opts.SystemUserID = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, foods: foods, stats: stats, log: log, opts: opts}
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return Chain(s.Router(), RequestID, Logging(s.log), Recover(s.log))
}

// Router registers all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Instrument)
		r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	guest := r.NewRoute().Subrouter()
	if s.opts.AuthLimiter != nil {
		guest.Use(s.opts.AuthLimiter.Middleware)
	}
	guest.HandleFunc("/registration", s.register).Methods(http.MethodPost)
	guest.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(s.requireSession)
	api.HandleFunc("/", s.whoami).Methods(http.MethodGet)
	api.HandleFunc("/food", s.listFoods).Methods(http.MethodGet)
	api.HandleFunc("/food/add", s.addFood).Methods(http.MethodPost)
	api.HandleFunc("/statistics", s.history).Methods(http.MethodGet)
	api.HandleFunc("/statistics/add", s.listFoods).Methods(http.MethodGet)
	api.HandleFunc("/statistics/add", s.record).Methods(http.MethodPost)
	api.HandleFunc("/statistics/detailed/{date}", s.detail).Methods(http.MethodGet)
	api.HandleFunc("/statistics/detailed/{date}/delete", s.deleteDay).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, nil, errs.ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

// --- session ---

// sessionToken reads the session cookie, falling back to "Authorization: Bearer <JWT>".
func (s *Server) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(s.opts.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.ParseSession(s.sessionToken(r))
		if err != nil {
			writeError(w, r, s.log, errs.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, tok model.Tokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    tok.AccessToken,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		MaxAge:   int(time.Until(tok.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- body decoding ---

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode json body: %v: %w", err, errs.Invalid("malformed JSON body"))
	}
	return nil
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form body: %v: %w", err, errs.Invalid("malformed form body"))
	}
	return nil
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request) (convert.CredentialsRequest, error) {
	var c convert.CredentialsRequest
	if isJSON(r) {
		err := decodeJSON(w, r, &c)
		return c, err
	}
	if err := parseForm(w, r); err != nil {
		return c, err
	}
	return convert.CredentialsFromForm(r.PostForm), nil
}

// --- ops ---

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
