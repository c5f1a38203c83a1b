// Package webadmin serves the minimal administration surface: an admin
// logs in with the seeded web account, lists the Telegram users that
// registered through /start, and assigns their roles. Sessions are
// stateless JWT cookies signed with the secret the user store generated
// on first run. Prometheus metrics ride on the same listener.
package webadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/userstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookie = "alarmbot_session"

// Config holds the web server settings.
type Config struct {
	Addr       string
	SessionTTL time.Duration
}

// Server is the admin HTTP server.
type Server struct {
	cfg    Config
	store  *userstore.Store
	logger *logger.Logger
	secret []byte
	srv    *http.Server
}

// New creates the server. The session-signing secret is loaded from the
// user store, which seeds it on first run.
func New(cfg Config, store *userstore.Store, log *logger.Logger) (*Server, error) {
	secret, err := store.Secret()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: log,
		secret: secret,
	}
	s.srv = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.Handle("GET /users", s.requireSession(http.HandlerFunc(s.handleUsers)))
	mux.Handle("POST /update_role", s.requireSession(http.HandlerFunc(s.handleUpdateRole)))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.logger.Info("starting admin web server",
		logger.Field{Key: "addr", Value: s.cfg.Addr})

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin web server failed", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping admin web server")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	ok, err := s.store.Authenticate(username, password)
	if err != nil {
		s.logger.Error("login check failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		s.logger.Warn("rejected login attempt",
			logger.Field{Key: "username", Value: username})
		http.Error(w, "Login failed", http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.SessionTTL)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("failed to sign session token", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})

	s.logger.Info("admin logged in",
		logger.Field{Key: "username", Value: username})
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	fmt.Fprintln(w, "Logged out")
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		s.logger.Error("failed to list users", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	type user struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	}
	out := make([]user, 0, len(users))
	for _, u := range users {
		out = append(out, user{ID: u.ID, Name: u.Name, Role: u.Role})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("failed to encode user list", err)
	}
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User int64  `json:"user"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateRole(req.User, req.Role); err != nil {
		s.logger.Warn("role update rejected",
			logger.Field{Key: "user", Value: req.User},
			logger.Field{Key: "role", Value: req.Role},
			logger.Field{Key: "reason", Value: err.Error()})
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.logger.Info("updated user role",
		logger.Field{Key: "user", Value: req.User},
		logger.Field{Key: "role", Value: req.Role})

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"success": true}`)
}

// requireSession rejects requests without a valid session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}

		_, err = jwt.Parse(cookie.Value, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil {
			s.logger.Warn("rejected request with invalid session",
				logger.Field{Key: "reason", Value: err.Error()})
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
