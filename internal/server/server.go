package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookvault/internal/app"
	"bookvault/internal/util"
	"bookvault/pkg/domain"
)

// SessionCookie carries the signed session token for browser clients.
// API clients may send the same token as a Bearer header instead.
const SessionCookie = "bookvault_session"

// Limiter gates a request key. Implemented by ratelimit.FixedWindowLimiter.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// SignupLimiter and LoginLimiter throttle credential endpoints per
	// client IP. A nil limiter disables throttling for that endpoint.
	SignupLimiter Limiter
	LoginLimiter  Limiter

	// SessionTTL bounds the session cookie lifetime.
	SessionTTL time.Duration

	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool
}

// Server exposes the JSON API and the HTML views.
type Server struct {
	app           *app.App
	signupLimiter Limiter
	loginLimiter  Limiter
	sessionTTL    time.Duration
	secureCookies bool
	mux           *http.ServeMux
	pages         *pageRenderer
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:           cfg.App,
		signupLimiter: cfg.SignupLimiter,
		loginLimiter:  cfg.LoginLimiter,
		sessionTTL:    sessionTTL,
		secureCookies: cfg.SecureCookies,
		mux:           http.NewServeMux(),
		pages:         pages,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the shared middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// JSON API
	s.mux.Handle("/api/auth/signup", api(http.HandlerFunc(s.handleSignup)))
	s.mux.Handle("/api/auth/login", api(http.HandlerFunc(s.handleLogin)))
	s.mux.Handle("/api/auth/logout", api(http.HandlerFunc(s.handleLogout)))
	s.mux.Handle("/api/auth/me", api(s.authenticated(s.handleMe)))
	s.mux.Handle("/api/books", api(s.authenticated(s.handleBooks)))
	s.mux.Handle("/api/books/", api(s.authenticated(s.handleBookByID)))
	s.mux.Handle("/api/categories", api(s.authenticated(s.handleCategories)))
	s.mux.Handle("/api/admin/upload", api(s.adminOnly(s.handleUploadURL)))
	s.mux.Handle("/api/admin/books", api(s.adminOnly(s.handleAdminBooks)))

	// HTML views
	s.mux.Handle("/", s.page(http.HandlerFunc(s.handleLandingPage)))
	s.mux.Handle("/signin", s.page(http.HandlerFunc(s.handleSignInPage)))
	s.mux.Handle("/dashboard", s.page(s.guarded(s.handleDashboardPage)))
	s.mux.Handle("/book/", s.page(s.guarded(s.handleReaderPage)))
	s.mux.Handle("/admin", s.page(s.guarded(s.handleAdminPage)))
}

func api(next http.Handler) http.Handler {
	return util.WithSecurityHeaders(next)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionUser resolves the request's session token (Bearer header first,
// session cookie second) to a verified account.
func (s *Server) sessionUser(r *http.Request) (domain.User, bool) {
	token, ok := requestToken(r)
	if !ok {
		return domain.User{}, false
	}
	sess, err := s.app.VerifySession(token)
	if err != nil {
		return domain.User{}, false
	}
	user, ok, err := s.app.GetUser(sess.UserID)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r, user)
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.signupLimiter != nil && !s.signupLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Name, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.loginLimiter != nil && !s.loginLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	page := parseIntParam(q.Get("page"), 1)
	limit := parseIntParam(q.Get("limit"), app.DefaultPageSize)
	result, err := s.app.ListBooks(page, limit, q.Get("search"), q.Get("category"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	book, ok, err := s.app.GetBook(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.app.Categories()})
}

type uploadURLRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req uploadURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	ticket, err := s.app.CreateUploadURL(r.Context(), req.FileName, req.FileSize, req.FileType)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleAdminBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBook(w, r)
	case http.MethodDelete:
		s.handleDeleteBook(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req app.CreateBookInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	book, err := s.app.CreateBook(req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Book uploaded successfully",
		"book":    book,
	})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Book ID is required")
		return
	}
	fileDeleted, err := s.app.DeleteBook(r.Context(), id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("book deleted",
		"book_id", id,
		"file_deleted", fileDeleted,
		"admin_id", user.ID,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Book deleted successfully",
		"fileDeleted": fileDeleted,
	})
}

// writeAppError maps application errors onto HTTP statuses. Validation
// failures and sentinel errors carry messages safe to show to clients.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case app.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func requestToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
