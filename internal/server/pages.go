package server

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"bookvault/internal/app"
	"bookvault/internal/util"
	"bookvault/pkg/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"inc": func(n int) int { return n + 1 },
		"dec": func(n int) int { return n - 1 },
		"mb": func(size int64) string {
			return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pageRenderer{templates: t}, nil
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render page", "template", name, "err", err)
	}
}

// page applies the relaxed security headers HTML views need (the reader
// embeds the PDF in an iframe, which the API policy forbids).
func (s *Server) page(next http.Handler) http.Handler {
	return util.WithPageSecurityHeaders(next)
}

type pageHandler func(http.ResponseWriter, *http.Request, domain.User)

// guarded redirects browser requests without a valid session to the sign-in
// page. Reaching /admin additionally requires the admin role; other roles
// are sent back to the dashboard.
func (s *Server) guarded(next pageHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			http.Redirect(w, r, "/signin", http.StatusFound)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/admin") && user.Role != domain.RoleAdmin {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next(w, r, user)
	})
}

type basePage struct {
	Title string
	User  *domain.User
}

func (s *Server) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.renderNotFound(w)
		return
	}
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.pages.render(w, http.StatusOK, "landing.html", basePage{Title: "BookVault"})
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.pages.render(w, http.StatusOK, "signin.html", basePage{Title: "Sign in"})
}

type dashboardPage struct {
	basePage
	Books      []domain.Book
	Pagination app.Pagination
	Search     string
	Category   string
	Categories []domain.Category
	LoadError  bool
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	page := parseIntParam(q.Get("page"), 1)
	search := q.Get("search")
	category := q.Get("category")

	data := dashboardPage{
		basePage:   basePage{Title: "Library", User: &user},
		Search:     search,
		Category:   category,
		Categories: s.app.Categories(),
	}
	result, err := s.app.ListBooks(page, app.DefaultPageSize, search, category)
	if err != nil {
		if app.IsValidation(err) {
			// Unknown category filter, show an empty catalog.
			result, err = s.app.ListBooks(page, app.DefaultPageSize, search, "")
		}
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("load catalog", "err", err)
			data.LoadError = true
			s.pages.render(w, http.StatusOK, "dashboard.html", data)
			return
		}
	}
	data.Books = result.Books
	data.Pagination = result.Pagination
	s.pages.render(w, http.StatusOK, "dashboard.html", data)
}

type readerPage struct {
	basePage
	Book domain.Book
}

func (s *Server) handleReaderPage(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/book/")
	if id == "" || strings.Contains(id, "/") {
		s.renderNotFound(w)
		return
	}
	book, ok, err := s.app.GetBook(id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("load book", "book_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if !ok {
		s.renderNotFound(w)
		return
	}
	s.pages.render(w, http.StatusOK, "reader.html", readerPage{
		basePage: basePage{Title: book.Title, User: &user},
		Book:     book,
	})
}

type adminPage struct {
	basePage
	Books      []domain.Book
	Pagination app.Pagination
	Categories []domain.Category
	MaxUpload  string
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request, user domain.User) {
	page := parseIntParam(r.URL.Query().Get("page"), 1)
	result, err := s.app.ListBooks(page, app.DefaultPageSize, "", "")
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("load catalog", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.pages.render(w, http.StatusOK, "admin.html", adminPage{
		basePage:   basePage{Title: "Manage books", User: &user},
		Books:      result.Books,
		Pagination: result.Pagination,
		Categories: s.app.Categories(),
		MaxUpload:  "50 MB",
	})
}

func (s *Server) renderNotFound(w http.ResponseWriter) {
	s.pages.render(w, http.StatusNotFound, "notfound.html", basePage{Title: "Not found"})
}
