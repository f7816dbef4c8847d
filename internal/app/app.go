package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"bookvault/internal/util"
	"bookvault/pkg/auth"
	"bookvault/pkg/domain"
	"bookvault/pkg/storage"
	"bookvault/pkg/store"
)

const (
	// DefaultMaxUploadBytes caps uploads at exactly 50 MiB.
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

	DefaultPageSize    = 12
	DefaultMaxPageSize = 100

	pdfContentType = "application/pdf"
)

// Config wires required dependencies for the core application.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	Objects  storage.ObjectStore

	// AdminEmail marks which signup email is granted the admin role.
	AdminEmail     string
	MaxUploadBytes int64
	MaxPageSize    int
	UploadURLTTL   time.Duration
}

// App is the core application service wiring storage, persistence and
// sessions together behind the HTTP layer.
type App struct {
	store          store.Store
	sessions       store.SessionStore
	objects        storage.ObjectStore
	adminEmail     string
	maxUploadBytes int64
	maxPageSize    int
	uploadURLTTL   time.Duration
}

// New constructs the application service.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	uploadURLTTL := cfg.UploadURLTTL
	if uploadURLTTL <= 0 {
		uploadURLTTL = 15 * time.Minute
	}
	return &App{
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		objects:        cfg.Objects,
		adminEmail:     normalizeEmail(cfg.AdminEmail),
		maxUploadBytes: maxUploadBytes,
		maxPageSize:    maxPageSize,
		uploadURLTTL:   uploadURLTTL,
	}, nil
}

// Pagination describes one catalog page.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// BookPage is a catalog listing response.
type BookPage struct {
	Books      []domain.Book `json:"books"`
	Pagination Pagination    `json:"pagination"`
}

// ListBooks returns one catalog page. Search matches title or author
// case-insensitively; category must be a known genre tag; both combine
// with AND. Page/limit fall back to 1/12 and limit is clamped.
func (a *App) ListBooks(page, limit int, search, category string) (BookPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > a.maxPageSize {
		limit = a.maxPageSize
	}
	filter := store.BookFilter{
		Search: strings.TrimSpace(search),
		Page:   page,
		Limit:  limit,
	}
	if strings.TrimSpace(category) != "" {
		parsed, ok := domain.ParseCategory(category)
		if !ok {
			return BookPage{}, validationError("Invalid category")
		}
		filter.Category = parsed
	}
	books, total, err := a.store.ListBooks(filter)
	if err != nil {
		return BookPage{}, fmt.Errorf("list books: %w", err)
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return BookPage{
		Books: books,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(id string) (domain.Book, bool, error) {
	return a.store.GetBook(id)
}

// Categories exposes the catalog allow-list for views.
func (a *App) Categories() []domain.Category {
	return domain.Categories()
}

// UploadTicket is the response to a signed-upload-URL request. The client
// PUTs the PDF directly to SignedURL, then persists metadata carrying
// FileName (the object key) and PublicURL.
type UploadTicket struct {
	SignedURL string `json:"signedUrl"`
	PublicURL string `json:"publicUrl"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
}

// CreateUploadURL validates the declared upload and issues a pre-signed PUT
// URL for a freshly generated object key. All checks run server-side no
// matter what the client claimed.
func (a *App) CreateUploadURL(ctx context.Context, fileName string, fileSize int64, fileType string) (UploadTicket, error) {
	if strings.TrimSpace(fileName) == "" || fileSize <= 0 || strings.TrimSpace(fileType) == "" {
		return UploadTicket{}, validationError("Missing required fields")
	}
	if fileSize > a.maxUploadBytes {
		return UploadTicket{}, validationError(fmt.Sprintf(
			"File size too large. Maximum allowed size is 50MB. Current file size: %.2fMB",
			float64(fileSize)/(1024*1024)))
	}
	if fileType != pdfContentType {
		return UploadTicket{}, validationError("Only PDF files are allowed")
	}
	key := buildObjectKey(fileName)
	signedURL, err := a.objects.PresignPut(ctx, key, a.uploadURLTTL)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("presign upload: %w", err)
	}
	return UploadTicket{
		SignedURL: signedURL,
		PublicURL: a.objects.PublicURL(key),
		FileName:  key,
		FileSize:  fileSize,
	}, nil
}

// CreateBookInput carries metadata persisted after a direct upload.
type CreateBookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CoverImage  string `json:"coverImage"`
	PdfURL      string `json:"pdfUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

// CreateBook validates and persists catalog metadata. Validation happens
// before the row is written; nothing is mutated on rejection.
func (a *App) CreateBook(in CreateBookInput) (domain.Book, error) {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Author) == "" ||
		strings.TrimSpace(in.Category) == "" ||
		strings.TrimSpace(in.PdfURL) == "" ||
		strings.TrimSpace(in.FileName) == "" ||
		in.FileSize <= 0 {
		return domain.Book{}, validationError("Missing required fields")
	}
	category, ok := domain.ParseCategory(in.Category)
	if !ok {
		return domain.Book{}, validationError("Invalid category")
	}
	if in.FileSize > a.maxUploadBytes {
		return domain.Book{}, validationError(fmt.Sprintf(
			"File size too large. Maximum allowed size is 50MB. Current file size: %.2fMB",
			float64(in.FileSize)/(1024*1024)))
	}
	if !strings.EqualFold(filepath.Ext(in.FileName), ".pdf") {
		return domain.Book{}, validationError("Only PDF files are allowed")
	}
	book := domain.Book{
		ID:          util.NewID(),
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		CoverImage:  strings.TrimSpace(in.CoverImage),
		PdfURL:      strings.TrimSpace(in.PdfURL),
		FileName:    strings.TrimSpace(in.FileName),
		FileSize:    in.FileSize,
		TotalPages:  nil,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.CreateBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a catalog record. The storage object removal is
// best-effort: a failure is logged and reported through the returned flag
// but never blocks deleting the row.
func (a *App) DeleteBook(ctx context.Context, id string) (bool, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return false, fmt.Errorf("load book: %w", err)
	}
	if !ok {
		return false, ErrBookNotFound
	}
	fileDeleted := true
	if err := a.objects.Delete(ctx, book.FileName); err != nil {
		fileDeleted = false
		slog.Warn("storage object removal failed",
			"book_id", book.ID,
			"file_name", book.FileName,
			"err", err,
		)
	}
	if err := a.store.DeleteBook(id); err != nil {
		return fileDeleted, fmt.Errorf("delete book: %w", err)
	}
	return fileDeleted, nil
}

// SignUp registers a new account and opens a session. The configured admin
// email marker is granted the admin role.
func (a *App) SignUp(email, name, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || password == "" {
		return domain.User{}, "", validationError("Email, name and password are required")
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	role := domain.RoleUser
	if a.adminEmail != "" && email == a.adminEmail {
		role = domain.RoleAdmin
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and opens a session.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, "", ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("load user: %w", err)
	}
	if !ok || !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// GetUser returns the account behind a session subject.
func (a *App) GetUser(id string) (domain.User, bool, error) {
	return a.store.GetUserByID(id)
}

// VerifySession validates a session token.
func (a *App) VerifySession(token string) (store.Session, error) {
	return a.sessions.VerifySession(token)
}

// EnsureAdminUser seeds an admin account from configuration when the
// account does not exist yet.
func (a *App) EnsureAdminUser(email, name, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return fmt.Errorf("check admin email: %w", err)
	}
	if exists {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if name == "" {
		name = "Administrator"
	}
	now := time.Now().UTC()
	return a.store.SaveUser(domain.User{
		ID:           util.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// buildObjectKey derives a collision-resistant storage key from the upload
// time and the sanitized original filename. Sanitization keeps keys flat:
// no separators survive, so a key can never escape the bucket prefix.
func buildObjectKey(fileName string) string {
	name := sanitizeFileName(filepath.Base(strings.TrimSpace(fileName)))
	if name == "" {
		name = "book.pdf"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)
}

// sanitizeFileName replaces every character outside [A-Za-z0-9.-] with '_'.
func sanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
