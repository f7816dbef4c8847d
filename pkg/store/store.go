package store

import (
	"bookvault/pkg/domain"
)

// BookFilter narrows and pages a catalog listing. Search matches title OR
// author case-insensitively as a substring; Category matches exactly; both
// combine with AND when present. Page and Limit are assumed normalized by
// the caller.
type BookFilter struct {
	Search   string
	Category domain.Category
	Page     int
	Limit    int
}

// Store defines persistence operations for users and books.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// books
	CreateBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	// ListBooks returns one page ordered by creation time descending plus
	// the total number of records matching the filter.
	ListBooks(f BookFilter) ([]domain.Book, int64, error)
	DeleteBook(id string) error
}

// Session identifies an authenticated principal.
type Session struct {
	UserID string
	Role   domain.UserRole
}

// SessionStore issues and verifies signed session tokens.
type SessionStore interface {
	NewSession(user domain.User) (string, error)
	VerifySession(token string) (Session, error)
}
