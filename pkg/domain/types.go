package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// Category is a closed set of genre tags validated against an allow-list.
type Category string

const (
	CategoryFiction    Category = "FICTION"
	CategoryNonFiction Category = "NON_FICTION"
	CategoryScience    Category = "SCIENCE"
	CategoryHistory    Category = "HISTORY"
	CategoryBiography  Category = "BIOGRAPHY"
	CategoryTechnology Category = "TECHNOLOGY"
	CategoryPhilosophy Category = "PHILOSOPHY"
	CategoryPolitics   Category = "POLITICS"
	CategoryBusiness   Category = "BUSINESS"
	CategoryHealth     Category = "HEALTH"
	CategoryEducation  Category = "EDUCATION"
	CategoryRomance    Category = "ROMANCE"
	CategoryMystery    Category = "MYSTERY"
	CategoryFantasy    Category = "FANTASY"
	CategoryOther      Category = "OTHER"
)

// Categories returns the allow-list in display order.
func Categories() []Category {
	return []Category{
		CategoryFiction,
		CategoryNonFiction,
		CategoryScience,
		CategoryHistory,
		CategoryBiography,
		CategoryTechnology,
		CategoryPhilosophy,
		CategoryPolitics,
		CategoryBusiness,
		CategoryHealth,
		CategoryEducation,
		CategoryRomance,
		CategoryMystery,
		CategoryFantasy,
		CategoryOther,
	}
}

// ParseCategory validates a raw category value against the allow-list.
func ParseCategory(raw string) (Category, bool) {
	candidate := Category(strings.ToUpper(strings.TrimSpace(raw)))
	for _, c := range Categories() {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

// Label renders a category for display ("NON_FICTION" -> "Non Fiction").
func (c Category) Label() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		w = strings.ToLower(w)
		if w != "" {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Book is a catalog record. FileName is the object-storage key backing
// PdfURL; deleting that key removes exactly the stored object. TotalPages
// is never computed and stays null.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	CoverImage  string    `json:"coverImage,omitempty"`
	PdfURL      string    `json:"pdfUrl"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	TotalPages  *int      `json:"totalPages"`
	CreatedAt   time.Time `json:"createdAt"`
}
