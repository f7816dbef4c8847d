package store

import (
	"fmt"
	"testing"
	"time"

	"bookvault/pkg/domain"
)

func seedBooks(t *testing.T, m *MemoryStore, n int) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		cat := domain.CategoryFiction
		if i%2 == 1 {
			cat = domain.CategoryScience
		}
		err := m.CreateBook(domain.Book{
			ID:        fmt.Sprintf("book-%02d", i),
			Title:     fmt.Sprintf("Title %02d", i),
			Author:    fmt.Sprintf("Author %02d", i),
			Category:  cat,
			FileName:  fmt.Sprintf("key-%02d.pdf", i),
			FileSize:  1024,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create book %d: %v", i, err)
		}
	}
}

func TestMemoryStoreListBooksPagination(t *testing.T) {
	m := NewMemoryStore()
	seedBooks(t, m, 20)

	books, total, err := m.ListBooks(BookFilter{Page: 2, Limit: 12})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if total != 20 {
		t.Fatalf("total = %d, want 20", total)
	}
	if len(books) != 8 {
		t.Fatalf("page 2 size = %d, want 8", len(books))
	}
	// Newest first: page 2 starts at the 13th newest, which is book-07.
	if books[0].ID != "book-07" {
		t.Fatalf("first book on page 2 = %s, want book-07", books[0].ID)
	}
}

func TestMemoryStoreListBooksSearchIsCaseInsensitiveSubstring(t *testing.T) {
	m := NewMemoryStore()
	seedBooks(t, m, 5)

	books, total, err := m.ListBooks(BookFilter{Search: "title 03", Page: 1, Limit: 12})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if total != 1 || len(books) != 1 || books[0].ID != "book-03" {
		t.Fatalf("search by title substring returned %v (total %d)", books, total)
	}

	books, _, err = m.ListBooks(BookFilter{Search: "AUTHOR 04", Page: 1, Limit: 12})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 1 || books[0].ID != "book-04" {
		t.Fatalf("search by author substring returned %v", books)
	}
}

func TestMemoryStoreListBooksCategoryFilterCombinesWithSearch(t *testing.T) {
	m := NewMemoryStore()
	seedBooks(t, m, 10)

	books, total, err := m.ListBooks(BookFilter{Category: domain.CategoryScience, Page: 1, Limit: 12})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if total != 5 {
		t.Fatalf("science total = %d, want 5", total)
	}
	for _, b := range books {
		if b.Category != domain.CategoryScience {
			t.Fatalf("book %s has category %s", b.ID, b.Category)
		}
	}

	// Search AND category together.
	books, total, err = m.ListBooks(BookFilter{Search: "Title 03", Category: domain.CategoryFiction, Page: 1, Limit: 12})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if total != 0 || len(books) != 0 {
		t.Fatalf("expected no fiction match for Title 03, got %v", books)
	}
}

func TestMemoryStoreDeleteBook(t *testing.T) {
	m := NewMemoryStore()
	seedBooks(t, m, 2)
	if err := m.DeleteBook("book-00"); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, ok, _ := m.GetBook("book-00"); ok {
		t.Fatal("book-00 should be gone")
	}
	if _, total, _ := m.ListBooks(BookFilter{Page: 1, Limit: 12}); total != 1 {
		t.Fatalf("total after delete = %d, want 1", total)
	}
}
