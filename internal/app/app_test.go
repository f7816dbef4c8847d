package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"bookvault/pkg/domain"
	"bookvault/pkg/store"
)

type fakeObjectStore struct {
	presignCalls int
	deleteCalls  []string
	presignErr   error
	deleteErr    error
}

func (f *fakeObjectStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	f.presignCalls++
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://storage.test/upload/" + key, nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://storage.test/books/" + key
}

func (f *fakeObjectStore) Put(context.Context, string, io.Reader, int64, string) error {
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.deleteCalls = append(f.deleteCalls, key)
	return f.deleteErr
}

func newTestApp(t *testing.T, objects *fakeObjectStore) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("app-test-session-secret", time.Hour)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := New(Config{
		Store:      mem,
		Sessions:   sessions,
		Objects:    objects,
		AdminEmail: "admin@example.com",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func seedCatalog(t *testing.T, mem *store.MemoryStore, n int) {
	t.Helper()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := mem.CreateBook(domain.Book{
			ID:        fmt.Sprintf("book-%02d", i),
			Title:     fmt.Sprintf("Go Systems Vol %02d", i),
			Author:    "Jane Dev",
			Category:  domain.CategoryTechnology,
			PdfURL:    "https://storage.test/books/x.pdf",
			FileName:  fmt.Sprintf("%d-x%02d.pdf", i, i),
			FileSize:  2048,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed book: %v", err)
		}
	}
}

func TestListBooksPaginationMetadata(t *testing.T) {
	a, mem := newTestApp(t, &fakeObjectStore{})
	seedCatalog(t, mem, 20)

	page, err := a.ListBooks(2, 12, "", "")
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(page.Books) != 8 {
		t.Fatalf("page 2 size = %d, want 8", len(page.Books))
	}
	p := page.Pagination
	if p.Page != 2 || p.Limit != 12 || p.Total != 20 || p.TotalPages != 2 {
		t.Fatalf("pagination = %+v", p)
	}
}

func TestListBooksDefaultsAndClamp(t *testing.T) {
	a, mem := newTestApp(t, &fakeObjectStore{})
	seedCatalog(t, mem, 3)

	page, err := a.ListBooks(0, 0, "", "")
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != 12 {
		t.Fatalf("defaults = %+v", page.Pagination)
	}

	page, err = a.ListBooks(1, 100000, "", "")
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if page.Pagination.Limit != DefaultMaxPageSize {
		t.Fatalf("limit = %d, want clamp to %d", page.Pagination.Limit, DefaultMaxPageSize)
	}
}

func TestListBooksRejectsUnknownCategory(t *testing.T) {
	a, _ := newTestApp(t, &fakeObjectStore{})
	_, err := a.ListBooks(1, 12, "", "KNITTING")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateUploadURLValidatesBeforePresigning(t *testing.T) {
	objects := &fakeObjectStore{}
	a, _ := newTestApp(t, objects)
	ctx := context.Background()

	cases := []struct {
		name     string
		fileName string
		fileSize int64
		fileType string
	}{
		{"missing fields", "", 0, ""},
		{"oversized", "big.pdf", DefaultMaxUploadBytes + 1, "application/pdf"},
		{"wrong type", "notes.epub", 1024, "application/epub+zip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.CreateUploadURL(ctx, tc.fileName, tc.fileSize, tc.fileType)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if objects.presignCalls != 0 {
		t.Fatalf("presign must not run for rejected uploads, got %d calls", objects.presignCalls)
	}
}

func TestCreateUploadURLSanitizesObjectKey(t *testing.T) {
	a, _ := newTestApp(t, &fakeObjectStore{})
	ticket, err := a.CreateUploadURL(context.Background(), "../war & peace (v2).pdf", 1<<20, "application/pdf")
	if err != nil {
		t.Fatalf("create upload url: %v", err)
	}
	keyPattern := regexp.MustCompile(`^\d+-[A-Za-z0-9._-]+\.pdf$`)
	if !keyPattern.MatchString(ticket.FileName) {
		t.Fatalf("object key %q not sanitized", ticket.FileName)
	}
	if strings.Contains(ticket.FileName, "/") || strings.Contains(ticket.FileName, "&") {
		t.Fatalf("object key %q carries unsafe characters", ticket.FileName)
	}
	if ticket.SignedURL == "" || ticket.PublicURL == "" {
		t.Fatalf("ticket incomplete: %+v", ticket)
	}
	if ticket.FileSize != 1<<20 {
		t.Fatalf("ticket size = %d", ticket.FileSize)
	}
}

func TestCreateBookValidatesBeforePersisting(t *testing.T) {
	a, mem := newTestApp(t, &fakeObjectStore{})

	valid := CreateBookInput{
		Title:    "T",
		Author:   "A",
		Category: "FICTION",
		PdfURL:   "https://storage.test/books/1-t.pdf",
		FileName: "1-t.pdf",
		FileSize: 1 << 20,
	}

	missing := valid
	missing.Title = ""
	if _, err := a.CreateBook(missing); !IsValidation(err) {
		t.Fatalf("missing title: %v", err)
	}

	badCategory := valid
	badCategory.Category = "SCI-FI"
	if _, err := a.CreateBook(badCategory); !IsValidation(err) {
		t.Fatalf("bad category: %v", err)
	}

	oversized := valid
	oversized.FileSize = DefaultMaxUploadBytes + 1
	if _, err := a.CreateBook(oversized); !IsValidation(err) {
		t.Fatalf("oversized: %v", err)
	}

	if _, total, _ := mem.ListBooks(store.BookFilter{Page: 1, Limit: 10}); total != 0 {
		t.Fatalf("rejected uploads must not persist rows, total = %d", total)
	}

	book, err := a.CreateBook(valid)
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if book.TotalPages != nil {
		t.Fatal("totalPages must stay null")
	}
	got, ok, err := a.GetBook(book.ID)
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if got.FileSize != valid.FileSize || got.Category != domain.CategoryFiction {
		t.Fatalf("persisted book = %+v", got)
	}
}

func TestDeleteBookIsBestEffortOnStorage(t *testing.T) {
	objects := &fakeObjectStore{deleteErr: errors.New("object missing")}
	a, mem := newTestApp(t, objects)
	seedCatalog(t, mem, 1)

	fileDeleted, err := a.DeleteBook(context.Background(), "book-00")
	if err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if fileDeleted {
		t.Fatal("fileDeleted must be false when storage removal fails")
	}
	if _, ok, _ := mem.GetBook("book-00"); ok {
		t.Fatal("row must be deleted even when storage removal fails")
	}
}

func TestDeleteBookRemovesStorageObject(t *testing.T) {
	objects := &fakeObjectStore{}
	a, mem := newTestApp(t, objects)
	seedCatalog(t, mem, 1)

	fileDeleted, err := a.DeleteBook(context.Background(), "book-00")
	if err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if !fileDeleted {
		t.Fatal("expected fileDeleted true")
	}
	if len(objects.deleteCalls) != 1 || objects.deleteCalls[0] != "0-x00.pdf" {
		t.Fatalf("delete calls = %v", objects.deleteCalls)
	}
}

func TestDeleteBookUnknownID(t *testing.T) {
	a, _ := newTestApp(t, &fakeObjectStore{})
	if _, err := a.DeleteBook(context.Background(), "nope"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestSignUpAssignsRoles(t *testing.T) {
	a, _ := newTestApp(t, &fakeObjectStore{})

	admin, token, err := a.SignUp("Admin@Example.com", "Root", "secret-pw")
	if err != nil {
		t.Fatalf("sign up admin: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("admin role = %s", admin.Role)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	user, _, err := a.SignUp("reader@example.com", "Reader", "secret-pw")
	if err != nil {
		t.Fatalf("sign up user: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("user role = %s", user.Role)
	}

	if _, _, err := a.SignUp("reader@example.com", "Again", "secret-pw"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestLoginChecksCredentials(t *testing.T) {
	a, _ := newTestApp(t, &fakeObjectStore{})
	if _, _, err := a.SignUp("reader@example.com", "Reader", "secret-pw"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	user, token, err := a.Login("reader@example.com", "secret-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sess, err := a.VerifySession(token)
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if sess.UserID != user.ID || sess.Role != domain.RoleUser {
		t.Fatalf("session = %+v", sess)
	}

	if _, _, err := a.Login("reader@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := a.Login("ghost@example.com", "secret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestEnsureAdminUserSeedsOnce(t *testing.T) {
	a, mem := newTestApp(t, &fakeObjectStore{})
	if err := a.EnsureAdminUser("ops@example.com", "Ops", "seed-pw"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if err := a.EnsureAdminUser("ops@example.com", "Ops", "seed-pw"); err != nil {
		t.Fatalf("ensure admin twice: %v", err)
	}
	if n, _ := mem.UserCount(); n != 1 {
		t.Fatalf("user count = %d, want 1", n)
	}
	seeded, ok, _ := mem.GetUserByEmail("ops@example.com")
	if !ok || seeded.Role != domain.RoleAdmin {
		t.Fatalf("seeded admin = %+v ok=%v", seeded, ok)
	}
}
