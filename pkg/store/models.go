package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Description string
	Category    string `gorm:"not null;index"`
	CoverImage  string
	PdfURL      string `gorm:"not null"`
	FileName    string `gorm:"not null;uniqueIndex"`
	FileSize    int64  `gorm:"not null"`
	TotalPages  *int
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (BookModel) TableName() string { return "books" }

func (UserModel) TableName() string { return "users" }
