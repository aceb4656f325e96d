package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookcatalog/pkg/domain"
)

// GormStore implements Store on GORM + Postgres. It exists so the in-memory
// reference deployment can later point at a real database without changing
// the application layer.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) SaveUser(u domain.User) error {
	row := UserModel{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash"}),
	}).Create(&row).Error
}

func (s *GormStore) HasUser(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) GetUser(username string) (domain.User, bool, error) {
	var row UserModel
	err := s.db.First(&row, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(row), true, nil
}

func (s *GormStore) ListUsers() ([]domain.User, error) {
	var rows []UserModel
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromModel(row))
	}
	return users, nil
}

func (s *GormStore) SaveBook(b domain.Book) error {
	row := BookModel{ISBN: b.ISBN, Author: b.Author, Title: b.Title}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "isbn"}},
		DoUpdates: clause.AssignmentColumns([]string{"author", "title"}),
	}).Create(&row).Error
}

func (s *GormStore) GetBook(isbn string) (domain.Book, bool, error) {
	var row BookModel
	err := s.db.First(&row, "isbn = ?", isbn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, err
	}
	book := domain.Book{ISBN: row.ISBN, Author: row.Author, Title: row.Title}
	reviews, err := s.reviewsFor(isbn)
	if err != nil {
		return domain.Book{}, false, err
	}
	book.Reviews = reviews
	return book, true, nil
}

func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var rows []BookModel
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	var reviewRows []ReviewModel
	if err := s.db.Find(&reviewRows).Error; err != nil {
		return nil, err
	}
	byISBN := make(map[string]map[string]string, len(rows))
	for _, r := range reviewRows {
		if byISBN[r.ISBN] == nil {
			byISBN[r.ISBN] = make(map[string]string)
		}
		byISBN[r.ISBN][r.Username] = r.Text
	}
	books := make([]domain.Book, 0, len(rows))
	for _, row := range rows {
		reviews := byISBN[row.ISBN]
		if reviews == nil {
			reviews = make(map[string]string)
		}
		books = append(books, domain.Book{
			ISBN:    row.ISBN,
			Author:  row.Author,
			Title:   row.Title,
			Reviews: reviews,
		})
	}
	return books, nil
}

func (s *GormStore) BookCount() (int, error) {
	var count int64
	if err := s.db.Model(&BookModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore) UpsertReview(isbn, username, text string) (domain.ReviewOutcome, error) {
	outcome := domain.ReviewCreated
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&BookModel{}).Where("isbn = ?", isbn).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrBookNotFound
		}
		var existing int64
		if err := tx.Model(&ReviewModel{}).
			Where("isbn = ? AND username = ?", isbn, username).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			outcome = domain.ReviewUpdated
		}
		row := ReviewModel{ISBN: isbn, Username: username, Text: text}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "isbn"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *GormStore) DeleteReview(isbn, username string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&BookModel{}).Where("isbn = ?", isbn).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrBookNotFound
		}
		res := tx.Where("isbn = ? AND username = ?", isbn, username).Delete(&ReviewModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReviewNotFound
		}
		return nil
	})
}

func (s *GormStore) reviewsFor(isbn string) (map[string]string, error) {
	var rows []ReviewModel
	if err := s.db.Find(&rows, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	reviews := make(map[string]string, len(rows))
	for _, r := range rows {
		reviews[r.Username] = r.Text
	}
	return reviews, nil
}

func userFromModel(row UserModel) domain.User {
	return domain.User{
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}
}
