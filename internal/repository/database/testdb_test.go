package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"Yatube/internal/model"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := Open("sqlite", dsn, false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err = AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", Password: "x"}
	if err := (&UserRepository{DB: db}).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mustPost(t *testing.T, db *gorm.DB, author *model.User, text string, at time.Time) *model.Post {
	t.Helper()
	p := &model.Post{Text: text, AuthorID: author.ID, CreatedAt: at}
	if err := (&PostRepository{DB: db}).Create(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func countRows(t *testing.T, db *gorm.DB, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func findOutbox(t *testing.T, db *gorm.DB, id uint64) *model.SocialOutbox {
	t.Helper()
	var ob model.SocialOutbox
	if err := db.First(&ob, id).Error; err != nil {
		t.Fatalf("outbox %d: %v", id, err)
	}
	return &ob
}
