// Package testdb opens a migrated in-memory database for package tests.
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"classquiz/internal/models"
	"classquiz/pkg/database"
)

// New returns a fresh, fully migrated database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a single connection serialises writers and keeps the memory db alive
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db, models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Teacher(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleTeacher)
}

func Student(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleStudent)
}

func createUser(t testing.TB, db *gorm.DB, username string, role models.Role) models.User {
	u := models.User{Username: username, Password: "x", FullName: username + " Full", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Class creates a class owned by teacher with the given students enrolled.
func Class(t testing.TB, db *gorm.DB, teacher models.User, name string, students ...models.User) models.Class {
	t.Helper()
	c := models.Class{ClassName: name, TeacherID: teacher.ID}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create class: %v", err)
	}
	for _, s := range students {
		if err := db.Create(&models.ClassMember{ClassID: c.ID, StudentID: s.ID}).Error; err != nil {
			t.Fatalf("enrol %s: %v", s.Username, err)
		}
	}
	return c
}
