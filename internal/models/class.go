// internal/models/class.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type Class struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	ClassName string         `json:"class_name" gorm:"not null"`
	TeacherID uint           `json:"teacher_id" gorm:"not null;index"`
}

// ClassMember is one roster entry. The composite key keeps a student
// from appearing twice in the same class.
type ClassMember struct {
	ClassID   uint `gorm:"primaryKey"`
	StudentID uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

type ClassDetail struct {
	Class
	Students []UserInfo    `json:"students"`
	Quizzes  []QuizSummary `json:"quizzes"`
}
